package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reactive-user-service/internal/adapter/gin/middleware"
	"reactive-user-service/internal/usecase/user"
	"reactive-user-service/pkg/logger"
	"reactive-user-service/pkg/validation"
)

// UserHandler handles HTTP requests for user operations.
// Failures are recorded with c.Error and rendered by middleware.ErrorHandler.
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req user.CreateUserRequest
	if !h.bind(c, &req) {
		return
	}

	if _, err := h.uc.CreateUser(c.Request.Context(), req); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusCreated)
}

// GetUser handles GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	u, err := h.uc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user.ToResponse(u))
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.uc.ListUsers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user.ToResponses(users))
}

// UpdateUser handles PATCH /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req user.UpdateUserRequest
	if !h.bind(c, &req) {
		return
	}

	u, err := h.uc.UpdateUser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user.ToResponse(u))
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if _, err := h.uc.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusOK)
}

// bind decodes and validates the JSON body into req. On failure it records the
// error and reports false.
func (h *UserHandler) bind(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	log := logger.WithContext(c.Request.Context(), h.log)
	if validation.Fields(err) != nil {
		log.Debug("request validation failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		_ = c.Error(err)
		return false
	}

	log.Warn("malformed request body", zap.String("path", c.Request.URL.Path), zap.Error(err))
	_ = c.Error(&middleware.BadRequestError{Err: err})
	return false
}
