package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"reactive-user-service/internal/adapter/gin/middleware"
	domain "reactive-user-service/internal/domain/user"
	usecase "reactive-user-service/internal/usecase/user"
	pkgerrors "reactive-user-service/pkg/errors"
	"reactive-user-service/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	binding.Validator = validation.NewWithTag("binding")
}

// MockUserUsecase is a mock implementation of user.Usecase
type MockUserUsecase struct {
	mock.Mock
}

func (m *MockUserUsecase) CreateUser(ctx context.Context, req usecase.CreateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUsecase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUsecase) ListUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserUsecase) UpdateUser(ctx context.Context, id string, req usecase.UpdateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUsecase) DeleteUser(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func setupTest(t testing.TB) (*gin.Engine, *MockUserUsecase) {
	mockUsecase := new(MockUserUsecase)
	log := zaptest.NewLogger(t)
	h := NewUserHandler(mockUsecase, log)

	r := gin.New()
	r.Use(middleware.ErrorHandler(log))
	r.POST("/users", h.CreateUser)
	r.GET("/users", h.ListUsers)
	r.GET("/users/:id", h.GetUser)
	r.PATCH("/users/:id", h.UpdateUser)
	r.DELETE("/users/:id", h.DeleteUser)
	return r, mockUsecase
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jande() *domain.User {
	return &domain.User{ID: "665f1c2ab1e4d3a9c8b7a601", Name: "Jande", Email: "jande@test.com", Password: "123456"}
}

func TestCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		req := usecase.CreateUserRequest{Name: "Jande", Email: "jande@test.com", Password: "123456"}
		mockUsecase.On("CreateUser", mock.Anything, req).Return(jande(), nil)

		w := doJSON(r, http.MethodPost, "/users", req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Empty(t, w.Body.String())
		mockUsecase.AssertExpectations(t)
	})

	t.Run("Id in payload is ignored", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("CreateUser", mock.Anything, usecase.CreateUserRequest{Name: "Jande", Email: "jande@test.com", Password: "123456"}).
			Return(jande(), nil)

		w := doJSON(r, http.MethodPost, "/users", `{"id":"abc","name":"Jande","email":"jande@test.com","password":"123456"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Leading whitespace in name", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		w := doJSON(r, http.MethodPost, "/users", usecase.CreateUserRequest{Name: " Jande", Email: "jande@test.com", Password: "123456"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body middleware.ValidationError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "/users", body.Path)
		assert.Equal(t, "Validation Error", body.Error)
		assert.Equal(t, "Error validation attributes", body.Message)
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "name", body.Errors[0].FieldName)
		assert.Equal(t, "field cannot have blank spaces at the beginning or at end", body.Errors[0].Message)
		mockUsecase.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("Missing fields", func(t *testing.T) {
		r, _ := setupTest(t)

		w := doJSON(r, http.MethodPost, "/users", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body middleware.ValidationError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Errors, 3)
		for _, e := range body.Errors {
			assert.Equal(t, "must not be null or empty", e.Message)
		}
	})

	t.Run("Malformed body", func(t *testing.T) {
		r, _ := setupTest(t)

		w := doJSON(r, http.MethodPost, "/users", `{"name":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Malformed request body")
	})

	t.Run("Duplicate email", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, pkgerrors.NewDuplicateKeyError("email", "E11000 duplicate key error collection: db.users index: email dup key: { email: \"jande@test.com\" }", nil))

		w := doJSON(r, http.MethodPost, "/users", usecase.CreateUserRequest{Name: "Jande", Email: "jande@test.com", Password: "123456"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body middleware.StandardError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "E-mail already registered", body.Message)
	})
}

func TestGetUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("GetUser", mock.Anything, "665f1c2ab1e4d3a9c8b7a601").Return(jande(), nil)

		w := doJSON(r, http.MethodGet, "/users/665f1c2ab1e4d3a9c8b7a601", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"665f1c2ab1e4d3a9c8b7a601","name":"Jande","email":"jande@test.com","password":"123456"}`, w.Body.String())
	})

	t.Run("Not found", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("GetUser", mock.Anything, "missing").Return(nil, pkgerrors.NewObjectNotFoundError("missing", "User"))

		w := doJSON(r, http.MethodGet, "/users/missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var body middleware.StandardError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Object not found, Id: missing, Type: User", body.Message)
		assert.Equal(t, "/users/missing", body.Path)
	})

	t.Run("Store failure", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("GetUser", mock.Anything, "1").Return(nil, errors.New("timeout"))

		w := doJSON(r, http.MethodGet, "/users/1", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestListUsers(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("ListUsers", mock.Anything).Return([]domain.User{*jande()}, nil)

		w := doJSON(r, http.MethodGet, "/users", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var body []usecase.UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, []usecase.UserResponse{usecase.ToResponse(jande())}, body)
	})

	t.Run("Empty", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("ListUsers", mock.Anything).Return([]domain.User{}, nil)

		w := doJSON(r, http.MethodGet, "/users", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
}

func TestUpdateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		updated := jande()
		updated.Name = "Jande Max"
		mockUsecase.On("UpdateUser", mock.Anything, updated.ID, mock.MatchedBy(func(req usecase.UpdateUserRequest) bool {
			return req.Name != nil && *req.Name == "Jande Max" && req.Email == nil && req.Password == nil
		})).Return(updated, nil)

		w := doJSON(r, http.MethodPatch, "/users/"+updated.ID, `{"name":"Jande Max"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		var body usecase.UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Jande Max", body.Name)
		assert.Equal(t, "jande@test.com", body.Email)
	})

	t.Run("Not found", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("UpdateUser", mock.Anything, "missing", mock.Anything).
			Return(nil, pkgerrors.NewObjectNotFoundError("missing", "User"))

		w := doJSON(r, http.MethodPatch, "/users/missing", `{"name":"Jande"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Present field is validated", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		w := doJSON(r, http.MethodPatch, "/users/1", `{"email":"not-an-email"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body middleware.ValidationError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "email", body.Errors[0].FieldName)
		assert.Equal(t, "invalid email", body.Errors[0].Message)
		mockUsecase.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Present but empty", func(t *testing.T) {
		r, _ := setupTest(t)

		w := doJSON(r, http.MethodPatch, "/users/1", `{"password":""}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "must not be null or empty")
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("DeleteUser", mock.Anything, "1").Return(jande(), nil)

		w := doJSON(r, http.MethodDelete, "/users/1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("Not found", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("DeleteUser", mock.Anything, "missing").
			Return(nil, pkgerrors.NewObjectNotFoundError("missing", "User"))

		w := doJSON(r, http.MethodDelete, "/users/missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func BenchmarkGetUser(b *testing.B) {
	r, mockUsecase := setupTest(b)
	mockUsecase.On("GetUser", mock.Anything, "665f1c2ab1e4d3a9c8b7a601").Return(jande(), nil)
	req := httptest.NewRequest(http.MethodGet, "/users/665f1c2ab1e4d3a9c8b7a601", nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", w.Code)
		}
	}
}

func BenchmarkCreateUser_Validation(b *testing.B) {
	r, _ := setupTest(b)
	payload := []byte(`{"name":" Jande","email":"jande@test.com","password":"123456"}`)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			b.Fatalf("unexpected status %d", w.Code)
		}
	}
}
