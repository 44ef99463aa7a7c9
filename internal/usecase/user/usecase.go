package user

import (
	"context"

	"go.uber.org/zap"

	domain "reactive-user-service/internal/domain/user"
	pkgerrors "reactive-user-service/pkg/errors"
	"reactive-user-service/pkg/logger"
)

// entityType names the resource in not-found messages
const entityType = "User"

// Service implements the business logic for user management operations.
// Request payloads arrive already validated by the transport layer. Store
// failures other than duplicate keys are returned as *errors.InternalError.
type Service struct {
	repo Repository  // Repository for data access
	log  *zap.Logger // Logger for structured logging
}

var _ Usecase = (*Service)(nil)

// New creates a new instance of Service with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Service {
	return &Service{repo: r, log: log}
}

// CreateUser stores a new user. A duplicate email surfaces as a DuplicateKeyError.
func (s *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*domain.User, error) {
	log := logger.WithContext(ctx, s.log)
	log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	u, err := s.repo.Save(ctx, ToEntity(in))
	if err != nil {
		if pkgerrors.IsDuplicateKey(err) {
			log.Warn("email already exists", zap.String("email", in.Email))
			return nil, err
		}
		log.Error("failed to create user", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to create user", err)
	}
	return u, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("failed to get user", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to get user", err)
	}
	if u == nil {
		return nil, pkgerrors.NewObjectNotFoundError(id, entityType)
	}
	return u, nil
}

// ListUsers retrieves every stored user.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("failed to list users", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to list users", err)
	}
	return users, nil
}

// UpdateUser merges the present fields of in onto the stored user and saves it.
func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateUserRequest) (*domain.User, error) {
	log := logger.WithContext(ctx, s.log)
	log.Info("updating user", zap.String("id", id))

	existing, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.Save(ctx, MergeEntity(in, existing))
	if err != nil {
		if pkgerrors.IsDuplicateKey(err) {
			log.Warn("email already exists", zap.String("id", id))
			return nil, err
		}
		log.Error("failed to update user", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to update user", err)
	}
	return u, nil
}

// DeleteUser removes a user and returns the removed record.
func (s *Service) DeleteUser(ctx context.Context, id string) (*domain.User, error) {
	log := logger.WithContext(ctx, s.log)
	log.Info("deleting user", zap.String("id", id))

	u, err := s.repo.FindAndRemove(ctx, id)
	if err != nil {
		log.Error("failed to delete user", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to delete user", err)
	}
	if u == nil {
		return nil, pkgerrors.NewObjectNotFoundError(id, entityType)
	}
	return u, nil
}
