package user

import (
	"context"

	domain "reactive-user-service/internal/domain/user"
)

// Usecase defines the interface for user business logic operations.
type Usecase interface {
	CreateUser(ctx context.Context, in CreateUserRequest) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, id string, in UpdateUserRequest) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) (*domain.User, error)
}

// Repository defines the interface for user data access operations.
// Implementations return (nil, nil) from lookups that match nothing, including
// ids the store cannot parse.
type Repository interface {
	Save(ctx context.Context, u *domain.User) (*domain.User, error)     // Insert when ID is empty, replace by ID otherwise
	FindByID(ctx context.Context, id string) (*domain.User, error)      // Retrieve user by ID
	FindAll(ctx context.Context) ([]domain.User, error)                 // Every stored user
	FindAndRemove(ctx context.Context, id string) (*domain.User, error) // Delete by ID and return the removed user
	Ping(ctx context.Context) error                                     // Store reachability for health checks
}
