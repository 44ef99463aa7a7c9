package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reactive-user-service/internal/domain/user"
	pkgerrors "reactive-user-service/pkg/errors"
	"reactive-user-service/pkg/logger"
)

// UserRepoPG implements the user repository using PostgreSQL and GORM.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID        string    `gorm:"primaryKey;size:36"`                   // UUID assigned on first save
	Name      string    `gorm:"not null"`                             // User's full name
	Email     string    `gorm:"not null;uniqueIndex:idx_users_email"` // User's unique email address
	Password  string    `gorm:"not null"`                             // Stored as received
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`              // Insertion time, keeps listing order stable
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// AutoMigrate creates or updates the users table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserSchema{})
}

// Save inserts u when it has no id, otherwise upserts it by id.
func (r *UserRepoPG) Save(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := UserSchema{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Password: u.Password,
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "password"}),
		}).
		Create(&model).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.NewDuplicateKeyError("email",
				fmt.Sprintf("duplicate key error table: users index: email dup key: { email: %q }", u.Email), err)
		}
		logger.WithContext(ctx, r.log).Error("failed to save user in db", zap.Error(err), zap.String("id", model.ID))
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	logger.WithContext(ctx, r.log).Debug("user saved in db", zap.String("id", model.ID))
	return toDomain(model), nil
}

// FindByID retrieves a user by id. It returns (nil, nil) when no row matches.
func (r *UserRepoPG) FindByID(ctx context.Context, id string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toDomain(model), nil
}

// FindAll retrieves every user in insertion order.
func (r *UserRepoPG) FindAll(ctx context.Context) ([]user.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]user.User, len(models))
	for i, model := range models {
		users[i] = *toDomain(model)
	}
	return users, nil
}

// FindAndRemove deletes a user by id and returns the removed row, or (nil, nil)
// when no row matches.
func (r *UserRepoPG) FindAndRemove(ctx context.Context, id string) (*user.User, error) {
	var model UserSchema
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return err
		}
		return tx.Delete(&UserSchema{}, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	logger.WithContext(ctx, r.log).Debug("user deleted in db", zap.String("id", id))
	return toDomain(model), nil
}

// Ping checks database connectivity.
func (r *UserRepoPG) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func toDomain(model UserSchema) *user.User {
	return &user.User{
		ID:       model.ID,
		Name:     model.Name,
		Email:    model.Email,
		Password: model.Password,
	}
}

// isUniqueViolation recognizes unique constraint failures from postgres (raw or
// translated by gorm) and sqlite.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
