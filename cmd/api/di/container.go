package di

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"reactive-user-service/cmd/api/infrastructure"
	"reactive-user-service/internal/adapter/db/mongo"
	"reactive-user-service/internal/adapter/db/postgres"
	ginhandler "reactive-user-service/internal/adapter/gin/handler"
	grpcmiddleware "reactive-user-service/internal/adapter/grpc/middleware"
	"reactive-user-service/internal/adapter/ratelimit"
	"reactive-user-service/internal/config"
	"reactive-user-service/internal/usecase/user"
	"reactive-user-service/pkg/metrics"
	redisclient "reactive-user-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	Mongo           *mongodriver.Client
	DB              *gorm.DB
	RedisClient     *redisclient.Client
	UserRepo        user.Repository
	UserUC          user.Usecase
	Metrics         *metrics.Metrics
	Limiter         *ratelimit.Limiter
	GRPCRateLimiter *grpcmiddleware.RateLimiter
	GinHandler      *ginhandler.UserHandler
}

// NewContainer creates and initializes all application dependencies.
// Resources opened before a failure are closed before returning.
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (_ *Container, err error) {
	c := &Container{Config: cfg, Logger: l}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	// Initialize repository for the configured store
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		c.DB, err = infrastructure.NewDatabase(cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.UserRepo = postgres.NewUserRepoPG(c.DB, l)
	default:
		var coll *mongodriver.Collection
		c.Mongo, coll, err = infrastructure.NewMongo(ctx, cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mongo: %w", err)
		}
		c.UserRepo = mongo.NewUserRepoMongo(coll, l)
	}

	c.Metrics, err = metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	// Redis is only needed by the rate limiter
	if cfg.RateLimit.Enabled {
		c.RedisClient, err = infrastructure.NewRedisClient(ctx, cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		c.Limiter = ratelimit.New(c.RedisClient.Client, ratelimit.Config{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
		})
	}
	c.GRPCRateLimiter = grpcmiddleware.NewRateLimiter(c.Limiter, c.Metrics, l)

	c.UserUC = user.New(c.UserRepo, l)
	c.GinHandler = ginhandler.NewUserHandler(c.UserUC, l)

	return c, nil
}

// Close closes all resources held by the container
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.Mongo != nil {
		if err := infrastructure.CloseMongo(ctx, c.Mongo); err != nil {
			errs = append(errs, err)
		}
	}

	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
