package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-service/cmd/api/infrastructure"
	"user-service/internal/adapter/db/postgres"
	ginhandler "user-service/internal/adapter/gin/handler"
	"user-service/internal/adapter/gin/router"
	grpcadapter "user-service/internal/adapter/grpc"
	"user-service/internal/adapter/grpc/middleware"
	"user-service/internal/adapter/mq"
	"user-service/internal/config"
	"user-service/internal/metrics"
	"user-service/internal/usecase/user"
	redisclient "user-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client // nil unless rate limiting is enabled
	Broker      *mq.RabbitMQ        // nil unless MQ is enabled
	Metrics     *metrics.Metrics
	UserService user.Service
	RateLimiter *middleware.RateLimiter // nil unless rate limiting is enabled
	GinHandler  *ginhandler.UserHandler
	GRPCHandler *grpcadapter.UserServiceServer
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db

	if cfg.RateLimit.Enabled {
		rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to initialize Redis: %w", err), c.Close())
		}
		c.RedisClient = rdb
		c.RateLimiter = middleware.NewRateLimiter(
			rdb.Client,
			middleware.RateLimiterConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				BurstCapacity:     cfg.RateLimit.BurstCapacity,
				Enabled:           cfg.RateLimit.Enabled,
				TrustedProxies:    cfg.RateLimit.TrustedProxies,
			},
			l,
		)
	}

	var pub user.Publisher
	if cfg.MQ.Enabled {
		broker, err := infrastructure.NewBroker(ctx, cfg, l)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to initialize broker: %w", err), c.Close())
		}
		c.Broker = broker
		pub = broker
	}

	c.Metrics = metrics.New(nil)
	c.Metrics.Registry().MustRegister(collectors.NewBuildInfoCollector())

	repo := postgres.NewUserRepoPG(db, l)
	c.UserService = user.New(repo, pub, c.Metrics.Operations, l)

	c.GinHandler = ginhandler.NewUserHandler(c.UserService, l)
	c.GRPCHandler = grpcadapter.NewUserServiceServer(c.UserService, l)

	return c, nil
}

// HealthChecks returns the dependency checks served on /health.
func (c *Container) HealthChecks() map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if c.RedisClient != nil {
		checks["redis"] = c.RedisClient.Check
	}
	return checks
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.Broker != nil {
		if err := c.Broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close broker: %w", err))
		}
	}

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
