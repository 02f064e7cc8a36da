package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-events-service/cmd/api/infrastructure"
	"user-events-service/internal/adapter/cache"
	"user-events-service/internal/adapter/db/postgres"
	ginhandler "user-events-service/internal/adapter/gin/handler"
	"user-events-service/internal/adapter/gin/middleware"
	ginrouter "user-events-service/internal/adapter/gin/router"
	"user-events-service/internal/adapter/messaging/rabbitmq"
	"user-events-service/internal/adapter/repository/cached"
	"user-events-service/internal/config"
	"user-events-service/internal/usecase/user"
	redisclient "user-events-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client // nil when Redis is disabled
	Broker      *infrastructure.Broker
	UserUC      user.Usecase
	RateLimiter *middleware.RateLimiter // nil when rate limiting is disabled
	GinHandler  *ginhandler.UserHandler
}

// NewContainer creates and initializes all application dependencies.
// Resources opened before a failure are closed before returning.
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (_ *Container, err error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	c.DB, err = infrastructure.NewDatabase(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	c.Broker, err = infrastructure.NewBroker(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	var repo user.Repository = postgres.NewUserRepoPG(c.DB, l, cfg.DB.QueryTimeout())

	if cfg.Redis.Enabled {
		c.RedisClient, err = infrastructure.NewRedisClient(ctx, cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}

		userCache := cache.NewRedisUserCache(c.RedisClient.Client, cfg.Redis.KeyPrefix, cfg.Redis.CacheTTLDuration(), l)
		repo = cached.NewUserRepository(repo, userCache, l)

		if cfg.RateLimit.Enabled {
			c.RateLimiter = middleware.NewRateLimiter(
				c.RedisClient.Client,
				middleware.RateLimiterConfig{
					RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
					BurstCapacity:     cfg.RateLimit.BurstCapacity,
					Enabled:           cfg.RateLimit.Enabled,
				},
				l,
			)
		}
	}

	publisher := rabbitmq.NewPublisher(c.Broker.Channel, cfg.RabbitMQ.Exchange, l)

	c.UserUC = user.New(repo, publisher, l, user.WithFailOnPublishError(cfg.RabbitMQ.FailOnPublishError))
	c.GinHandler = ginhandler.NewUserHandler(c.UserUC, l)

	return c, nil
}

// HealthChecks returns a probe per external dependency.
func (c *Container) HealthChecks() map[string]ginrouter.HealthCheck {
	checks := map[string]ginrouter.HealthCheck{
		"postgres": func(ctx context.Context) error { return infrastructure.PingDatabase(ctx, c.DB) },
		"rabbitmq": c.Broker.Check,
	}
	if c.RedisClient != nil {
		checks["redis"] = c.RedisClient.Check
	}
	return checks
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.Broker != nil {
		if err := c.Broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close RabbitMQ: %w", err))
		}
	}

	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
