package user

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-events-service/internal/domain/user"
	"user-events-service/internal/metrics"
	apperrors "user-events-service/pkg/errors"
	"user-events-service/pkg/logger"
)

// Dispatcher routes a command to the repository and publishes the event of
// every mutating result before returning it.
type Dispatcher struct {
	repo      Repository          // Repository for data access
	publisher EventPublisher      // Publisher for mutation events
	log       *zap.Logger         // Logger for structured logging
	validate  *validator.Validate // Validator for command validation

	failOnPublishError bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithFailOnPublishError sets whether a publish failure after a committed
// mutation fails the command. It defaults to true; when false the failure
// is logged and the committed response is returned.
func WithFailOnPublishError(fail bool) Option {
	return func(d *Dispatcher) { d.failOnPublishError = fail }
}

// New creates a new Dispatcher.
func New(r Repository, p EventPublisher, log *zap.Logger, opts ...Option) *Dispatcher {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	d := &Dispatcher{
		repo:               r,
		publisher:          p,
		log:                log,
		validate:           v,
		failOnPublishError: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// formatValidationError converts validator.ValidationErrors into a validation error
// with a human-readable message.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError(err.Error())
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return apperrors.NewValidationError("validation failed: " + strings.Join(messages, ", "))
}

// Execute runs cmd. Only Created, Updated and Deleted responses are
// published. A publish failure is returned as *NotificationError unless the
// dispatcher was configured to tolerate it.
func (d *Dispatcher) Execute(ctx context.Context, cmd domain.Command) (domain.Response, error) {
	if cmd == nil {
		return nil, apperrors.NewValidationError("missing command")
	}

	start := time.Now()
	resp, err := d.execute(ctx, cmd)
	metrics.RecordCommand(cmd.Action(), err, time.Since(start).Seconds())
	return resp, err
}

func (d *Dispatcher) execute(ctx context.Context, cmd domain.Command) (domain.Response, error) {
	log := logger.WithContext(ctx, d.log).With(zap.String("command", cmd.Action()))

	resp, err := d.run(ctx, cmd)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindTransport {
			log.Error("command failed", zap.Error(err))
		} else {
			log.Warn("command rejected", zap.String("kind", apperrors.KindOf(err).String()), zap.Error(err))
		}
		return nil, err
	}

	if !resp.Mutating() {
		return resp, nil
	}

	if err := d.publisher.Publish(ctx, resp); err != nil {
		if !d.failOnPublishError {
			log.Warn("mutation committed but event was not published", zap.Error(err))
			return resp, nil
		}
		log.Error("mutation committed but event was not published", zap.Error(err))
		return nil, &NotificationError{Response: resp, Err: err}
	}

	return resp, nil
}

func (d *Dispatcher) run(ctx context.Context, cmd domain.Command) (domain.Response, error) {
	switch c := cmd.(type) {
	case domain.CreateCommand:
		if err := d.validate.Struct(c); err != nil {
			return nil, formatValidationError(err)
		}
		u, err := d.repo.Create(ctx, c.Name, c.Email)
		if err != nil {
			return nil, err
		}
		return domain.Created{User: *u}, nil

	case domain.GetCommand:
		u, err := d.repo.GetByID(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		return domain.Fetched{User: *u}, nil

	case domain.ListCommand:
		page, err := d.repo.List(ctx, c)
		if err != nil {
			return nil, err
		}
		return domain.Listed{Page: *page}, nil

	case domain.UpdateCommand:
		u, err := d.repo.Update(ctx, c)
		if err != nil {
			return nil, err
		}
		return domain.Updated{User: *u}, nil

	case domain.DeleteCommand:
		id, err := d.repo.Delete(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		return domain.Deleted{ID: id}, nil

	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported command %T", cmd))
	}
}
