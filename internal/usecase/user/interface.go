package user

import (
	"context"

	domain "user-events-service/internal/domain/user"
)

// Usecase executes one user command end to end.
type Usecase interface {
	Execute(ctx context.Context, cmd domain.Command) (domain.Response, error)
}

// Repository defines the persistence operations the dispatcher needs.
// Implementations report failures as *errors.Error values.
type Repository interface {
	Create(ctx context.Context, name, email string) (*domain.User, error) // Insert and return the stored row
	GetByID(ctx context.Context, id int64) (*domain.User, error)          // Read one user
	List(ctx context.Context, cmd domain.ListCommand) (*domain.Page, error)
	Update(ctx context.Context, cmd domain.UpdateCommand) (*domain.User, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// EventPublisher emits the event of a mutating response.
type EventPublisher interface {
	Publish(ctx context.Context, resp domain.Response) error
}
