package user

import (
	"context"

	domain "user-service/internal/domain/user"
)

// Service defines the user business operations exposed to transports.
type Service interface {
	FindAllUsers(ctx context.Context) ([]domain.User, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) (bool, error)
}

// Repository defines the persistence collaborator for users.
// It abstracts the data layer, allowing different implementations
// (e.g., PostgreSQL, SQLite) to be used interchangeably.
type Repository interface {
	Find(ctx context.Context) ([]domain.User, error)                      // All users, in storage order
	FindOne(ctx context.Context, id string) (*domain.User, error)         // nil, nil when absent
	Create(fields domain.User) *domain.User                               // Build an entity, no I/O
	Save(ctx context.Context, u *domain.User) (*domain.User, error)       // Persist, assigning an ID when empty
	Update(ctx context.Context, id string, p domain.Patch) (int64, error) // Rows affected
	Delete(ctx context.Context, id string) (int64, error)                 // Rows affected
}

// Publisher receives lifecycle events after successful mutations.
// Implementations must not block the caller.
type Publisher interface {
	Publish(ctx context.Context, e domain.Event)
}
