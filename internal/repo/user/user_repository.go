package user

import (
	"context"

	"github.com/mkrupp/userdir/internal/domain"
)

// Repository defines the interface for user data persistence.
//
// Every implementation reports failures as *domain.UserError, so callers can
// tell a taken username, a missing user and a failing backend apart with
// errors.Is regardless of the backing database.
type Repository interface {
	// Insert stores a new user and returns it with its backend-assigned ID.
	// Returns domain.ErrUserAlreadyExists if the username is already taken.
	Insert(ctx context.Context, user domain.NewUser) (domain.User, error)

	// FindByUsername retrieves a user by their exact, case-sensitive username.
	// Returns domain.ErrUserNotFound if no such user exists.
	FindByUsername(ctx context.Context, username string) (domain.User, error)

	// Close releases any resources held by the repository.
	// Returns an error if cleanup fails.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func(ctx context.Context) (Repository, error)

// Migrator is implemented by repositories that can apply their own schema,
// including the unique constraint on username. Services never call it;
// the migration command does, before the services start.
type Migrator interface {
	Migrate(ctx context.Context) error
}
