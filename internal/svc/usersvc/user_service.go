package usersvc

import (
	"context"
	"fmt"

	"github.com/mkrupp/userdir/internal/domain"
	"github.com/mkrupp/userdir/internal/infra/logging"
	"github.com/mkrupp/userdir/internal/repo/user"
)

// UserService creates and looks up users on a single Repository.
// Repository errors are passed through with their kind unchanged.
type UserService struct {
	UserRepo user.Repository
	Log      logging.Logger
}

// NewUserService creates a UserService on the repository built by repoFactory.
// The repository lives until Close.
func NewUserService(ctx context.Context, repoFactory user.RepositoryFactory) (*UserService, error) {
	userRepo, err := repoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	return &UserService{
		UserRepo: userRepo,
		Log:      logging.GetLogger("svc.usersvc.user_service"),
	}, nil
}

// CreateUser stores a new user.
// Returns domain.ErrUserAlreadyExists if the username is taken.
func (s *UserService) CreateUser(ctx context.Context, newUser domain.NewUser) (err error) {
	log := s.Log.With(logging.Group("user", "username", newUser.Username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "create user failed", "error", err)
		}
	}()

	created, err := s.UserRepo.Insert(ctx, newUser)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	log.DebugContext(ctx, "user created", "id", created.ID)

	return nil
}

// GetUser looks up a user by username.
// Returns domain.ErrUserNotFound if there is none.
func (s *UserService) GetUser(ctx context.Context, username string) (_ domain.User, err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "get user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user found")
		}
	}()

	found, err := s.UserRepo.FindByUsername(ctx, username)
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}

	return found, nil
}

// Close releases the repository.
func (s *UserService) Close() error {
	if err := s.UserRepo.Close(); err != nil {
		return fmt.Errorf("close user repo: %w", err)
	}

	return nil
}
