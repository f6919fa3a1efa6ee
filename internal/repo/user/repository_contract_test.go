package user_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/mkrupp/userdir/internal/domain"
	"github.com/mkrupp/userdir/internal/repo/user"
)

// uniqueUsername keeps runs against shared databases from colliding.
func uniqueUsername(base string) string {
	return base + "-" + uuid.NewString()[:8]
}

// testRepositoryContract checks the behaviour every Repository implementation shares.
func testRepositoryContract(t *testing.T, repo user.Repository) {
	t.Helper()

	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		newUser := domain.NewUser{Username: uniqueUsername("alice"), Email: "a@x.com"}

		created, err := repo.Insert(ctx, newUser)
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if created.ID == nil {
			t.Error("Insert() returned user without ID")
		}

		found, err := repo.FindByUsername(ctx, newUser.Username)
		if err != nil {
			t.Fatalf("FindByUsername() error = %v", err)
		}
		if found.Username != newUser.Username || found.Email != newUser.Email {
			t.Errorf("FindByUsername() = %+v, want %+v", found, newUser)
		}
		if found.ID != created.ID {
			t.Errorf("FindByUsername() ID = %v, want %v", found.ID, created.ID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		username := uniqueUsername("bob")

		_, err := repo.FindByUsername(ctx, username)
		if !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("FindByUsername() error = %v, want %v", err, domain.ErrUserNotFound)
		}

		var userErr *domain.UserError
		if !errors.As(err, &userErr) || userErr.Error() != "USER_NOT_FOUND: "+username {
			t.Errorf("FindByUsername() error = %v, want USER_NOT_FOUND: %s", err, username)
		}
	})

	t.Run("username match is case sensitive", func(t *testing.T) {
		username := uniqueUsername("Carol")

		if _, err := repo.Insert(ctx, domain.NewUser{Username: username, Email: "c@x.com"}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		_, err := repo.FindByUsername(ctx, "carol"+username[len("Carol"):])
		if !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("FindByUsername() error = %v, want %v", err, domain.ErrUserNotFound)
		}
	})

	t.Run("duplicate keeps existing record", func(t *testing.T) {
		username := uniqueUsername("dave")

		if _, err := repo.Insert(ctx, domain.NewUser{Username: username, Email: "d@x.com"}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		_, err := repo.Insert(ctx, domain.NewUser{Username: username, Email: "other@x.com"})
		if !errors.Is(err, domain.ErrUserAlreadyExists) {
			t.Fatalf("Insert() error = %v, want %v", err, domain.ErrUserAlreadyExists)
		}

		found, err := repo.FindByUsername(ctx, username)
		if err != nil {
			t.Fatalf("FindByUsername() error = %v", err)
		}
		if found.Email != "d@x.com" {
			t.Errorf("FindByUsername() email = %q, want %q", found.Email, "d@x.com")
		}
	})

	t.Run("concurrent inserts of one username", func(t *testing.T) {
		const workers = 16

		var (
			username   = uniqueUsername("erin")
			wg         sync.WaitGroup
			mu         sync.Mutex
			succeeded  int
			duplicates int
		)

		for range workers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, err := repo.Insert(ctx, domain.NewUser{Username: username, Email: "e@x.com"})

				mu.Lock()
				defer mu.Unlock()

				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, domain.ErrUserAlreadyExists):
					duplicates++
				default:
					t.Errorf("Insert() unexpected error = %v", err)
				}
			}()
		}

		wg.Wait()

		if succeeded != 1 || duplicates != workers-1 {
			t.Errorf("got %d successes and %d duplicates, want 1 and %d", succeeded, duplicates, workers-1)
		}
	})
}
