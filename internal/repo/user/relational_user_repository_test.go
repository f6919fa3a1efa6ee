package user_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkrupp/userdir/internal/repo/user"
)

func TestRelationalUserRepositoryFactory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		driver  string
		wantErr error
	}{
		{
			name:   "sqlite",
			driver: user.DriverSQLite,
		},
		{
			name:    "unknown driver",
			driver:  "oracle",
			wantErr: user.ErrUnknownDriver,
		},
		{
			name:    "empty driver",
			driver:  "",
			wantErr: user.ErrUnknownDriver,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			//nolint:exhaustruct
			factory, err := user.RelationalUserRepositoryFactory(user.RelationalUserRepositoryConfig{
				Driver: tt.driver,
				SQLite: user.SQLiteUserRepositoryConfig{
					DatabasePath: filepath.Join(t.TempDir(), "users.db"),
					BusyTimeout:  time.Second,
				},
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RelationalUserRepositoryFactory() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}

			repo, err := factory(context.Background())
			if err != nil {
				t.Fatalf("factory() error = %v", err)
			}
			defer repo.Close()

			if _, ok := repo.(*user.SQLiteUserRepository); !ok {
				t.Errorf("factory() returned %T, want *user.SQLiteUserRepository", repo)
			}
		})
	}
}
