package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/userdir/internal/domain"
	"github.com/mkrupp/userdir/internal/infra/logging"
)

// SQLiteUserRepositoryConfig holds configuration for the SQLite user repository.
type SQLiteUserRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" envDefault:"var/storage/usersd.db"`
	// BusyTimeout is how long a connection waits on a locked database
	BusyTimeout time.Duration `env:"BUSY_TIMEOUT" envDefault:"5s"`
}

// SQLiteUserRepository implements Repository using SQLite as the storage backend.
type SQLiteUserRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var (
	_ Repository = (*SQLiteUserRepository)(nil)
	_ Migrator   = (*SQLiteUserRepository)(nil)
)

// SQLiteUserRepositoryFactory creates a factory function that returns a new SQLiteUserRepository.
// The factory function implements the RepositoryFactory type.
func SQLiteUserRepositoryFactory(cfg SQLiteUserRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewSQLiteUserRepository(ctx, cfg)
	}
}

// NewSQLiteUserRepository opens the database at cfg.DatabasePath and checks the connection.
// The schema is not created here; see Migrate.
func NewSQLiteUserRepository(ctx context.Context, cfg SQLiteUserRepositoryConfig) (*SQLiteUserRepository, error) {
	log := logging.GetLogger("repo.user.sqlite_user_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", cfg.DatabasePath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	log.DebugContext(ctx, "database opened")

	return &SQLiteUserRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

// Migrate implements Migrator by creating the users table with a unique username.
func (r *SQLiteUserRepository) Migrate(ctx context.Context) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT    NOT NULL UNIQUE,
			email    TEXT    NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	r.log.InfoContext(ctx, "schema migrated")

	return nil
}

// Insert implements Repository.Insert using SQLite.
func (r *SQLiteUserRepository) Insert(ctx context.Context, newUser domain.NewUser) (domain.User, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, email) VALUES (?, ?)",
		newUser.Username,
		newUser.Email,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", sqliteError(newUser.Username, err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.User{}, fmt.Errorf("last insert id: %w", domain.NewStoreUnavailableError(newUser.Username, err))
	}

	return domain.User{
		ID:       id,
		Username: newUser.Username,
		Email:    newUser.Email,
	}, nil
}

// FindByUsername implements Repository.FindByUsername using SQLite.
func (r *SQLiteUserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	var (
		id   int64
		user domain.User
	)

	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, email FROM users WHERE username = ?",
		username,
	).Scan(&id, &user.Username, &user.Email)
	if err != nil {
		return domain.User{}, fmt.Errorf("query user: %w", sqliteError(username, err))
	}

	user.ID = id

	return user, nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteUserRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}

func sqliteError(username string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewUserNotFoundError(username, err)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return domain.NewDuplicateUsernameError(username, err)
		}
	}

	return domain.NewStoreUnavailableError(username, err)
}
