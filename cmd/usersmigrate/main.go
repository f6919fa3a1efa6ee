// Command usersmigrate applies the users schema, including the unique username
// constraint, for one backend. Run it before starting usersd or usersa.
//
//	USERDIR_USERSMIGRATE_BACKEND=relational  # SQLite or PostgreSQL, per USERDIR_USER_DRIVER
//	USERDIR_USERSMIGRATE_BACKEND=document    # MongoDB
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mkrupp/userdir/internal/infra/config"
	"github.com/mkrupp/userdir/internal/infra/logging"
	"github.com/mkrupp/userdir/internal/repo/user"
)

const (
	appName = "userdir"
	svcName = "usersmigrate"

	backendRelational = "relational"
	backendDocument   = "document"
)

var errUnknownBackend = errors.New("unknown backend")

type Config struct {
	config.EnvConfig

	// Backend is "relational" or "document"
	Backend string `env:"BACKEND" envDefault:"relational"`

	Log      logging.LoggerConfig                `envPrefix:"LOG_"`
	User     user.RelationalUserRepositoryConfig `envPrefix:"USER_"`
	Document user.MongoUserRepositoryConfig      `envPrefix:"USER_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		fmt.Fprintln(os.Stderr, "parse config:", err)
		os.Exit(2)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.usersmigrate").With("backend", cfg.Backend)

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "migration failed", "err", err)

			return
		}

		log.InfoContext(ctx, "migration complete")
	}()

	repoFactory, err := repositoryFactory(cfg)
	if err != nil {
		return err
	}

	repo, err := repoFactory(ctx)
	if err != nil {
		return fmt.Errorf("new user repo: %w", err)
	}

	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close user repo: %w", closeErr))
		}
	}()

	migrator, ok := repo.(user.Migrator)
	if !ok {
		return fmt.Errorf("%w: %T", user.ErrNotMigratable, repo)
	}

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

func repositoryFactory(cfg Config) (user.RepositoryFactory, error) {
	switch cfg.Backend {
	case backendRelational:
		repoFactory, err := user.RelationalUserRepositoryFactory(cfg.User)
		if err != nil {
			return nil, fmt.Errorf("relational repository: %w", err)
		}

		return repoFactory, nil
	case backendDocument:
		return user.MongoUserRepositoryFactory(cfg.Document), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownBackend, cfg.Backend)
	}
}
