// Command usersa serves the user directory from a MongoDB collection
// (database "otus", collection "users" by default).
// Create the unique username index with usersmigrate before starting it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkrupp/userdir/internal/infra/config"
	"github.com/mkrupp/userdir/internal/infra/logging"
	"github.com/mkrupp/userdir/internal/infra/transport/http"
	"github.com/mkrupp/userdir/internal/repo/user"
	"github.com/mkrupp/userdir/internal/svc/usersvc"
)

const (
	appName = "userdir"
	svcName = "usersa"
)

type Config struct {
	config.EnvConfig

	Log   logging.LoggerConfig           `envPrefix:"LOG_"`
	HTTP  usersvc.HTTPTransportConfig    `envPrefix:"HTTP_"`
	User  user.MongoUserRepositoryConfig `envPrefix:"USER_"`
	Cache user.CacheConfig               `envPrefix:"CACHE_"`
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

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	defer func() {
		log := logging.GetLogger("cmd.usersa")

		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)

			return
		}

		log.InfoContext(ctx, "shutdown")
	}()

	repoFactory := user.CachedUserRepositoryFactory(user.MongoUserRepositoryFactory(cfg.User), cfg.Cache)

	userSvc, err := usersvc.NewUserService(ctx, repoFactory)
	if err != nil {
		return fmt.Errorf("new user service: %w", err)
	}

	defer func() {
		if closeErr := userSvc.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close user service: %w", closeErr))
		}
	}()

	httpTransport := usersvc.NewHTTPTransport(userSvc, cfg.HTTP)

	if err := http.ListenAndServe(ctx, httpTransport, cfg.HTTP.HTTPTransportConfig); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
