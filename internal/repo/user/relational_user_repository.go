package user

import (
	"errors"
	"fmt"
)

// ErrUnknownDriver is returned for a relational driver name other than "sqlite" or "postgres".
var ErrUnknownDriver = errors.New("unknown relational driver")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// RelationalUserRepositoryConfig selects and configures the relational backend.
type RelationalUserRepositoryConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver string `env:"DRIVER" envDefault:"sqlite"`

	SQLite   SQLiteUserRepositoryConfig
	Postgres PostgresUserRepositoryConfig
}

// RelationalUserRepositoryFactory returns the factory for the configured driver.
func RelationalUserRepositoryFactory(cfg RelationalUserRepositoryConfig) (RepositoryFactory, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return SQLiteUserRepositoryFactory(cfg.SQLite), nil
	case DriverPostgres:
		return PostgresUserRepositoryFactory(cfg.Postgres), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
