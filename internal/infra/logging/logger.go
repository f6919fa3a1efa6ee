package logging

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

type (
	Logger  = *slog.Logger
	Handler = slog.Handler
	Level   = slog.Level
)

// LoggerConfig is read from the LOG_ variables of each binary.
type LoggerConfig struct {
	// AppName is attached to every record as "app".
	AppName string

	// Output is "stdout", "stderr", "discard" or a file path to append to.
	Output string `env:"OUTPUT" envDefault:"stderr"`

	// Level is the global minimum level.
	Level string `env:"LEVEL" envDefault:"info"`

	// Filter overrides the level per logger name prefix, e.g. "repo.user:debug,infra:warn".
	Filter string `env:"FILTER" envDefault:""`

	// JSON selects the zap JSON encoder instead of the console encoder.
	JSON bool `env:"JSON" envDefault:"false"`

	// OutputHandle takes precedence over Output when set.
	OutputHandle io.Writer
}

//nolint:gochecknoglobals
var (
	Group = slog.Group

	state struct {
		sync.Mutex

		cfg       LoggerConfig
		level     Level
		pkgLevels map[string]Level
	}
)

// Configure installs cfg as the configuration for loggers created afterwards.
func Configure(ctx context.Context, cfg LoggerConfig, appName string) {
	cfg.AppName = appName

	var openErr error
	if cfg.OutputHandle == nil {
		cfg.OutputHandle, openErr = openOutput(cfg.Output)
	}

	level := parseLevel(cfg.Level, LevelInfo)

	state.Lock()
	state.cfg = cfg
	state.level = level
	state.pkgLevels = parseFilter(cfg.Filter)
	state.Unlock()

	slog.SetLogLoggerLevel(level)

	log := GetLogger("infra.logging")

	if openErr != nil {
		log.WarnContext(ctx, "log output unavailable, using stderr",
			"output", cfg.Output, "error", openErr)
	}

	log.DebugContext(ctx, "logging configured", Group("config",
		"app", cfg.AppName,
		"output", cfg.Output,
		"level", level.String(),
		"filter", cfg.Filter,
		"json", cfg.JSON,
	))
}

// GetLogger returns a logger named name. The name shows up as "logger"
// in every record and is matched against the configured filter.
func GetLogger(name string) Logger {
	state.Lock()
	cfg, level, pkgLevels := state.cfg, state.level, state.pkgLevels
	state.Unlock()

	if cfg.OutputHandle == nil || cfg.OutputHandle == io.Discard {
		return NewNopLogger()
	}

	core := newZapCore(cfg.OutputHandle, cfg.JSON)
	logger := slog.New(NewTracingHandler(NewZapHandler(core, level, pkgLevels, name)))

	if cfg.AppName != "" {
		logger = logger.With("app", cfg.AppName)
	}

	return logger
}

// GetLogLogger adapts logger for APIs that want a *log.Logger, such as http.Server.ErrorLog.
func GetLogLogger(logger Logger, level Level) *log.Logger {
	return slog.NewLogLogger(logger.With("stdlog", true).Handler(), level)
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "discard":
		return io.Discard, nil
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	//nolint:gosec
	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return os.Stderr, err //nolint:wrapcheck
	}

	return file, nil
}

func parseFilter(filter string) map[string]Level {
	levels := make(map[string]Level)

	for _, entry := range strings.Split(filter, ",") {
		name, level, ok := strings.Cut(entry, ":")
		if name = strings.TrimSpace(name); !ok || name == "" {
			continue
		}

		levels[name] = parseLevel(level, LevelDebug)
	}

	return levels
}

func parseLevel(s string, fallback Level) Level {
	var level Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return fallback
	}

	return level
}
