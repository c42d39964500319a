package store

import (
	"path/filepath"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/logger"
)

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"

	// File system permissions and paths
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/healthsync/state.db"
)

type Config struct {
	Backend  string
	Path     string
	InMemory bool
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendSQLite,
		Path:    defaultDBPath,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Backend {
	case BackendSQLite, BackendBadger:
	default:
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value string
		}{
			Field: "backend",
			Value: c.Backend,
		})
	}

	if !c.InMemory && c.Path == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	return nil
}

func (c Config) backupDir() string {
	return filepath.Join(filepath.Dir(c.Path), "backups")
}

// Open returns the configured backend
func Open(cfg Config, log logger.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Backend == BackendBadger {
		return NewBadger(cfg, log)
	}
	return NewSQLite(cfg, log)
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
