package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/health"
	"codeberg.org/mutker/healthsync/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type sqliteStore struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
}

func NewSQLite(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	dsn := ":memory:"
	backupDir := ""
	if !cfg.InMemory {
		if cfg.Path == "" {
			return nil, errFactory.New(ErrInvalidDBPath)
		}

		// Ensure the directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.Path), defaultDirPerm); err != nil {
			return nil, errFactory.WithData(ErrStorageInit, struct {
				Phase string
				Path  string
				Error string
			}{
				Phase: "create_directory",
				Path:  cfg.Path,
				Error: err.Error(),
			})
		}

		dsn = cfg.Path + "?_journal=WAL&_auto_vacuum=2"
		backupDir = cfg.backupDir()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := ValidateAndUpdateSchema(db, backupDir, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Int("schema_version", SchemaVersion).
		Msg("State store initialized")

	return &sqliteStore{
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

func (s *sqliteStore) getState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, selectStateSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.New().Wrap(ErrStorageAccess, err)
	}
	return value, true, nil
}

func (s *sqliteStore) setState(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertStateSQL, key, value); err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	return nil
}

func (s *sqliteStore) LastSync(ctx context.Context) (time.Time, bool, error) {
	value, ok, err := s.getState(ctx, KeyLastSync)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return parseTimestamp(value)
}

func (s *sqliteStore) SetLastSync(ctx context.Context, t time.Time) error {
	return s.setState(ctx, KeyLastSync, formatTimestamp(t))
}

func (s *sqliteStore) SyncEnabled(ctx context.Context) (bool, error) {
	value, ok, err := s.getState(ctx, KeySyncEnabled)
	if err != nil || !ok {
		return true, err
	}
	return parseFlag(value)
}

func (s *sqliteStore) SetSyncEnabled(ctx context.Context, enabled bool) error {
	return s.setState(ctx, KeySyncEnabled, boolToString(enabled))
}

func (s *sqliteStore) SavePending(ctx context.Context, records []health.DailyRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.inTx(ctx, upsertPendingSQL, func(stmt *sql.Stmt) error {
		now := time.Now().Unix()
		for _, r := range records {
			payload, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, r.Date, string(payload), now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqliteStore) Pending(ctx context.Context) ([]health.DailyRecord, error) {
	errFactory := errors.New()

	rows, err := s.db.QueryContext(ctx, selectPendingSQL)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var out []health.DailyRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		var r health.DailyRecord
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, errFactory.Wrap(ErrCorruptValue, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	return out, nil
}

func (s *sqliteStore) DeletePending(ctx context.Context, dates []string) error {
	if len(dates) == 0 {
		return nil
	}
	return s.inTx(ctx, deletePendingSQL, func(stmt *sql.Stmt) error {
		for _, d := range dates {
			if _, err := stmt.ExecContext(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqliteStore) inTx(ctx context.Context, query string, fn func(*sql.Stmt) error) error {
	errFactory := errors.New()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				s.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to prepare statement")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	if err := fn(stmt); err != nil {
		s.logger.Error().Err(err).Msg("Failed to execute statement")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	committed = true

	return nil
}

func (s *sqliteStore) Close() error {
	if !s.cfg.InMemory {
		// Checkpoint WAL and cleanup on close
		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			return errors.New().WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "checkpoint_wal",
				Error: err.Error(),
			})
		}
	}

	if err := s.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	s.logger.Info().Msg("State store closed gracefully")

	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) (time.Time, bool, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false, errors.New().WithData(ErrCorruptValue, struct {
			Key   string
			Value string
		}{
			Key:   KeyLastSync,
			Value: value,
		})
	}
	return t, true, nil
}

func parseFlag(value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return true, errors.New().WithData(ErrCorruptValue, struct {
			Key   string
			Value string
		}{
			Key:   KeySyncEnabled,
			Value: value,
		})
	}
	return b, nil
}
