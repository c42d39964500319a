package store

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/health"
	"codeberg.org/mutker/healthsync/internal/logger"
	"github.com/dgraph-io/badger/v4"
)

const pendingPrefix = "pending:"

type badgerStore struct {
	db     *badger.DB
	logger logger.Logger
}

func NewBadger(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errFactory.New(ErrInvalidDBPath)
		}
		if err := os.MkdirAll(cfg.Path, defaultDirPerm); err != nil {
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
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("Badger state store initialized")

	return &badgerStore{db: db, logger: log}, nil
}

func (s *badgerStore) get(key string) (string, bool, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			value = string(v)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.New().Wrap(ErrStorageAccess, err)
	}
	return value, true, nil
}

func (s *badgerStore) set(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	return nil
}

func (s *badgerStore) LastSync(_ context.Context) (time.Time, bool, error) {
	value, ok, err := s.get(KeyLastSync)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return parseTimestamp(value)
}

func (s *badgerStore) SetLastSync(_ context.Context, t time.Time) error {
	return s.set(KeyLastSync, formatTimestamp(t))
}

func (s *badgerStore) SyncEnabled(_ context.Context) (bool, error) {
	value, ok, err := s.get(KeySyncEnabled)
	if err != nil || !ok {
		return true, err
	}
	return parseFlag(value)
}

func (s *badgerStore) SetSyncEnabled(_ context.Context, enabled bool) error {
	return s.set(KeySyncEnabled, boolToString(enabled))
}

func (s *badgerStore) SavePending(_ context.Context, records []health.DailyRecord) error {
	errFactory := errors.New()

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, r := range records {
			payload, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(pendingPrefix+r.Date), payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	return nil
}

func (s *badgerStore) Pending(_ context.Context) ([]health.DailyRecord, error) {
	errFactory := errors.New()

	var out []health.DailyRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(pendingPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r health.DailyRecord
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &r)
			})
			if err != nil {
				return errFactory.Wrap(ErrCorruptValue, err)
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		if errors.HasCode(err, ErrCorruptValue) {
			return nil, err
		}
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	// keys iterate in byte order, which is date order
	return out, nil
}

func (s *badgerStore) DeletePending(_ context.Context, dates []string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, d := range dates {
			if err := txn.Delete([]byte(pendingPrefix + d)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.New().Wrap(ErrTransactionFailed, err)
	}
	return nil
}

func (s *badgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	s.logger.Info().Msg("Badger state store closed gracefully")
	return nil
}
