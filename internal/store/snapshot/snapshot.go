// Package snapshot keeps the latest airframe record per generator role and
// category in BadgerDB and serves it to the redundant reader.
//
// Generators (or the simulator feed) call Put after every frame; readers see
// the most recent record until it is older than MaxAge, after which the role
// reads as absent so that stale values are never displayed.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/signalsfoundry/efis-adapter/internal/logging"
	"github.com/signalsfoundry/efis-adapter/model"
	"github.com/signalsfoundry/efis-adapter/timectrl"
)

const keyPrefix = "airframe/"

// Config holds configuration for a snapshot store.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps the database in memory, for tests and simulations.
	InMemory bool
	// SyncWrites fsyncs every Put.
	SyncWrites bool
	// MaxAge is the staleness bound; zero disables it.
	MaxAge time.Duration
	// Clock is used for staleness checks; defaults to the wall clock.
	Clock timectrl.Clock
	// Logger receives Badger's internal logs; nil silences them.
	Logger logging.Logger
}

// Store is a BadgerDB-backed snapshot store. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	maxAge time.Duration
	clock  timectrl.Clock
}

type badgerLogger struct {
	log logging.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Info(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Open opens the store described by cfg. The caller must Close it.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("snapshot store path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create snapshot directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{log: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = timectrl.WallClock{}
	}
	return &Store{db: db, maxAge: cfg.MaxAge, clock: clock}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func key(role model.SourceRole, categoryID string) []byte {
	return []byte(keyPrefix + role.String() + "/" + categoryID)
}

// Put replaces the latest record for (role, rec.Category).
func (s *Store) Put(ctx context.Context, role model.SourceRole, rec model.AirframeData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.Category == "" {
		return errors.New("snapshot record has no category")
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(role, rec.Category), val)
	})
}

// Delete removes the record for (role, categoryID), making the role absent.
func (s *Store) Delete(ctx context.Context, role model.SourceRole, categoryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(role, categoryID))
	})
}

// ReadAirframe implements core.GeneratorReader. Missing and stale records
// read as absent; decode and storage failures are errors.
func (s *Store) ReadAirframe(ctx context.Context, role model.SourceRole, cat model.Category) (model.AirframeData, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.AirframeData{}, false, err
	}

	var rec model.AirframeData
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(role, cat.ID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return model.AirframeData{}, false, nil
	case err != nil:
		return model.AirframeData{}, false, fmt.Errorf("read %s snapshot: %w", role, err)
	}

	if s.maxAge > 0 && s.clock.Now().Sub(rec.Timestamp) > s.maxAge {
		return model.AirframeData{}, false, nil
	}
	return rec, true, nil
}

// Roles lists the roles holding a record for categoryID.
func (s *Store) Roles(categoryID string) ([]model.SourceRole, error) {
	var roles []model.SourceRole
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), keyPrefix)
			role, cat, ok := strings.Cut(rest, "/")
			if ok && cat == categoryID {
				roles = append(roles, model.SourceRole(role))
			}
		}
		return nil
	})
	return roles, err
}
