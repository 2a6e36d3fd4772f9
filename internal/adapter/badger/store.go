// Package badger persists a ChromeBundle in an embedded BadgerDB directory
// and loads it back wholesale.
//
// Layout:
//
//	meta                 JSON BundleMeta, written last
//	level/<n>/<key>      JSON GroupSummary, key fields path-escaped and joined with "|"
package badger

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/couchcryptid/flight-delay-etl/internal/domain"
)

// ErrNoBundle means the store holds no completed bundle.
var ErrNoBundle = errors.New("no bundle in store")

const (
	metaKey     = "meta"
	levelPrefix = "level/"
)

// Store reads and writes a bundle at a directory path. Each call opens and
// closes the database, so a Store holds no open handles between calls.
// It implements pipeline.BundleStore.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a Store for the badger directory at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the database directory.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a completed bundle is stored at the path.
func (s *Store) Exists() bool {
	if _, err := os.Stat(s.path); err != nil {
		return false
	}
	db, err := s.open()
	if err != nil {
		return false
	}
	defer db.Close()

	err = db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(metaKey))
		return err
	})
	return err == nil
}

// Save replaces whatever the store holds with b.
func (s *Store) Save(b *domain.Bundle) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DropAll(); err != nil {
		return fmt.Errorf("clear previous bundle: %w", err)
	}

	wb := db.NewWriteBatch()
	defer wb.Cancel()

	for _, l := range b.Levels() {
		for _, row := range b.Rows(l) {
			val, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("encode row %s: %w", row.Key, err)
			}
			if err := wb.Set(rowKey(row.Key), val); err != nil {
				return fmt.Errorf("write row %s: %w", row.Key, err)
			}
		}
	}

	meta, err := json.Marshal(b.Meta())
	if err != nil {
		return fmt.Errorf("encode bundle meta: %w", err)
	}
	if err := wb.Set([]byte(metaKey), meta); err != nil {
		return fmt.Errorf("write bundle meta: %w", err)
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush bundle: %w", err)
	}
	return nil
}

// Load reads the full bundle into memory.
func (s *Store) Load() (*domain.Bundle, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("%w at %s", ErrNoBundle, s.path)
	}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var (
		meta domain.BundleMeta
		rows []domain.GroupSummary
	)
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w at %s", ErrNoBundle, s.path)
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &meta) }); err != nil {
			return fmt.Errorf("decode bundle meta: %w", err)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(levelPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			var row domain.GroupSummary
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &row) }); err != nil {
				return fmt.Errorf("decode row %s: %w", key, err)
			}
			if err := checkRowKey(key, row.Key); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bundle loaded", "path", s.path, "build_id", meta.BuildID, "rows", len(rows))
	return domain.NewBundle(meta, rows), nil
}

func (s *Store) open() (*badger.DB, error) {
	if err := os.MkdirAll(s.path, 0o750); err != nil {
		return nil, fmt.Errorf("create bundle directory %s: %w", s.path, err)
	}
	opts := badger.DefaultOptions(s.path).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: s.logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open bundle store: %w", err)
	}
	return db, nil
}

func rowKey(k domain.GroupKey) []byte {
	vals := k.Values()
	for i, v := range vals {
		vals[i] = url.PathEscape(v)
	}
	return []byte(levelPrefix + strconv.Itoa(int(k.Level)) + "/" + strings.Join(vals, domain.KeySeparator))
}

// checkRowKey verifies a stored row sits under the key its own GroupKey maps to.
func checkRowKey(stored string, k domain.GroupKey) error {
	rest := strings.TrimPrefix(stored, levelPrefix)
	levelStr, _, ok := strings.Cut(rest, "/")
	if !ok {
		return fmt.Errorf("malformed row key %q", stored)
	}
	if _, err := strconv.Atoi(levelStr); err != nil {
		return fmt.Errorf("malformed row key %q: %w", stored, err)
	}
	if stored != string(rowKey(k)) {
		return fmt.Errorf("row key %q does not match row %s at level %d", stored, k, k.Level)
	}
	return nil
}

// badgerLogger adapts slog.Logger to badger's Logger interface. Badger's
// info chatter goes to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
