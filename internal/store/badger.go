package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

type BadgerOptionFunc func(*BadgerStore)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) BadgerOptionFunc {
	return func(b *BadgerStore) {
		b.logger = logger
	}
}

// WithDataDir specifies the data directory. An empty directory keeps all
// data in memory.
func WithDataDir(dataDir string) BadgerOptionFunc {
	return func(b *BadgerStore) {
		b.dataDir = dataDir
	}
}

// WithMaxRetries specifies how often a conflicting Update is retried
func WithMaxRetries(n int) BadgerOptionFunc {
	return func(b *BadgerStore) {
		if n > 0 {
			b.maxRetries = n
		}
	}
}

// WithGc specifies whether value log garbage collection is enabled
func WithGc(enabled bool) BadgerOptionFunc {
	return func(b *BadgerStore) {
		b.gcEnabled = enabled
	}
}

// BadgerStore keeps all entries in a badger database.
type BadgerStore struct {
	db         *badger.DB
	logger     *slog.Logger
	dataDir    string
	maxRetries int
	gcEnabled  bool
	gcTicker   *time.Ticker
	gcStopCh   chan struct{}
	gcWg       sync.WaitGroup
}

// NewBadgerStore opens a badger database.
func NewBadgerStore(opts ...BadgerOptionFunc) (*BadgerStore, error) {
	s := &BadgerStore{
		maxRetries: defaultMaxRetries,
		gcEnabled:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var badgerOpts badger.Options
	if s.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").
			WithInMemory(true).
			WithMemTableSize(16 << 20)
		// nothing to collect without a value log on disk
		s.gcEnabled = false
	} else {
		if _, err := os.Stat(s.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read data dir: %w", err)
			}
			if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(s.dataDir).
			WithCompression(options.Snappy)
	}
	badgerOpts = badgerOpts.
		WithLogger(newBadgerLogger(s.logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s.db = db

	if s.gcEnabled {
		s.gcTicker = time.NewTicker(5 * time.Minute)
		s.gcStopCh = make(chan struct{})
		s.gcWg.Add(1)
		go s.valueLogGc(s.gcTicker, s.gcStopCh)
	}
	return s, nil
}

func (s *BadgerStore) valueLogGc(t *time.Ticker, stop <-chan struct{}) {
	defer s.gcWg.Done()
	for {
		select {
		case <-t.C:
			for {
				err := s.db.RunValueLogGC(0.5)
				if err == nil {
					// Run it again if it just rewrote a file
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					s.logger.Warn("value log GC failure", "error", err)
				}
				break
			}
		case <-stop:
			return
		}
	}
}

func (s *BadgerStore) View(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *badger.Txn) error {
		return fn(&badgerTxn{tx: tx, readOnly: true})
	})
}

func (s *BadgerStore) Update(ctx context.Context, fn func(Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(func(tx *badger.Txn) error {
			return fn(&badgerTxn{tx: tx})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if attempt >= s.maxRetries {
			s.logger.Warn("giving up on conflicting transaction", "attempts", attempt+1)
			return ErrConflict
		}
		s.logger.Debug("retrying conflicting transaction", "attempt", attempt+1)
	}
}

// Close stops background GC and closes the database
func (s *BadgerStore) Close() error {
	if s.gcTicker != nil {
		s.gcTicker.Stop()
		close(s.gcStopCh)
		s.gcWg.Wait()
		s.gcTicker = nil
	}
	return s.db.Close()
}

type badgerTxn struct {
	tx       *badger.Txn
	readOnly bool
}

func (t *badgerTxn) Get(key string) ([]byte, error) {
	item, err := t.tx.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) Set(key string, val []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	return t.tx.Set([]byte(key), val)
}

func (t *badgerTxn) Delete(key string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	return t.tx.Delete([]byte(key))
}

func (t *badgerTxn) Scan(prefix string) ([]Entry, error) {
	p := []byte(prefix)
	it := t.tx.NewIterator(badger.IteratorOptions{
		Prefix:         p,
		PrefetchValues: true,
		PrefetchSize:   100,
	})
	defer it.Close()
	var out []Entry
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: string(item.KeyCopy(nil)), Value: val})
	}
	return out, nil
}

// badgerLogger routes badger's printf-style logging to slog.
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (b *badgerLogger) Infof(msg string, args ...any) {
	b.logger.Info(fmt.Sprintf(msg, args...))
}

func (b *badgerLogger) Warningf(msg string, args ...any) {
	b.logger.Warn(fmt.Sprintf(msg, args...))
}

func (b *badgerLogger) Debugf(msg string, args ...any) {
	b.logger.Debug(fmt.Sprintf(msg, args...))
}

func (b *badgerLogger) Errorf(msg string, args ...any) {
	b.logger.Error(fmt.Sprintf(msg, args...))
}
