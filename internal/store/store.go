// Package store is the key-value layer underneath every registry in the
// service. Keys are plain strings grouped by namespace prefix, values are
// JSON documents. Both backends run multi-key transactions with
// optimistic conflict detection, so a transaction that read a key which
// another transaction changed in the meantime never commits.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"agritrace/internal/config"
)

var (
	// ErrNotFound is returned by Txn.Get when the key is absent.
	ErrNotFound = errors.New("key not found")
	// ErrConflict is returned by Update once the retry budget for
	// conflicting concurrent transactions is exhausted.
	ErrConflict = errors.New("transaction conflict")
	// ErrReadOnly is returned when a View transaction attempts a write.
	ErrReadOnly = errors.New("read-only transaction")
)

// Entry is one key/value pair returned by a prefix scan.
type Entry struct {
	Key   string
	Value []byte
}

// Txn is a single store transaction. Reads inside a writable transaction
// take part in conflict detection.
type Txn interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte) error
	Delete(key string) error
	// Scan returns all entries whose key starts with prefix, in key order.
	Scan(prefix string) ([]Entry, error)
}

// Store is the key-value store contract used by the service layer.
type Store interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Txn) error) error
	// Update runs fn in a read-write transaction and commits it
	// atomically. fn may be invoked more than once when the commit
	// conflicts with a concurrent transaction, so it must not have side
	// effects outside the transaction.
	Update(ctx context.Context, fn func(Txn) error) error
	Close() error
}

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

const defaultMaxRetries = 5

// Open creates the store backend selected in the configuration.
func Open(cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	logger = logger.With("component", "store")
	switch cfg.Backend {
	case BackendSQLite, "":
		return NewSQLStore(cfg, logger)
	case BackendBadger:
		return NewBadgerStore(
			WithDataDir(cfg.Path),
			WithLogger(logger),
			WithMaxRetries(cfg.MaxRetries),
			WithGc(cfg.GC),
		)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// GetJSON reads key and decodes it into v.
func GetJSON(tx Txn, key string, v any) error {
	raw, err := tx.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(tx Txn, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return tx.Set(key, raw)
}

// ScanJSON decodes every value stored under prefix.
func ScanJSON[T any](tx Txn, prefix string) ([]T, error) {
	entries, err := tx.Scan(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		var v T
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix, or "" when no such bound exists.
func prefixEnd(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}
