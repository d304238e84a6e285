package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agritrace/internal/config"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// kvEntry is one row of the key-value table. Version is bumped on every
// write and compared on conditional writes.
type kvEntry struct {
	Key       string `gorm:"column:kv_key;primaryKey;size:512"`
	Value     string `gorm:"type:text;not null"`
	Version   int64  `gorm:"not null;default:1"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv_entries" }

// errStale marks a conditional write that lost against another
// transaction; Update retries on it.
var errStale = errors.New("stale read")

// SQLStore keeps all entries in one SQLite table through gorm.
type SQLStore struct {
	db         *gorm.DB
	logger     *slog.Logger
	maxRetries int
}

// NewSQLStore opens (and migrates) the SQLite database at cfg.Path.
func NewSQLStore(cfg config.StoreConfig, log *slog.Logger) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	gormLogger := logger.Default
	if !cfg.LogMode {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path+"?_busy_timeout=5000"), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	// connection pool
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL;")
	_, _ = sqlDB.Exec("PRAGMA synchronous = NORMAL;")

	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &SQLStore{db: db, logger: log, maxRetries: maxRetries}, nil
}

func (s *SQLStore) View(ctx context.Context, fn func(Txn) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newSQLTxn(tx, true))
	})
}

func (s *SQLStore) Update(ctx context.Context, fn func(Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(newSQLTxn(tx, false))
		})
		if !isRetryable(err) {
			return err
		}
		if attempt >= s.maxRetries {
			s.logger.Warn("giving up on conflicting transaction", "attempts", attempt+1)
			return ErrConflict
		}
		s.logger.Debug("retrying conflicting transaction", "attempt", attempt+1, "error", err)
		// writers queue on the database lock; back off a little
		time.Sleep(time.Duration(attempt+1) * time.Millisecond)
	}
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errStale) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

type sqlTxn struct {
	tx       *gorm.DB
	readOnly bool
	// versions observed by this transaction; 0 means observed as absent
	seen map[string]int64
}

func newSQLTxn(tx *gorm.DB, readOnly bool) *sqlTxn {
	return &sqlTxn{tx: tx, readOnly: readOnly, seen: make(map[string]int64)}
}

func (t *sqlTxn) Get(key string) ([]byte, error) {
	var e kvEntry
	err := t.tx.Where("kv_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		t.seen[key] = 0
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.seen[key] = e.Version
	return []byte(e.Value), nil
}

func (t *sqlTxn) Set(key string, val []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	now := time.Now()
	version, seen := t.seen[key]
	switch {
	case seen && version > 0:
		res := t.tx.Model(&kvEntry{}).
			Where("kv_key = ? AND version = ?", key, version).
			Updates(map[string]any{
				"value":      string(val),
				"version":    version + 1,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%s: %w", key, errStale)
		}
		t.seen[key] = version + 1
	case seen:
		err := t.tx.Create(&kvEntry{Key: key, Value: string(val), Version: 1, UpdatedAt: now}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%s: %w", key, errStale)
		}
		if err != nil {
			return err
		}
		t.seen[key] = 1
	default:
		err := t.tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "kv_key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"value":      string(val),
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			}),
		}).Create(&kvEntry{Key: key, Value: string(val), Version: 1, UpdatedAt: now}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTxn) Delete(key string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	q := t.tx.Where("kv_key = ?", key)
	version, seen := t.seen[key]
	if seen && version > 0 {
		q = q.Where("version = ?", version)
	}
	res := q.Delete(&kvEntry{})
	if res.Error != nil {
		return res.Error
	}
	if seen && version > 0 && res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", key, errStale)
	}
	t.seen[key] = 0
	return nil
}

func (t *sqlTxn) Scan(prefix string) ([]Entry, error) {
	q := t.tx.Model(&kvEntry{}).Where("kv_key >= ?", prefix)
	if end := prefixEnd(prefix); end != "" {
		q = q.Where("kv_key < ?", end)
	}
	var rows []kvEntry
	if err := q.Order("kv_key ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		t.seen[r.Key] = r.Version
		out = append(out, Entry{Key: r.Key, Value: []byte(r.Value)})
	}
	return out, nil
}
