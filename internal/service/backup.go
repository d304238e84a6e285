package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"agritrace/internal/models"
	"agritrace/internal/store"
	"agritrace/internal/util"

	"github.com/google/uuid"
)

// Backups writes encrypted snapshots of the domain namespaces to disk and
// restores them.
type Backups struct {
	store      store.Store
	dir        string
	encryptKey string
	logger     *slog.Logger
	now        func() time.Time
}

func NewBackups(s store.Store, dir, encryptKey string, logger *slog.Logger) *Backups {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Backups{
		store:      s,
		dir:        dir,
		encryptKey: encryptKey,
		logger:     logger.With("component", "backups"),
		now:        time.Now,
	}
}

// snapshot is the plaintext content of a backup file.
type snapshot struct {
	Created time.Time         `json:"created"`
	Entries map[string]string `json:"entries"`
}

// Create snapshots every domain entry into backup-<uuid>.bin.
func (b *Backups) Create(ctx context.Context, actor Actor) (*models.Backup, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("backups require an admin")
	}
	now := b.now().UTC()
	snap := snapshot{Created: now, Entries: map[string]string{}}
	err := b.store.View(ctx, func(tx store.Txn) error {
		for _, prefix := range domainPrefixes {
			entries, err := tx.Scan(prefix)
			if err != nil {
				return err
			}
			for _, e := range entries {
				snap.Entries[e.Key] = string(e.Value)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	raw, err := json.Marshal(&snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	enc, err := util.EncryptAES(b.encryptKey, raw)
	if err != nil {
		return nil, fmt.Errorf("encrypt snapshot: %w", err)
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	id := uuid.NewString()
	fileName := fmt.Sprintf("backup-%s.bin", id)
	filePath := filepath.Join(b.dir, fileName)
	if err := os.WriteFile(filePath, enc, 0o600); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}

	rec := &models.Backup{
		ID:        id,
		FileName:  fileName,
		FilePath:  filePath,
		Size:      int64(len(enc)),
		Entries:   len(snap.Entries),
		CreatedBy: actor.ID,
		CreatedAt: now,
	}
	err = b.store.Update(ctx, func(tx store.Txn) error {
		return store.SetJSON(tx, backupKey(id), rec)
	})
	if err != nil {
		_ = os.Remove(filePath)
		return nil, fmt.Errorf("save backup record: %w", err)
	}
	b.logger.Info("backup created", "backup", id, "entries", rec.Entries)
	return rec, nil
}

// List returns the backup records, newest first.
func (b *Backups) List(ctx context.Context) ([]models.Backup, error) {
	var list []models.Backup
	err := b.store.View(ctx, func(tx store.Txn) error {
		var err error
		list, err = store.ScanJSON[models.Backup](tx, backupPrefix)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	slices.SortFunc(list, func(x, y models.Backup) int { return y.CreatedAt.Compare(x.CreatedAt) })
	return list, nil
}

// Get returns a backup record.
func (b *Backups) Get(ctx context.Context, id string) (*models.Backup, error) {
	var rec models.Backup
	err := b.store.View(ctx, func(tx store.Txn) error {
		return store.GetJSON(tx, backupKey(id), &rec)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("backup %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %s: %w", id, err)
	}
	return &rec, nil
}

// Restore replaces every domain entry with the snapshot content in one
// transaction. It returns the number of restored entries.
func (b *Backups) Restore(ctx context.Context, actor Actor, id string) (int, error) {
	if !actor.IsAdmin() {
		return 0, forbidden("backups require an admin")
	}
	rec, err := b.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	enc, err := os.ReadFile(rec.FilePath)
	if err != nil {
		return 0, fmt.Errorf("read backup file: %w", err)
	}
	raw, err := util.DecryptAES(b.encryptKey, enc)
	if err != nil {
		return 0, fmt.Errorf("decrypt backup: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return 0, fmt.Errorf("decode backup: %w", err)
	}
	for key := range snap.Entries {
		if !isDomainKey(key) {
			return 0, invalid("backup %s contains foreign key %q", id, key)
		}
	}

	err = b.store.Update(ctx, func(tx store.Txn) error {
		for _, prefix := range domainPrefixes {
			entries, err := tx.Scan(prefix)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if err := tx.Delete(e.Key); err != nil {
					return err
				}
			}
		}
		for key, val := range snap.Entries {
			if err := tx.Set(key, []byte(val)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("restore backup %s: %w", id, err)
	}
	b.logger.Info("backup restored", "backup", id, "entries", len(snap.Entries), "by", actor.ID)
	return len(snap.Entries), nil
}

func isDomainKey(key string) bool {
	for _, p := range domainPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
