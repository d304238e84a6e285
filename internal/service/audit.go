package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"agritrace/internal/models"
	"agritrace/internal/store"
	"agritrace/internal/util"

	"github.com/google/uuid"
)

// AuditTrail stores request audit records with the path and action
// encrypted at rest.
type AuditTrail struct {
	store      store.Store
	encryptKey string
	now        func() time.Time
}

func NewAuditTrail(s store.Store, encryptKey string) *AuditTrail {
	return &AuditTrail{store: s, encryptKey: encryptKey, now: time.Now}
}

// AuditEvent is one request to record.
type AuditEvent struct {
	UserID    string
	Method    string
	Path      string
	Action    string
	Status    int
	IP        string
	UserAgent string
}

// AuditEntry is a decrypted audit record.
type AuditEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Action    string    `json:"action"`
	Status    int       `json:"status"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a *AuditTrail) Record(ctx context.Context, ev AuditEvent) error {
	encPath, err := util.EncryptString(a.encryptKey, ev.Path)
	if err != nil {
		return fmt.Errorf("encrypt path: %w", err)
	}
	encAction, err := util.EncryptString(a.encryptKey, ev.Action)
	if err != nil {
		return fmt.Errorf("encrypt action: %w", err)
	}
	now := a.now().UTC()
	rec := models.AuditLog{
		ID:        uuid.NewString(),
		UserID:    ev.UserID,
		PathEnc:   encPath,
		Method:    ev.Method,
		ActionEnc: encAction,
		Status:    ev.Status,
		IP:        ev.IP,
		UserAgent: ev.UserAgent,
		CreatedAt: now,
	}
	return a.store.Update(ctx, func(tx store.Txn) error {
		return store.SetJSON(tx, auditKey(now.UnixNano(), rec.ID), &rec)
	})
}

// List returns one page of audit entries, newest first, and the total
// count. An empty userID lists every user.
func (a *AuditTrail) List(ctx context.Context, userID string, page, size int) ([]AuditEntry, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	var logs []models.AuditLog
	err := a.store.View(ctx, func(tx store.Txn) error {
		var err error
		logs, err = store.ScanJSON[models.AuditLog](tx, auditPrefix)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list audit log: %w", err)
	}
	if userID != "" {
		logs = slices.DeleteFunc(logs, func(l models.AuditLog) bool { return l.UserID != userID })
	}
	slices.Reverse(logs)

	total := len(logs)
	start := min((page-1)*size, total)
	end := min(start+size, total)
	out := make([]AuditEntry, 0, end-start)
	for _, l := range logs[start:end] {
		out = append(out, AuditEntry{
			ID:        l.ID,
			UserID:    l.UserID,
			Method:    l.Method,
			Path:      util.DecryptString(a.encryptKey, l.PathEnc),
			Action:    util.DecryptString(a.encryptKey, l.ActionEnc),
			Status:    l.Status,
			IP:        l.IP,
			UserAgent: l.UserAgent,
			CreatedAt: l.CreatedAt,
		})
	}
	return out, total, nil
}
