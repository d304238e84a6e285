package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agritrace/internal/models"
	"agritrace/internal/store"
	"agritrace/internal/util"
)

// TransferRequest asks for a batch to change custodian.
type TransferRequest struct {
	NewOwnerID string             `json:"newOwnerId"`
	Type       string             `json:"type"`
	Metadata   map[string]any     `json:"metadata"`
	Status     models.BatchStatus `json:"status"`
	// ExpectedVersion, when set, must equal the batch version the caller
	// last saw.
	ExpectedVersion int64 `json:"expectedVersion"`
}

// TransferBatch hands a batch to a new owner. The batch read, the
// transfer record and every index copy are committed in one transaction,
// so concurrent transfers of the same batch serialize instead of
// overwriting each other's history.
func (r *Registry) TransferBatch(ctx context.Context, actor Actor, batchID string, req TransferRequest) (*models.Transfer, *models.Batch, error) {
	req.NewOwnerID = strings.TrimSpace(req.NewOwnerID)
	if err := util.ValidateKeySegment(req.NewOwnerID); err != nil {
		return nil, nil, invalid("newOwnerId %v", err)
	}
	if req.Type == "" {
		req.Type = models.TransferOwnership
	}
	if req.Status == "" {
		req.Status = models.StatusTransferred
	}
	if !req.Status.Valid() {
		return nil, nil, invalid("unknown status %q", req.Status)
	}
	if r.cfg.EnforceOwnership && !actor.Authenticated() {
		return nil, nil, fmt.Errorf("%w: login required", ErrUnauthorized)
	}

	var (
		transfer models.Transfer
		updated  models.Batch
	)
	err := r.store.Update(ctx, func(tx store.Txn) error {
		var b models.Batch
		if err := store.GetJSON(tx, batchKey(batchID), &b); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFound("batch %s", batchID)
			}
			return err
		}
		if req.ExpectedVersion != 0 && req.ExpectedVersion != b.Version {
			return fmt.Errorf("%w: batch %s is at version %d, not %d",
				ErrConflict, batchID, b.Version, req.ExpectedVersion)
		}

		from := b.Owner()
		if r.cfg.EnforceOwnership && !actor.CanActFor(from) {
			return forbidden("batch %s is held by %s", batchID, from)
		}
		if req.NewOwnerID == from {
			return invalid("batch %s is already held by %s", batchID, from)
		}
		// statuses outside the known set come from older records and are
		// not checked
		if b.Status.Valid() && !b.Status.CanTransitionTo(req.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, req.Status)
		}

		now := r.now().UTC()
		transfer = models.Transfer{
			ID:           newID("TRANSFER", now),
			BatchID:      batchID,
			From:         from,
			To:           req.NewOwnerID,
			Type:         req.Type,
			Status:       req.Status,
			TransferData: req.Metadata,
			Timestamp:    now,
			TxHash:       displayTxHash(),
		}

		last := transfer
		b.TransferHistory = append(b.TransferHistory, transfer)
		b.LastTransfer = &last
		b.CurrentOwner = req.NewOwnerID
		b.Status = req.Status
		b.Version++
		b.UpdatedAt = now

		if err := store.SetJSON(tx, batchKey(batchID), &b); err != nil {
			return err
		}
		if err := store.SetJSON(tx, transferKey(transfer.ID), &transfer); err != nil {
			return err
		}
		for _, owner := range b.Owners() {
			if err := store.SetJSON(tx, userBatchesKey(owner)+batchID, &b); err != nil {
				return err
			}
		}
		updated = b
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, store.ErrConflict) {
			r.metrics.TransferConflicts.Inc()
		}
		if errors.Is(err, store.ErrConflict) {
			err = fmt.Errorf("%w: batch %s changed concurrently", ErrConflict, batchID)
		}
		return nil, nil, err
	}

	r.metrics.Transfers.WithLabelValues(transfer.Type).Inc()
	r.logger.Info("batch transferred",
		"batch", batchID, "from", transfer.From, "to", transfer.To, "status", transfer.Status)
	return &transfer, &updated, nil
}

// GetTransfer returns a stored transfer record.
func (r *Registry) GetTransfer(ctx context.Context, id string) (*models.Transfer, error) {
	var t models.Transfer
	err := r.store.View(ctx, func(tx store.Txn) error {
		return store.GetJSON(tx, transferKey(id), &t)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("transfer %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get transfer %s: %w", id, err)
	}
	return &t, nil
}
