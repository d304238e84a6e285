package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"agritrace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer_Scenario(t *testing.T) {
	r, _ := newTestRegistry(t, false)
	ctx := context.Background()
	b := createWheat(t, r, Actor{}, "F1")

	tr, updated, err := r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{
		NewOwnerID: "D1",
		Type:       models.TransferFarmerToDistributor,
		Metadata:   map[string]any{"location": "Delhi Warehouse"},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^TRANSFER-\d+-[0-9a-z]{9}$`, tr.ID)
	assert.Equal(t, "F1", tr.From)
	assert.Equal(t, "D1", tr.To)
	assert.Equal(t, models.StatusTransferred, tr.Status)
	assert.Equal(t, int64(2), updated.Version)

	got, err := r.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "D1", got.CurrentOwner)
	require.Len(t, got.TransferHistory, 1)
	assert.Equal(t, "F1", got.TransferHistory[0].From)
	assert.Equal(t, "D1", got.TransferHistory[0].To)
	require.NotNil(t, got.LastTransfer)
	assert.Equal(t, tr.ID, got.LastTransfer.ID)
	assert.Equal(t, got.TransferHistory[len(got.TransferHistory)-1].To, got.CurrentOwner)

	stored, err := r.GetTransfer(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, stored.BatchID)
	assert.Equal(t, "Delhi Warehouse", stored.TransferData["location"])

	_, err = r.GetTransfer(ctx, "TRANSFER-0-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransfer_RefreshesEveryOwnerIndex(t *testing.T) {
	r, _ := newTestRegistry(t, false)
	ctx := context.Background()
	b := createWheat(t, r, Actor{}, "F1")

	_, _, err := r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: "D1"})
	require.NoError(t, err)
	_, _, err = r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: "R1", Status: models.StatusInTransit})
	require.NoError(t, err)

	for _, owner := range []string{"F1", "D1", "R1"} {
		list, err := r.GetUserBatches(ctx, owner)
		require.NoError(t, err)
		require.Len(t, list, 1, owner)
		assert.Equal(t, "R1", list[0].CurrentOwner, owner)
		assert.Equal(t, models.StatusInTransit, list[0].Status, owner)
		assert.Len(t, list[0].TransferHistory, 2, owner)
	}
}

func TestTransfer_Errors(t *testing.T) {
	r, _ := newTestRegistry(t, false)
	ctx := context.Background()
	b := createWheat(t, r, Actor{}, "F1")

	_, _, err := r.TransferBatch(ctx, Actor{}, "BATCH-0-missing", TransferRequest{NewOwnerID: "D1"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: "F1"})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: "D1", Status: "Teleported"})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: "D1", Status: models.StatusSold})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: "D1", ExpectedVersion: 7})
	assert.ErrorIs(t, err, ErrConflict)

	// nothing above changed the batch
	got, err := r.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Empty(t, got.TransferHistory)
}

func TestTransfer_SoldIsTerminal(t *testing.T) {
	r, _ := newTestRegistry(t, false)
	ctx := context.Background()
	b := createWheat(t, r, Actor{}, "F1")

	steps := []struct {
		to     string
		status models.BatchStatus
	}{
		{"D1", models.StatusInTransit},
		{"R1", models.StatusDelivered},
		{"R1-store", models.StatusInStore},
		{"C1", models.StatusSold},
	}
	for _, s := range steps {
		_, _, err := r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: s.to, Status: s.status})
		require.NoError(t, err, s.status)
	}
	_, _, err := r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: "C2"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransfer_OwnershipEnforced(t *testing.T) {
	r, _ := newTestRegistry(t, true)
	ctx := context.Background()
	b := createWheat(t, r, farmerF1, "F1")

	_, _, err := r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: "D1"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = r.TransferBatch(ctx, distD1, b.ID, TransferRequest{NewOwnerID: "D1-other"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = r.TransferBatch(ctx, farmerF1, b.ID, TransferRequest{NewOwnerID: "D1"})
	require.NoError(t, err)

	// a replay by the former owner is refused
	_, _, err = r.TransferBatch(ctx, farmerF1, b.ID, TransferRequest{NewOwnerID: "D1"})
	assert.ErrorIs(t, err, ErrForbidden)

	// a replay by an admin names the current owner
	_, _, err = r.TransferBatch(ctx, adminA, b.ID, TransferRequest{NewOwnerID: "D1"})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = r.TransferBatch(ctx, adminA, b.ID, TransferRequest{NewOwnerID: "R1"})
	require.NoError(t, err)

	got, err := r.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, got.TransferHistory, 2)
}

func TestTransfer_ExpectedVersion(t *testing.T) {
	r, _ := newTestRegistry(t, false)
	ctx := context.Background()
	b := createWheat(t, r, Actor{}, "F1")

	_, updated, err := r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: "D1", ExpectedVersion: b.Version})
	require.NoError(t, err)

	// a second caller still holding version 1 loses
	_, _, err = r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: "D2", ExpectedVersion: b.Version})
	assert.ErrorIs(t, err, ErrConflict)

	_, _, err = r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: "D2", ExpectedVersion: updated.Version})
	assert.NoError(t, err)
}

func TestTransfer_ConcurrentNeverLosesHistory(t *testing.T) {
	r, _ := newTestRegistry(t, false)
	ctx := context.Background()
	b := createWheat(t, r, Actor{}, "F1")

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr, _, err := r.TransferBatch(ctx, Actor{}, b.ID, TransferRequest{NewOwnerID: fmt.Sprintf("D%d", i)})
			if err != nil {
				// only conflicts may surface
				assert.ErrorIs(t, err, ErrConflict)
				return
			}
			mu.Lock()
			succeeded = append(succeeded, tr.ID)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	got, err := r.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	require.NotEmpty(t, succeeded)
	assert.Len(t, got.TransferHistory, len(succeeded))
	assert.Equal(t, int64(1+len(succeeded)), got.Version)

	ids := make([]string, 0, len(got.TransferHistory))
	for i, h := range got.TransferHistory {
		ids = append(ids, h.ID)
		if i > 0 {
			assert.Equal(t, got.TransferHistory[i-1].To, h.From, "custody chain is continuous")
		}
	}
	assert.ElementsMatch(t, succeeded, ids)
	assert.Equal(t, got.TransferHistory[len(got.TransferHistory)-1].To, got.CurrentOwner)
}
