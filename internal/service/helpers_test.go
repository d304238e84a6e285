package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"agritrace/internal/metrics"
	"agritrace/internal/models"
	"agritrace/internal/store"

	"github.com/stretchr/testify/require"
)

var (
	farmerF1 = Actor{ID: "F1", Role: models.RoleFarmer}
	distD1   = Actor{ID: "D1", Role: models.RoleDistributor}
	adminA   = Actor{ID: "admin", Role: models.RoleAdmin}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewBadgerStore(store.WithLogger(testLogger()), store.WithMaxRetries(100))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestRegistry(t *testing.T, enforce bool) (*Registry, store.Store) {
	t.Helper()
	s := newTestStore(t)
	r := NewRegistry(s, RegistryConfig{
		QRBaseURL:        "https://scan.example",
		EnforceOwnership: enforce,
	}, testLogger(), metrics.New(nil))
	return r, s
}

func createWheat(t *testing.T, r *Registry, actor Actor, farmerID string) *models.Batch {
	t.Helper()
	b, err := r.CreateBatch(context.Background(), actor, BatchInput{
		CropType: "Wheat",
		Quantity: NewAmount(100),
		FarmerID: farmerID,
	})
	require.NoError(t, err)
	return b
}
