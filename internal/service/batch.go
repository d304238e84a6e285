package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"agritrace/internal/metrics"
	"agritrace/internal/models"
	"agritrace/internal/store"
	"agritrace/internal/util"

	"github.com/shopspring/decimal"
)

// RegistryConfig tunes the batch registry.
type RegistryConfig struct {
	QRBaseURL string
	// EnforceOwnership requires a verified identity for batch creation
	// and restricts transfers to the current owner (or an admin).
	EnforceOwnership bool
}

// Registry stores batches and moves them between owners.
type Registry struct {
	store   store.Store
	cfg     RegistryConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRegistry(s store.Store, cfg RegistryConfig, logger *slog.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if m == nil {
		m = metrics.New(nil)
	}
	cfg.QRBaseURL = strings.TrimRight(cfg.QRBaseURL, "/")
	return &Registry{
		store:   s,
		cfg:     cfg,
		logger:  logger.With("component", "registry"),
		metrics: m,
		now:     time.Now,
	}
}

// BatchInput is the farmer-supplied part of a new batch.
type BatchInput struct {
	CropType       string            `json:"cropType"`
	CropCategory   string            `json:"cropCategory"`
	Quantity       Amount            `json:"quantity"`
	HarvestDate    string            `json:"harvestDate"`
	Location       string            `json:"location"`
	FarmerID       string            `json:"farmerId"`
	Farmer         string            `json:"farmer"`
	Certifications []string          `json:"certifications"`
	Expenses       map[string]Amount `json:"expenses"`
	TotalExpenses  *Amount           `json:"totalExpenses"`
	SaleType       string            `json:"saleType"`
	TargetBuyer    string            `json:"targetBuyer"`
	BuyerName      string            `json:"buyerName"`
}

func (in *BatchInput) normalize() error {
	in.CropType = strings.TrimSpace(in.CropType)
	in.FarmerID = strings.TrimSpace(in.FarmerID)
	if err := util.ValidateLabel(in.CropType); err != nil {
		return invalid("cropType %v", err)
	}
	if in.FarmerID != "" {
		if err := util.ValidateKeySegment(in.FarmerID); err != nil {
			return invalid("farmerId %v", err)
		}
	}
	if err := util.ValidateAmount(in.Quantity.Decimal); err != nil {
		return invalid("quantity %v", err)
	}
	if in.HarvestDate != "" {
		if err := util.ValidateDate(in.HarvestDate); err != nil {
			return invalid("harvestDate: %v", err)
		}
	}
	for name, v := range in.Expenses {
		if err := util.ValidateAmount(v.Decimal); err != nil {
			return invalid("expense %q %v", name, err)
		}
	}
	if in.TotalExpenses != nil {
		if err := util.ValidateAmount(in.TotalExpenses.Decimal); err != nil {
			return invalid("totalExpenses %v", err)
		}
	}
	return nil
}

// certificationSet trims and de-duplicates tags, keeping first-seen order.
func certificationSet(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// CreateBatch registers a new batch owned by its farmer.
func (r *Registry) CreateBatch(ctx context.Context, actor Actor, in BatchInput) (*models.Batch, error) {
	if in.FarmerID == "" && actor.Authenticated() {
		in.FarmerID = actor.ID
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if in.FarmerID == "" {
		return nil, invalid("farmerId is required")
	}
	if r.cfg.EnforceOwnership {
		if !actor.Authenticated() {
			return nil, fmt.Errorf("%w: login required", ErrUnauthorized)
		}
		if !actor.CanActFor(in.FarmerID) {
			return nil, forbidden("cannot create batches for %s", in.FarmerID)
		}
		if !actor.IsAdmin() && actor.Role != models.RoleFarmer {
			return nil, forbidden("only farmers create batches")
		}
	}

	now := r.now().UTC()
	id := newID("BATCH", now)

	var expenses map[string]float64
	total := decimal.Zero
	if len(in.Expenses) > 0 {
		expenses = make(map[string]float64, len(in.Expenses))
		costs := make([]Amount, 0, len(in.Expenses))
		for name, v := range in.Expenses {
			expenses[name] = v.InexactFloat64()
			costs = append(costs, v)
		}
		total = sumAmounts(costs...)
	} else if in.TotalExpenses != nil {
		total = in.TotalExpenses.Decimal
	}

	batch := &models.Batch{
		ID:              id,
		CropType:        in.CropType,
		CropCategory:    in.CropCategory,
		Quantity:        in.Quantity.InexactFloat64(),
		HarvestDate:     in.HarvestDate,
		Location:        in.Location,
		FarmerID:        in.FarmerID,
		Farmer:          in.Farmer,
		Status:          models.StatusCreated,
		CurrentOwner:    in.FarmerID,
		Certifications:  certificationSet(in.Certifications),
		Expenses:        expenses,
		TotalExpenses:   total.InexactFloat64(),
		SaleType:        in.SaleType,
		TargetBuyer:     in.TargetBuyer,
		BuyerName:       in.BuyerName,
		QRCode:          r.cfg.QRBaseURL + "/" + id,
		TxHash:          displayTxHash(),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
		TransferHistory: []models.Transfer{},
	}

	err := r.store.Update(ctx, func(tx store.Txn) error {
		if err := store.SetJSON(tx, batchKey(id), batch); err != nil {
			return err
		}
		return store.SetJSON(tx, userBatchesKey(batch.FarmerID)+id, batch)
	})
	if err != nil {
		return nil, fmt.Errorf("save batch: %w", err)
	}

	r.metrics.BatchesCreated.Inc()
	r.logger.Info("batch created", "batch", id, "farmer", batch.FarmerID)
	return batch, nil
}

// GetUserBatches returns every batch the owner holds or has held.
func (r *Registry) GetUserBatches(ctx context.Context, ownerID string) ([]models.Batch, error) {
	var batches []models.Batch
	err := r.store.View(ctx, func(tx store.Txn) error {
		var err error
		batches, err = store.ScanJSON[models.Batch](tx, userBatchesKey(ownerID))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list batches for %s: %w", ownerID, err)
	}
	return batches, nil
}

// GetBatch returns the batch with the given id.
func (r *Registry) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	var b models.Batch
	err := r.store.View(ctx, func(tx store.Txn) error {
		return store.GetJSON(tx, batchKey(id), &b)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("batch %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get batch %s: %w", id, err)
	}
	return &b, nil
}
