package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"agritrace/internal/metrics"
	"agritrace/internal/models"
	"agritrace/internal/store"
	"agritrace/internal/util"

	"github.com/shopspring/decimal"
)

var expenseCategories = map[string]bool{
	"seeds": true, "fertilizer": true, "pesticides": true, "labor": true,
	"irrigation": true, "machinery": true, "transportation": true,
	"storage": true, "other": true,
}

// Ledger stores farmer expense submissions.
type Ledger struct {
	store            store.Store
	logger           *slog.Logger
	metrics          *metrics.Metrics
	enforceOwnership bool
	now              func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewLedger creates an expense ledger. A zero seed draws a random one for
// the demo generator.
func NewLedger(s store.Store, enforceOwnership bool, seed int64, logger *slog.Logger, m *metrics.Metrics) *Ledger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if m == nil {
		m = metrics.New(nil)
	}
	s1, s2 := uint64(seed), uint64(seed)^0x9e3779b97f4a7c15
	if seed == 0 {
		s1, s2 = rand.Uint64(), rand.Uint64()
	}
	return &Ledger{
		store:            s,
		logger:           logger.With("component", "ledger"),
		metrics:          m,
		enforceOwnership: enforceOwnership,
		now:              time.Now,
		rng:              rand.New(rand.NewPCG(s1, s2)),
	}
}

// ExpenseInput is a submitted expense form.
type ExpenseInput struct {
	FarmerID      string            `json:"farmerId"`
	FarmerName    string            `json:"farmerName"`
	CropType      string            `json:"cropType"`
	CropCategory  string            `json:"cropCategory"`
	Season        string            `json:"season"`
	FarmSize      Amount            `json:"farmSize"`
	TotalExpenses *Amount           `json:"totalExpenses"`
	Expenses      map[string]Amount `json:"expenses"`
	Notes         string            `json:"notes"`
	SubmittedAt   *time.Time        `json:"submittedAt"`
}

func (in *ExpenseInput) normalize() error {
	in.FarmerID = strings.TrimSpace(in.FarmerID)
	in.CropType = strings.TrimSpace(in.CropType)
	if in.FarmerID == "" {
		return invalid("farmerId is required")
	}
	if err := util.ValidateKeySegment(in.FarmerID); err != nil {
		return invalid("farmerId %v", err)
	}
	if err := util.ValidateLabel(in.CropType); err != nil {
		return invalid("cropType %v", err)
	}
	if err := util.ValidateKeySegment(in.CropType); err != nil {
		return invalid("cropType %v", err)
	}
	if err := util.ValidateAmount(in.FarmSize.Decimal); err != nil {
		return invalid("farmSize %v", err)
	}
	for name, v := range in.Expenses {
		if !expenseCategories[name] {
			return invalid("unknown expense category %q", name)
		}
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

func breakdownFrom(m map[string]Amount) models.ExpenseBreakdown {
	f := func(k string) float64 { return m[k].InexactFloat64() }
	return models.ExpenseBreakdown{
		Seeds:          f("seeds"),
		Fertilizer:     f("fertilizer"),
		Pesticides:     f("pesticides"),
		Labor:          f("labor"),
		Irrigation:     f("irrigation"),
		Machinery:      f("machinery"),
		Transportation: f("transportation"),
		Storage:        f("storage"),
		Other:          f("other"),
	}
}

// perAcre is round(total / farmSize), or zero for a zero farm size.
func perAcre(total, farmSize decimal.Decimal) decimal.Decimal {
	if !farmSize.IsPositive() {
		return decimal.Zero
	}
	return total.DivRound(farmSize, 8).Round(0)
}

// CreateExpense stores a submission with its farmer and crop index copies.
func (l *Ledger) CreateExpense(ctx context.Context, actor Actor, in ExpenseInput) (*models.Expense, error) {
	if in.FarmerID == "" && actor.Authenticated() {
		in.FarmerID = actor.ID
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if l.enforceOwnership {
		if !actor.Authenticated() {
			return nil, fmt.Errorf("%w: login required", ErrUnauthorized)
		}
		if !actor.CanActFor(in.FarmerID) {
			return nil, forbidden("cannot submit expenses for %s", in.FarmerID)
		}
	}

	total := decimal.Zero
	if len(in.Expenses) > 0 {
		for _, v := range in.Expenses {
			total = total.Add(v.Decimal)
		}
	} else if in.TotalExpenses != nil {
		total = in.TotalExpenses.Decimal
	}

	now := l.now().UTC()
	submitted := now
	if in.SubmittedAt != nil {
		submitted = in.SubmittedAt.UTC()
	}
	e := &models.Expense{
		ID:             newID("EXPENSE", now),
		FarmerID:       in.FarmerID,
		FarmerName:     in.FarmerName,
		CropType:       in.CropType,
		CropCategory:   in.CropCategory,
		Season:         in.Season,
		FarmSize:       in.FarmSize.InexactFloat64(),
		TotalExpenses:  total.InexactFloat64(),
		ExpensePerAcre: perAcre(total, in.FarmSize.Decimal).InexactFloat64(),
		Expenses:       breakdownFrom(in.Expenses),
		Notes:          in.Notes,
		Status:         "Submitted",
		SubmittedAt:    submitted,
		CreatedAt:      now,
	}

	err := l.store.Update(ctx, func(tx store.Txn) error {
		return putExpense(tx, e)
	})
	if err != nil {
		return nil, fmt.Errorf("save expense: %w", err)
	}
	l.metrics.ExpensesCreated.Inc()
	l.logger.Info("expense created", "expense", e.ID, "farmer", e.FarmerID)
	return e, nil
}

func putExpense(tx store.Txn, e *models.Expense) error {
	if err := store.SetJSON(tx, expenseKey(e.ID), e); err != nil {
		return err
	}
	if err := store.SetJSON(tx, farmerExpensesKey(e.FarmerID)+e.ID, e); err != nil {
		return err
	}
	return store.SetJSON(tx, cropExpensesKey(e.CropType)+e.ID, e)
}

// replaceExpense writes e over any record with the same id, dropping the
// old record's index copies first.
func replaceExpense(tx store.Txn, e *models.Expense) error {
	var old models.Expense
	err := store.GetJSON(tx, expenseKey(e.ID), &old)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return err
	default:
		if err := tx.Delete(farmerExpensesKey(old.FarmerID) + old.ID); err != nil {
			return err
		}
		if err := tx.Delete(cropExpensesKey(old.CropType) + old.ID); err != nil {
			return err
		}
	}
	return putExpense(tx, e)
}

func (l *Ledger) scan(ctx context.Context, prefix string) ([]models.Expense, error) {
	var out []models.Expense
	err := l.store.View(ctx, func(tx store.Txn) error {
		var err error
		out, err = store.ScanJSON[models.Expense](tx, prefix)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}
	return out, nil
}

// GetAllExpenses lists every submission. It never seeds demo data.
func (l *Ledger) GetAllExpenses(ctx context.Context) ([]models.Expense, error) {
	return l.scan(ctx, expensePrefix)
}

func (l *Ledger) GetExpensesByCrop(ctx context.Context, cropType string) ([]models.Expense, error) {
	return l.scan(ctx, cropExpensesKey(cropType))
}

func (l *Ledger) GetExpensesByFarmer(ctx context.Context, farmerID string) ([]models.Expense, error) {
	return l.scan(ctx, farmerExpensesKey(farmerID))
}

// GetCropTypes returns the distinct crop types, sorted.
func (l *Ledger) GetCropTypes(ctx context.Context) ([]string, error) {
	expenses, err := l.GetAllExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return distinctCrops(expenses), nil
}

func distinctCrops(expenses []models.Expense) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range expenses {
		if !seen[e.CropType] {
			seen[e.CropType] = true
			out = append(out, e.CropType)
		}
	}
	sort.Strings(out)
	return out
}

func summarize(expenses []models.Expense, message string) *models.DemoSummary {
	farmers := map[string]bool{}
	total := decimal.Zero
	for _, e := range expenses {
		farmers[e.FarmerID] = true
		total = total.Add(decimal.NewFromFloat(e.TotalExpenses))
	}
	return &models.DemoSummary{
		Success:       true,
		Message:       message,
		Farmers:       len(farmers),
		Expenses:      len(expenses),
		Crops:         distinctCrops(expenses),
		TotalExpenses: total.InexactFloat64(),
	}
}

func (l *Ledger) generate() []models.Expense {
	l.rngMu.Lock()
	defer l.rngMu.Unlock()
	return GenerateDemoExpenses(l.rng)
}

// InitDemoData seeds the ledger when it is empty and otherwise reports
// what is already there. Calling it repeatedly is safe.
func (l *Ledger) InitDemoData(ctx context.Context) (*models.DemoSummary, error) {
	generated := l.generate()
	var summary *models.DemoSummary
	err := l.store.Update(ctx, func(tx store.Txn) error {
		existing, err := store.ScanJSON[models.Expense](tx, expensePrefix)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			summary = summarize(existing, "Demo data already exists")
			return nil
		}
		for i := range generated {
			if err := putExpense(tx, &generated[i]); err != nil {
				return err
			}
		}
		summary = summarize(generated, "")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("init demo data: %w", err)
	}
	if summary.Message == "" {
		summary.Message = fmt.Sprintf("%d expense records created for %d farmers", summary.Expenses, summary.Farmers)
		l.metrics.DemoGenerations.Inc()
	}
	l.logger.Info("demo data initialized", "expenses", summary.Expenses, "farmers", summary.Farmers)
	return summary, nil
}

// GenerateDemoData writes a fresh synthetic data set. Earlier demo records
// with the same ids are replaced; user submissions are left alone.
func (l *Ledger) GenerateDemoData(ctx context.Context) (*models.DemoSummary, error) {
	generated := l.generate()
	err := l.store.Update(ctx, func(tx store.Txn) error {
		for i := range generated {
			if err := replaceExpense(tx, &generated[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate demo data: %w", err)
	}
	l.metrics.DemoGenerations.Inc()
	summary := summarize(generated, "")
	summary.Message = fmt.Sprintf("%d expense records created for %d farmers", summary.Expenses, summary.Farmers)
	return summary, nil
}

// RefreshDemoData deletes every expense and index copy and regenerates
// the demo set, all in one transaction.
func (l *Ledger) RefreshDemoData(ctx context.Context) (*models.DemoSummary, error) {
	generated := l.generate()
	var cleared int
	err := l.store.Update(ctx, func(tx store.Txn) error {
		cleared = 0
		for _, prefix := range []string{expensePrefix, farmerExpensesPrefix, cropExpensesPrefix} {
			entries, err := tx.Scan(prefix)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if err := tx.Delete(e.Key); err != nil {
					return err
				}
			}
			if prefix == expensePrefix {
				cleared = len(entries)
			}
		}
		for i := range generated {
			if err := putExpense(tx, &generated[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refresh demo data: %w", err)
	}
	l.metrics.DemoGenerations.Inc()
	l.logger.Info("demo data refreshed", "cleared", cleared, "created", len(generated))
	summary := summarize(generated, "")
	summary.Message = fmt.Sprintf("%d expense records created for %d farmers", summary.Expenses, summary.Farmers)
	return summary, nil
}
