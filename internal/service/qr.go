package service

import (
	"context"
	"errors"
	"strings"

	"agritrace/internal/models"
)

var demoQRCodes = map[string]models.QRData{
	"DEMO001": {
		ID:             "BATCH-DEMO001",
		CropType:       "Basmati Rice",
		Quantity:       1000,
		HarvestDate:    "2024-01-15",
		Farmer:         "Demo Farmer - Rajesh Kumar",
		FarmLocation:   "Punjab, India",
		Certifications: []string{"Organic", "Non-GMO"},
		CurrentOwner:   "Distributor",
		Status:         "In Transit",
		QRCode:         "DEMO001",
		Journey: []models.JourneyStep{
			{Stage: "Farm", Location: "Punjab, India", Date: "2024-01-15", Person: "Rajesh Kumar", Details: "Harvested from organic farm"},
			{Stage: "Distributor", Location: "Delhi Warehouse", Date: "2024-01-18", Person: "Northern Distributors Ltd", Details: "Quality checked and stored at 4°C"},
			{Stage: "In Transit", Location: "En route to Mumbai", Date: "2024-01-20", Person: "Transport Partner", Details: "Refrigerated transport, ETA: 2 days"},
		},
	},
	"DEMO002": {
		ID:             "BATCH-DEMO002",
		CropType:       "Organic Tomatoes",
		Quantity:       500,
		HarvestDate:    "2024-01-20",
		Farmer:         "Demo Farmer - Priya Sharma",
		FarmLocation:   "Maharashtra, India",
		Certifications: []string{"Organic", "Fair Trade"},
		CurrentOwner:   "Retailer",
		Status:         "In Store",
		QRCode:         "DEMO002",
		Journey: []models.JourneyStep{
			{Stage: "Farm", Location: "Maharashtra, India", Date: "2024-01-20", Person: "Priya Sharma", Details: "Harvested fresh organic tomatoes"},
			{Stage: "Distributor", Location: "Mumbai Hub", Date: "2024-01-21", Person: "Fresh Foods Distributors", Details: "Same day processing and dispatch"},
			{Stage: "Retailer", Location: "Mumbai Supermarket", Date: "2024-01-22", Person: "FreshMart Store", Details: "Available for purchase"},
		},
	},
	"DEMO003": {
		ID:             "BATCH-DEMO003",
		CropType:       "Wheat",
		Quantity:       2000,
		HarvestDate:    "2024-01-10",
		Farmer:         "Demo Farmer - Suresh Patel",
		FarmLocation:   "Gujarat, India",
		Certifications: []string{"Quality Assured"},
		CurrentOwner:   "Processing",
		Status:         "Under Processing",
		QRCode:         "DEMO003",
		Journey: []models.JourneyStep{
			{Stage: "Farm", Location: "Gujarat, India", Date: "2024-01-10", Person: "Suresh Patel", Details: "High-quality wheat harvest"},
			{Stage: "Distributor", Location: "Ahmedabad Warehouse", Date: "2024-01-12", Person: "Gujarat Grains Ltd", Details: "Quality testing completed"},
			{Stage: "Processing", Location: "Flour Mill", Date: "2024-01-15", Person: "Modern Mills Pvt Ltd", Details: "Being processed into flour"},
		},
	},
}

var transferStages = map[string]string{
	models.TransferFarmerToDistributor:   "Distributor",
	models.TransferDistributorToRetailer: "Retailer",
	models.TransferRetailerToConsumer:    "Consumer",
}

// Journey renders a batch's custody chain as consumer-facing steps.
func Journey(b *models.Batch) []models.JourneyStep {
	steps := []models.JourneyStep{{
		Stage:    "Farm",
		Location: b.Location,
		Date:     b.HarvestDate,
		Person:   firstNonEmpty(b.Farmer, b.FarmerID),
		Details:  "Harvested " + b.CropType,
	}}
	if steps[0].Date == "" {
		steps[0].Date = b.CreatedAt.Format("2006-01-02")
	}
	for _, t := range b.TransferHistory {
		stage, ok := transferStages[t.Type]
		if !ok {
			stage = string(t.Status)
		}
		loc := stringField(t.TransferData, "location")
		details := "Custody transferred from " + t.From
		if note := stringField(t.TransferData, "notes"); note != "" {
			details = note
		}
		steps = append(steps, models.JourneyStep{
			Stage:    stage,
			Location: loc,
			Date:     t.Timestamp.Format("2006-01-02"),
			Person:   t.To,
			Details:  details,
		})
	}
	return steps
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// LookupQR resolves a scanned code: one of the static demo codes, or the
// id of a real batch.
func (r *Registry) LookupQR(ctx context.Context, code string) (*models.QRData, error) {
	code = strings.TrimSpace(code)
	if d, ok := demoQRCodes[code]; ok {
		return &d, nil
	}
	b, err := r.GetBatch(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("QR code %s", code)
	}
	if err != nil {
		return nil, err
	}
	return &models.QRData{
		ID:             b.ID,
		CropType:       b.CropType,
		Quantity:       b.Quantity,
		HarvestDate:    b.HarvestDate,
		Farmer:         firstNonEmpty(b.Farmer, b.FarmerID),
		FarmLocation:   b.Location,
		Certifications: b.Certifications,
		CurrentOwner:   b.Owner(),
		Status:         string(b.Status),
		QRCode:         b.QRCode,
		Journey:        Journey(b),
	}, nil
}
