package models

import "time"

// ExpenseBreakdown splits a submission's cost by category.
type ExpenseBreakdown struct {
	Seeds          float64 `json:"seeds"`
	Fertilizer     float64 `json:"fertilizer"`
	Pesticides     float64 `json:"pesticides"`
	Labor          float64 `json:"labor"`
	Irrigation     float64 `json:"irrigation"`
	Machinery      float64 `json:"machinery"`
	Transportation float64 `json:"transportation"`
	Storage        float64 `json:"storage"`
	Other          float64 `json:"other"`
}

// Values returns the category amounts in a fixed order.
func (b ExpenseBreakdown) Values() []float64 {
	return []float64{
		b.Seeds, b.Fertilizer, b.Pesticides, b.Labor, b.Irrigation,
		b.Machinery, b.Transportation, b.Storage, b.Other,
	}
}

// Expense is a farmer's declared production cost for one crop and season.
type Expense struct {
	ID             string           `json:"id"`
	FarmerID       string           `json:"farmerId"`
	FarmerName     string           `json:"farmerName"`
	CropType       string           `json:"cropType"`
	CropCategory   string           `json:"cropCategory"`
	Season         string           `json:"season"`
	FarmSize       float64          `json:"farmSize"` // acres
	TotalExpenses  float64          `json:"totalExpenses"`
	ExpensePerAcre float64          `json:"expensePerAcre"`
	Expenses       ExpenseBreakdown `json:"expenses"`
	Notes          string           `json:"notes"`
	Status         string           `json:"status,omitempty"`
	SubmittedAt    time.Time        `json:"submittedAt"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// DemoSummary describes the outcome of a demo data run.
type DemoSummary struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	Farmers       int      `json:"farmers"`
	Expenses      int      `json:"expenses"`
	Crops         []string `json:"crops,omitempty"`
	TotalExpenses float64  `json:"totalExpenses"`
}
