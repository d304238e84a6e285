package service

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"agritrace/internal/models"
)

const demoFarmers = 92

type cropProfile struct {
	name        string
	category    string
	costPerAcre float64
}

var cropProfiles = []cropProfile{
	{"Basmati Rice", "Cereals", 30000},
	{"Wheat", "Cereals", 28000},
	{"Maize", "Cereals", 35000},
	{"Tomatoes", "Vegetables", 40000},
	{"Onions", "Vegetables", 30000},
	{"Potatoes", "Vegetables", 45000},
	{"Cotton", "Cash Crops", 40000},
	{"Sugarcane", "Cash Crops", 50000},
	{"Jowar", "Millets", 18000},
	{"Bajra", "Millets", 18000},
	{"Mustard", "Oilseeds", 30000},
	{"Sunflower", "Oilseeds", 32000},
	{"Mangoes", "Fruits", 40000},
	{"Grapes", "Fruits", 80000},
	{"Oranges", "Fruits", 35000},
	{"Cabbage", "Vegetables", 35000},
	{"Cauliflower", "Vegetables", 38000},
	{"Carrots", "Vegetables", 33000},
	{"Chillies", "Spices", 42000},
	{"Turmeric", "Spices", 38000},
}

var demoSeasons = []string{"Kharif 2024", "Rabi 2024", "Summer 2024", "Annual 2024", "Perennial 2024"}

var demoFarmerNames = []string{
	"Rajesh Kumar", "Priya Sharma", "Suresh Patel", "Meera Devi", "Vikram Singh", "Anjali Reddy",
	"Ramesh Gupta", "Sunita Yadav", "Mahesh Verma", "Kavita Singh", "Amit Joshi", "Ritu Agarwal",
	"Deepak Sharma", "Neha Kumari", "Sanjay Tiwari", "Pooja Mishra", "Rakesh Jain", "Seema Saxena",
	"Gopal Krishna", "Urmila Devi", "Harish Chandra", "Madhuri Joshi", "Vinod Kumar", "Shobha Rani",
	"Dinesh Chand", "Parvati Devi", "Lakshmi Naidu", "Sunil Reddy", "Padma Kumari", "Anil Desai",
	"Jayshree Patel", "Kiran Rao", "Sudha Nair", "Ravi Shankar", "Geeta Devi", "Mohan Lal",
}

var categoryNotes = map[string]string{
	"Cereals":    "High yielding variety",
	"Vegetables": "Fresh market quality",
	"Cash Crops": "Commercial grade production",
	"Fruits":     "Premium fruit cultivation",
	"Millets":    "Drought resistant variety",
	"Oilseeds":   "Oil extraction quality",
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// demoBreakdown splits total over eight categories. Weights are normalized
// before rounding, so only the rounding residue lands in fertilizer and
// the categories sum exactly to total.
func demoBreakdown(rng *rand.Rand, total float64, category string) models.ExpenseBreakdown {
	seeds := between(rng, 0.10, 0.25)
	if category == "Fruits" {
		seeds = 0
	}
	w := []float64{
		seeds,
		between(rng, 0.25, 0.40), // fertilizer
		between(rng, 0.10, 0.20), // pesticides
		between(rng, 0.25, 0.40), // labor
		between(rng, 0.10, 0.20), // irrigation
		between(rng, 0.02, 0.10), // machinery
		between(rng, 0.01, 0.04), // transportation
		between(rng, 0.005, 0.025),
	}
	var sum float64
	for _, v := range w {
		sum += v
	}
	amounts := make([]float64, len(w))
	var assigned float64
	for i, v := range w {
		if i == 1 {
			continue
		}
		amounts[i] = math.Round(total * v / sum)
		assigned += amounts[i]
	}
	amounts[1] = total - assigned
	return models.ExpenseBreakdown{
		Seeds:          amounts[0],
		Fertilizer:     amounts[1],
		Pesticides:     amounts[2],
		Labor:          amounts[3],
		Irrigation:     amounts[4],
		Machinery:      amounts[5],
		Transportation: amounts[6],
		Storage:        amounts[7],
	}
}

func demoNote(rng *rand.Rand, category string) string {
	pick := func(p float64, yes, no string) string {
		if rng.Float64() < p {
			return yes
		}
		return no
	}
	notes := []string{
		categoryNotes[category],
		pick(0.5, "Organic farming practices", "Conventional farming methods"),
		pick(0.3, "Contract farming", "Open market"),
		pick(0.2, "Certified seeds used", "Traditional variety"),
		pick(0.4, "Drip irrigation system", "Flood irrigation method"),
	}
	if notes[0] == "" {
		notes[0] = "Quality focused cultivation"
	}
	return notes[rng.IntN(len(notes))]
}

// GenerateDemoExpenses builds the synthetic ledger: 1 to 3 submissions for
// each of 92 farmers, dated within 2024.
func GenerateDemoExpenses(rng *rand.Rand) []models.Expense {
	var out []models.Expense
	counter := 1
	for f := 1; f <= demoFarmers; f++ {
		farmerID := fmt.Sprintf("FARMER-%03d", f)
		name := demoFarmerNames[(f-1)%len(demoFarmerNames)]
		for range rng.IntN(3) + 1 {
			crop := cropProfiles[rng.IntN(len(cropProfiles))]
			farmSize := math.Round(between(rng, 0.5, 9.5)*10) / 10
			total := math.Round(crop.costPerAcre * farmSize * (1 + between(rng, -0.2, 0.2)))
			submitted := time.Date(2024, time.Month(rng.IntN(12)+1), rng.IntN(28)+1, 0, 0, 0, 0, time.UTC)

			out = append(out, models.Expense{
				ID:             fmt.Sprintf("EXPENSE-DEMO-%03d", counter),
				FarmerID:       farmerID,
				FarmerName:     name,
				CropType:       crop.name,
				CropCategory:   crop.category,
				Season:         demoSeasons[rng.IntN(len(demoSeasons))],
				FarmSize:       farmSize,
				TotalExpenses:  total,
				ExpensePerAcre: math.Round(total / farmSize),
				Expenses:       demoBreakdown(rng, total, crop.category),
				Notes:          demoNote(rng, crop.category),
				Status:         "Submitted",
				SubmittedAt:    submitted,
				CreatedAt:      submitted,
			})
			counter++
		}
	}
	return out
}
