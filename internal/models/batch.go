package models

import "time"

// BatchStatus is the lifecycle label of a batch.
type BatchStatus string

const (
	StatusCreated     BatchStatus = "Created"
	StatusListed      BatchStatus = "Listed"
	StatusTransferred BatchStatus = "Transferred"
	StatusInTransit   BatchStatus = "In Transit"
	StatusProcessed   BatchStatus = "Processed by Distributor"
	StatusDelivered   BatchStatus = "Delivered"
	StatusInStore     BatchStatus = "In Store"
	StatusSold        BatchStatus = "Sold"
)

// legal next states; Sold is terminal
var statusTransitions = map[BatchStatus][]BatchStatus{
	StatusCreated:     {StatusListed, StatusTransferred, StatusInTransit},
	StatusListed:      {StatusTransferred, StatusInTransit},
	StatusTransferred: {StatusTransferred, StatusListed, StatusProcessed, StatusInTransit, StatusDelivered},
	StatusProcessed:   {StatusTransferred, StatusListed, StatusInTransit},
	StatusInTransit:   {StatusTransferred, StatusDelivered},
	StatusDelivered:   {StatusTransferred, StatusListed, StatusInStore},
	StatusInStore:     {StatusTransferred, StatusSold},
	StatusSold:        nil,
}

// Valid reports whether s is one of the known statuses.
func (s BatchStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether a batch in status s may move to next.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, st := range statusTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// Batch is one harvested lot of a crop and its chain of custody.
type Batch struct {
	ID              string             `json:"id"`
	CropType        string             `json:"cropType"`
	CropCategory    string             `json:"cropCategory,omitempty"`
	Quantity        float64            `json:"quantity"` // kg
	HarvestDate     string             `json:"harvestDate,omitempty"`
	Location        string             `json:"location,omitempty"`
	FarmerID        string             `json:"farmerId"`
	Farmer          string             `json:"farmer,omitempty"`
	Status          BatchStatus        `json:"status"`
	CurrentOwner    string             `json:"currentOwner"`
	Certifications  []string           `json:"certifications"`
	Expenses        map[string]float64 `json:"expenses,omitempty"`
	TotalExpenses   float64            `json:"totalExpenses"`
	SaleType        string             `json:"saleType,omitempty"`
	TargetBuyer     string             `json:"targetBuyer,omitempty"`
	BuyerName       string             `json:"buyerName,omitempty"`
	QRCode          string             `json:"qrCode"`
	TxHash          string             `json:"txHash"` // display token only
	Version         int64              `json:"version"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
	LastTransfer    *Transfer          `json:"lastTransfer,omitempty"`
	TransferHistory []Transfer         `json:"transferHistory"`
}

// Owner returns the current custodian, falling back to the farmer for
// records written before currentOwner existed.
func (b *Batch) Owner() string {
	if b.CurrentOwner != "" {
		return b.CurrentOwner
	}
	return b.FarmerID
}

// Owners lists every identity that has held the batch, in custody order.
func (b *Batch) Owners() []string {
	seen := map[string]bool{}
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	add(b.FarmerID)
	for _, t := range b.TransferHistory {
		add(t.From)
		add(t.To)
	}
	add(b.CurrentOwner)
	return out
}

const (
	TransferOwnership             = "ownership_transfer"
	TransferFarmerToDistributor   = "farmer_to_distributor"
	TransferDistributorToRetailer = "distributor_to_retailer"
	TransferRetailerToConsumer    = "retailer_to_consumer"
)

// Transfer is an immutable record of a batch changing custodian.
type Transfer struct {
	ID           string         `json:"id"`
	BatchID      string         `json:"batchId"`
	From         string         `json:"from"`
	To           string         `json:"to"`
	Type         string         `json:"type"`
	Status       BatchStatus    `json:"status"`
	TransferData map[string]any `json:"transferData,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	TxHash       string         `json:"txHash"`
}
