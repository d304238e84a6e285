package models

// JourneyStep is one stage of a batch's path to the consumer.
type JourneyStep struct {
	Stage    string `json:"stage"`
	Location string `json:"location"`
	Date     string `json:"date"`
	Person   string `json:"person"`
	Details  string `json:"details"`
}

// QRData is what a consumer sees after scanning a batch QR code.
type QRData struct {
	ID             string        `json:"id"`
	CropType       string        `json:"cropType"`
	Quantity       float64       `json:"quantity"`
	HarvestDate    string        `json:"harvestDate"`
	Farmer         string        `json:"farmer"`
	FarmLocation   string        `json:"farmLocation"`
	Certifications []string      `json:"certifications"`
	CurrentOwner   string        `json:"currentOwner"`
	Status         string        `json:"status"`
	QRCode         string        `json:"qrCode"`
	Journey        []JourneyStep `json:"journey"`
}
