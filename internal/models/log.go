package models

import "time"

// AuditLog records an authenticated request. Path and action are stored
// encrypted.
type AuditLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PathEnc   string    `json:"pathEnc"`
	Method    string    `json:"method"`
	ActionEnc string    `json:"actionEnc"`
	Status    int       `json:"status"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
}

// Backup is the record of an encrypted store snapshot on disk.
type Backup struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	FilePath  string    `json:"filePath"`
	Size      int64     `json:"size"`
	Entries   int       `json:"entries"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}
