package models

import (
	"time"

	"gorm.io/datatypes"
)

// Snapshot is one uploaded table image together with the parse outcome. Rows
// holds the reconstructed per-entry breakdown as JSON so the front-end can
// render it without re-running recognition.
type Snapshot struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CampaignID  uint     `gorm:"index;not null"`
	Campaign    Campaign `gorm:"foreignKey:CampaignID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	FileName    string   `gorm:"size:255;not null"`
	StorePath   string   `gorm:"column:store_path;size:512"`
	ContentType string   `gorm:"size:128"`
	TotalMinor  int64    `gorm:"not null;default:0"`
	RowCount    int      `gorm:"not null;default:0"`
	Rows        datatypes.JSON
	// Mark snapshot as failed for recognition (keep the record so the
	// operator can review the image)
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
