package models

import "time"

// Campaign is a fundraising drive: the table snapshots parsed for it, its
// deadline, and the operator's manual-adjustment accumulator in minor units
// (negative when money was added outside the table, positive when removed).
type Campaign struct {
	ID              uint `gorm:"primaryKey"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	UserID          uint   `gorm:"index;not null;uniqueIndex:idx_user_campaign"`
	Name            string `gorm:"size:255;not null;uniqueIndex:idx_user_campaign"`
	Deadline        *time.Time
	CurrencySymbol  string `gorm:"size:8;default:'Rp'"`
	AdjustmentMinor int64  `gorm:"not null;default:0"`
	Snapshots       []Snapshot `gorm:"foreignKey:CampaignID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
