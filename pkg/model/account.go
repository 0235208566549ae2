package model

import "time"

// Account represents a linked external eBay seller account.
type Account struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement"`
	ExternalID  string    `gorm:"column:external_id;not null;uniqueIndex"`
	DisplayName string    `gorm:"column:display_name"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string {
	return "accounts"
}

// Label returns the display name if set, otherwise the external identifier.
func (a Account) Label() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.ExternalID
}
