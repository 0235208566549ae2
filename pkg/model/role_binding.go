package model

import "time"

// RoleBinding grants one User a single Role on one Account. The
// (user_id, account_id) pair is unique: role changes are updates, never a
// second row.
type RoleBinding struct {
	UserID    uint      `gorm:"column:user_id;primaryKey"`
	AccountID uint      `gorm:"column:account_id;primaryKey"`
	Role      Role      `gorm:"column:role;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (RoleBinding) TableName() string {
	return "role_bindings"
}
