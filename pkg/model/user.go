package model

import (
	"fmt"
	"time"
)

// User is an internal identity, keyed by unique email. The password hash is
// owned by the user directory; role bindings reference users by ID only.
type User struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Email        string    `gorm:"column:email;not null;uniqueIndex"`
	FirstName    string    `gorm:"column:first_name"`
	LastName     string    `gorm:"column:last_name"`
	PasswordHash string    `gorm:"column:password_hash"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	IsStaff      bool      `gorm:"column:is_staff;not null;default:false"`
	IsSuperuser  bool      `gorm:"column:is_superuser;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// FullName returns the user's full name.
func (u User) FullName() string {
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}

// ShortName returns the user's short name (first name).
func (u User) ShortName() string {
	return u.FirstName
}
