package domain

import "time"

// AdminUser represents a dashboard administrator account.
type AdminUser struct {
	ID           int64      `gorm:"primaryKey;column:id" json:"id"`
	Email        string     `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	IsActive     bool       `gorm:"column:is_active;default:true" json:"is_active"`
}

// TableName returns the table name for GORM.
func (AdminUser) TableName() string {
	return "admin_users"
}
