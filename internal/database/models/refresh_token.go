package models

import (
	"time"
)

// RefreshToken is the stored half of a remember-me pair. It is owned by the
// access token whose RefreshTokenID points at it.
type RefreshToken struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiredAt time.Time `gorm:"not null" json:"expired_at"`
	Status    Status    `gorm:"not null" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
