package models

import (
	"time"
)

// AccessToken is the server-side record of an issued access token. Rows are
// never deleted; revocation flips Status to StatusDeleted.
type AccessToken struct {
	ID             string        `gorm:"primaryKey;size:36" json:"id"`
	UserID         uint          `gorm:"not null;index:idx_access_tokens_user_status" json:"user_id"`
	Token          string        `gorm:"type:text;not null" json:"-"`
	ExpiredAt      time.Time     `gorm:"not null" json:"expired_at"`
	Status         Status        `gorm:"not null;index:idx_access_tokens_user_status" json:"status"`
	RefreshTokenID *string       `gorm:"size:36;uniqueIndex" json:"refresh_token_id,omitempty"`
	RefreshToken   *RefreshToken `gorm:"foreignKey:RefreshTokenID" json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName overrides the table name
func (AccessToken) TableName() string {
	return "access_tokens"
}

// BoundTo reports whether refreshID is the refresh token paired with this row.
func (t *AccessToken) BoundTo(refreshID string) bool {
	return t.RefreshTokenID != nil && *t.RefreshTokenID == refreshID
}
