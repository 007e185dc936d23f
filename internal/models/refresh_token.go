package models

import (
	"time"
)

// RefreshToken represents a session refresh token persisted server-side so it
// can be rotated and revoked. The token value itself travels only in an
// HTTP-only cookie.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	// Define the relationship to User
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// IsUsable reports whether the token can still renew a session.
func (t *RefreshToken) IsUsable(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}
