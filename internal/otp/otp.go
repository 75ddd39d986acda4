package otp

import (
	"time"
)

type OTP struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Phone     string    `gorm:"type:varchar(20);not null;index" json:"phone"`
	Code      string    `gorm:"type:varchar(6);not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Verified  bool      `gorm:"not null;default:false" json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}
