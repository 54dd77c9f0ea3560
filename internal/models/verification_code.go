package models

import "time"

// VerificationCode stores a six-digit one-time code bound to an email and the
// flow it was issued for. A row is consumed (deleted) by at most one
// successful redemption; issuing a new code does not touch earlier rows, so
// several live codes may coexist for the same email and purpose.
type VerificationCode struct {
	BaseModel

	Email     string    `gorm:"not null;index" json:"email"`
	Code      string    `gorm:"not null" json:"-"`
	Purpose   string    `gorm:"not null" json:"purpose"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}
