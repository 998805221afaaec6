package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration is created by the registration flow before checkout starts.
// The payment core only reads it and flips PaymentStatus.
type Registration struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ChargeID       string    `json:"charge_id" db:"charge_id"`
	ExpectedAmount int64     `json:"expected_amount" db:"expected_amount"`
	PaymentStatus  bool      `json:"payment_status" db:"payment_status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
