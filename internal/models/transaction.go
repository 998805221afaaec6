package models

import (
	"time"
)

type Transaction struct {
	TransactionID string           `json:"transaction_id" db:"transaction_id"`
	ChargeID      string           `json:"charge_id" db:"charge_id"`
	Amount        int64            `json:"amount" db:"amount"`
	State         TransactionState `json:"state" db:"state"`
	CreateTime    int64            `json:"create_time" db:"create_time"`
	PerformTime   int64            `json:"perform_time" db:"perform_time"`
	CancelTime    int64            `json:"cancel_time" db:"cancel_time"`
	Reason        *int             `json:"reason,omitempty" db:"reason"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}
