package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentEventType string

const (
	PaymentConfirmed PaymentEventType = "registration.payment.confirmed"
	PaymentReverted  PaymentEventType = "registration.payment.reverted"
)

// PaymentEvent announces a payment_status change of a registration.
type PaymentEvent struct {
	EventID       uuid.UUID        `json:"event_id"`
	EventType     PaymentEventType `json:"event_type"`
	OccurredAt    time.Time        `json:"occurred_at"`
	ChargeID      string           `json:"charge_id"`
	TransactionID string           `json:"transaction_id"`
	Amount        int64            `json:"amount"`
}

func NewPaymentEvent(eventType PaymentEventType, tx *Transaction, at time.Time) PaymentEvent {
	return PaymentEvent{
		EventID:       uuid.New(),
		EventType:     eventType,
		OccurredAt:    at.UTC(),
		ChargeID:      tx.ChargeID,
		TransactionID: tx.TransactionID,
		Amount:        tx.Amount,
	}
}
