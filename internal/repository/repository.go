package repository

import (
	"context"
	"errors"

	"github.com/weissv/olymp-pay/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	// ErrStateConflict means the stored state no longer matches the expected one.
	ErrStateConflict = errors.New("transaction state changed concurrently")
	// ErrChargeMismatch means a transaction id is already bound to another charge.
	ErrChargeMismatch = errors.New("transaction belongs to another charge")
	// ErrChargeBusy means the charge already has an active transaction.
	ErrChargeBusy = errors.New("charge already has an active transaction")
)

// RegistrationRepository is the charge registry owned by the registration flow.
type RegistrationRepository interface {
	// GetByChargeID returns ErrNotFound when no registration carries chargeID.
	GetByChargeID(ctx context.Context, chargeID string) (*models.Registration, error)
	Create(ctx context.Context, reg *models.Registration) (*models.Registration, error)
}

// Transition describes a compare-and-swap of a transaction state.
type Transition struct {
	TransactionID string
	From          models.TransactionState
	To            models.TransactionState
	// At goes to perform_time or cancel_time depending on To.
	At     int64
	Reason *int
	// PaymentStatus, when set, is written to the linked registration in the
	// same atomic unit as the state change.
	PaymentStatus *bool
}

type TransactionRepository interface {
	// GetByTransactionID returns ErrNotFound for unknown ids.
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error)
	// GetActiveByChargeID returns the created or performed transaction of a charge.
	GetActiveByChargeID(ctx context.Context, chargeID string) (*models.Transaction, error)
	// CreateIfAbsent stores t in state created unless a record with the same id
	// exists, in which case the stored record is returned unchanged.
	CreateIfAbsent(ctx context.Context, t *models.Transaction) (*models.Transaction, error)
	// CompareAndTransition applies tr only if the stored state equals tr.From.
	CompareAndTransition(ctx context.Context, tr Transition) (*models.Transaction, error)
	// ListByCreateTime returns transactions with from <= create_time <= to, oldest first.
	ListByCreateTime(ctx context.Context, from, to int64) ([]models.Transaction, error)
}
