package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weissv/olymp-pay/internal/models"
	"github.com/weissv/olymp-pay/internal/repository"
)

// Store keeps registrations and transactions in process memory. It satisfies
// both RegistrationRepository and TransactionRepository; one mutex makes a
// transition and its registration update a single atomic unit.
type Store struct {
	mu            sync.Mutex
	registrations map[string]*models.Registration // key = charge_id
	transactions  map[string]*models.Transaction  // key = transaction_id
}

func NewStore() *Store {
	return &Store{
		registrations: make(map[string]*models.Registration),
		transactions:  make(map[string]*models.Transaction),
	}
}

func (s *Store) GetByChargeID(ctx context.Context, chargeID string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[chargeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (s *Store) Create(ctx context.Context, reg *models.Registration) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.registrations[reg.ChargeID]; exists {
		return nil, repository.ErrAlreadyExists
	}
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	now := time.Now()
	reg.CreatedAt, reg.UpdatedAt = now, now

	cp := *reg
	s.registrations[reg.ChargeID] = &cp
	return reg, nil
}

func (s *Store) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[transactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyTransaction(t), nil
}

func (s *Store) GetActiveByChargeID(ctx context.Context, chargeID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t := s.activeLocked(chargeID); t != nil {
		return copyTransaction(t), nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) CreateIfAbsent(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.transactions[t.TransactionID]; ok {
		if existing.ChargeID != t.ChargeID {
			return nil, repository.ErrChargeMismatch
		}
		return copyTransaction(existing), nil
	}
	if s.activeLocked(t.ChargeID) != nil {
		return nil, repository.ErrChargeBusy
	}

	now := time.Now()
	stored := &models.Transaction{
		TransactionID: t.TransactionID,
		ChargeID:      t.ChargeID,
		Amount:        t.Amount,
		State:         models.StateCreated,
		CreateTime:    t.CreateTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.transactions[t.TransactionID] = stored
	return copyTransaction(stored), nil
}

func (s *Store) CompareAndTransition(ctx context.Context, tr repository.Transition) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[tr.TransactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if t.State != tr.From {
		return nil, repository.ErrStateConflict
	}

	var reg *models.Registration
	if tr.PaymentStatus != nil {
		if reg, ok = s.registrations[t.ChargeID]; !ok {
			return nil, fmt.Errorf("registration %q for transaction %q is missing", t.ChargeID, t.TransactionID)
		}
	}

	// Nothing below can fail, so the unit is applied as a whole.
	now := time.Now()
	t.State = tr.To
	if tr.To.IsCancelled() {
		t.CancelTime = tr.At
		if tr.Reason != nil {
			reason := *tr.Reason
			t.Reason = &reason
		}
	} else {
		t.PerformTime = tr.At
	}
	t.UpdatedAt = now

	if reg != nil {
		reg.PaymentStatus = *tr.PaymentStatus
		reg.UpdatedAt = now
	}
	return copyTransaction(t), nil
}

func (s *Store) ListByCreateTime(ctx context.Context, from, to int64) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Transaction, 0)
	for _, t := range s.transactions {
		if t.CreateTime >= from && t.CreateTime <= to {
			result = append(result, *copyTransaction(t))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreateTime != result[j].CreateTime {
			return result[i].CreateTime < result[j].CreateTime
		}
		return result[i].TransactionID < result[j].TransactionID
	})
	return result, nil
}

func (s *Store) activeLocked(chargeID string) *models.Transaction {
	for _, t := range s.transactions {
		if t.ChargeID == chargeID && t.State.IsActive() {
			return t
		}
	}
	return nil
}

func copyTransaction(t *models.Transaction) *models.Transaction {
	cp := *t
	if t.Reason != nil {
		reason := *t.Reason
		cp.Reason = &reason
	}
	return &cp
}
