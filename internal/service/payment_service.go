package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weissv/olymp-pay/internal/models"
	"github.com/weissv/olymp-pay/internal/repository"
	"github.com/weissv/olymp-pay/pkg/utils"
	"go.uber.org/zap"
)

const (
	// A transaction changes state at most twice, so a third conflict is not a race.
	maxTransitionAttempts = 3
	publishTimeout        = 5 * time.Second
)

type PaymentService interface {
	CheckPerformTransaction(ctx context.Context, params CheckPerformTransactionParams) (*CheckPerformTransactionResponse, error)
	CreateTransaction(ctx context.Context, params CreateTransactionParams) (*CreateTransactionResponse, error)
	PerformTransaction(ctx context.Context, params TransactionParams) (*PerformTransactionResponse, error)
	CancelTransaction(ctx context.Context, params CancelTransactionParams) (*CancelTransactionResponse, error)
	CheckTransaction(ctx context.Context, params TransactionParams) (*CheckTransactionResponse, error)
	GetStatement(ctx context.Context, params GetStatementParams) (*GetStatementResponse, error)
	ChangePassword(ctx context.Context, params ChangePasswordParams) (*ChangePasswordResponse, error)
}

type Option func(*paymentService)

// WithClock replaces the server clock used for perform and cancel times.
func WithClock(now func() time.Time) Option {
	return func(s *paymentService) {
		s.now = now
	}
}

type paymentService struct {
	registrations repository.RegistrationRepository
	transactions  repository.TransactionRepository
	keys          KeyStore
	publisher     EventPublisher
	logger        *zap.Logger
	now           func() time.Time
}

func NewPaymentService(
	registrations repository.RegistrationRepository,
	transactions repository.TransactionRepository,
	keys KeyStore,
	publisher EventPublisher,
	logger *zap.Logger,
	opts ...Option,
) PaymentService {
	s := &paymentService{
		registrations: registrations,
		transactions:  transactions,
		keys:          keys,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *paymentService) CheckPerformTransaction(ctx context.Context, params CheckPerformTransactionParams) (*CheckPerformTransactionResponse, error) {
	if _, err := s.chargeForAmount(ctx, params.Account.ChargeID, *params.Amount); err != nil {
		return nil, err
	}
	return &CheckPerformTransactionResponse{Allow: true}, nil
}

func (s *paymentService) CreateTransaction(ctx context.Context, params CreateTransactionParams) (*CreateTransactionResponse, error) {
	chargeID := params.Account.ChargeID
	if _, err := s.chargeForAmount(ctx, chargeID, *params.Amount); err != nil {
		return nil, err
	}

	active, err := s.transactions.GetActiveByChargeID(ctx, chargeID)
	switch {
	case err == nil && active.TransactionID != params.ID:
		s.logger.Info("charge already has an active transaction",
			zap.String("charge_id", chargeID),
			zap.String("transaction_id", params.ID),
			zap.String("active_transaction_id", active.TransactionID))
		return nil, utils.ErrCouldNotPerform
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup active transaction for charge %q: %w", chargeID, err)
	}

	stored, err := s.transactions.CreateIfAbsent(ctx, &models.Transaction{
		TransactionID: params.ID,
		ChargeID:      chargeID,
		Amount:        *params.Amount,
		CreateTime:    params.Time,
	})
	if err != nil {
		if errors.Is(err, repository.ErrChargeMismatch) || errors.Is(err, repository.ErrChargeBusy) {
			s.logger.Info("transaction rejected by store",
				zap.String("charge_id", chargeID),
				zap.String("transaction_id", params.ID),
				zap.Error(err))
			return nil, utils.ErrCouldNotPerform
		}
		return nil, fmt.Errorf("create transaction %q: %w", params.ID, err)
	}

	return &CreateTransactionResponse{
		CreateTime:  stored.CreateTime,
		Transaction: stored.TransactionID,
		State:       int(stored.State),
	}, nil
}

func (s *paymentService) PerformTransaction(ctx context.Context, params TransactionParams) (*PerformTransactionResponse, error) {
	tx, step, err := s.fire(ctx, params.ID, models.EventPerform, nil)
	if err != nil {
		return nil, err
	}

	if !step.Replay {
		s.logger.Info("transaction performed",
			zap.String("transaction_id", tx.TransactionID),
			zap.String("charge_id", tx.ChargeID),
			zap.Int64("amount", tx.Amount))
		go s.publish(models.NewPaymentEvent(models.PaymentConfirmed, tx, s.now()))
	}

	return &PerformTransactionResponse{
		Transaction: tx.TransactionID,
		PerformTime: tx.PerformTime,
		State:       int(tx.State),
	}, nil
}

func (s *paymentService) CancelTransaction(ctx context.Context, params CancelTransactionParams) (*CancelTransactionResponse, error) {
	tx, step, err := s.fire(ctx, params.ID, models.EventCancel, params.Reason)
	if err != nil {
		return nil, err
	}

	if !step.Replay {
		s.logger.Info("transaction cancelled",
			zap.String("transaction_id", tx.TransactionID),
			zap.String("charge_id", tx.ChargeID),
			zap.Stringer("from", step.From),
			zap.Intp("reason", tx.Reason))
		if step.From == models.StatePerformed {
			go s.publish(models.NewPaymentEvent(models.PaymentReverted, tx, s.now()))
		}
	}

	return &CancelTransactionResponse{
		Transaction: tx.TransactionID,
		CancelTime:  tx.CancelTime,
		State:       int(tx.State),
	}, nil
}

func (s *paymentService) CheckTransaction(ctx context.Context, params TransactionParams) (*CheckTransactionResponse, error) {
	tx, err := s.getTransaction(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	return &CheckTransactionResponse{
		CreateTime:  tx.CreateTime,
		PerformTime: tx.PerformTime,
		CancelTime:  tx.CancelTime,
		Transaction: tx.TransactionID,
		State:       int(tx.State),
		Reason:      tx.Reason,
	}, nil
}

func (s *paymentService) GetStatement(ctx context.Context, params GetStatementParams) (*GetStatementResponse, error) {
	if *params.From > *params.To {
		return nil, utils.ErrInvalidParams
	}

	transactions, err := s.transactions.ListByCreateTime(ctx, *params.From, *params.To)
	if err != nil {
		return nil, fmt.Errorf("list transactions for statement: %w", err)
	}

	result := make([]StatementTransaction, 0, len(transactions))
	for _, tx := range transactions {
		result = append(result, StatementTransaction{
			ID:          tx.TransactionID,
			Time:        tx.CreateTime,
			Amount:      tx.Amount,
			Account:     StatementAccount{ChargeID: tx.ChargeID},
			CreateTime:  tx.CreateTime,
			PerformTime: tx.PerformTime,
			CancelTime:  tx.CancelTime,
			Transaction: tx.TransactionID,
			State:       int(tx.State),
			Reason:      tx.Reason,
		})
	}

	return &GetStatementResponse{Transactions: result}, nil
}

func (s *paymentService) ChangePassword(ctx context.Context, params ChangePasswordParams) (*ChangePasswordResponse, error) {
	if err := s.keys.Set(ctx, params.Password); err != nil {
		return nil, fmt.Errorf("store merchant key: %w", err)
	}
	s.logger.Warn("merchant key rotated by provider")
	return &ChangePasswordResponse{Success: true}, nil
}

// chargeForAmount resolves a registration and checks the amount against it.
func (s *paymentService) chargeForAmount(ctx context.Context, chargeID string, amount int64) (*models.Registration, error) {
	reg, err := s.registrations.GetByChargeID(ctx, chargeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.ErrChargeNotFound
		}
		return nil, fmt.Errorf("lookup registration %q: %w", chargeID, err)
	}
	if amount != reg.ExpectedAmount {
		s.logger.Info("amount mismatch",
			zap.String("charge_id", chargeID),
			zap.Int64("amount", amount),
			zap.Int64("expected_amount", reg.ExpectedAmount))
		return nil, utils.ErrInvalidAmount
	}
	return reg, nil
}

func (s *paymentService) getTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	tx, err := s.transactions.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction %q: %w", transactionID, err)
	}
	return tx, nil
}

// fire drives one state machine event through the store. On a lost
// compare-and-swap it re-reads the record, so concurrent duplicates converge
// on whatever the winner stored.
func (s *paymentService) fire(ctx context.Context, transactionID string, event models.Event, reason *int) (*models.Transaction, models.Step, error) {
	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		current, err := s.getTransaction(ctx, transactionID)
		if err != nil {
			return nil, models.Step{}, err
		}

		step, err := current.State.Fire(event)
		if err != nil {
			s.logger.Info("transition refused",
				zap.String("transaction_id", transactionID),
				zap.Stringer("state", current.State),
				zap.Stringer("event", event))
			return nil, models.Step{}, utils.ErrCouldNotPerform
		}
		if step.Replay {
			return current, step, nil
		}

		updated, err := s.transactions.CompareAndTransition(ctx, repository.Transition{
			TransactionID: transactionID,
			From:          step.From,
			To:            step.To,
			At:            s.stamp(current.CreateTime),
			Reason:        reason,
			PaymentStatus: step.PaymentStatus(),
		})
		switch {
		case err == nil:
			return updated, step, nil
		case errors.Is(err, repository.ErrStateConflict):
			s.logger.Debug("transition lost a race, re-reading",
				zap.String("transaction_id", transactionID),
				zap.Stringer("event", event),
				zap.Int("attempt", attempt))
		case errors.Is(err, repository.ErrNotFound):
			return nil, models.Step{}, utils.ErrTransactionNotFound
		default:
			return nil, models.Step{}, fmt.Errorf("%s transaction %q: %w", event, transactionID, err)
		}
	}
	return nil, models.Step{}, fmt.Errorf("%s transaction %q: %w after %d attempts",
		event, transactionID, repository.ErrStateConflict, maxTransitionAttempts)
}

// stamp returns the server time in ms, never earlier than createTime.
func (s *paymentService) stamp(createTime int64) int64 {
	now := s.now().UnixMilli()
	if now < createTime {
		return createTime
	}
	return now
}

func (s *paymentService) publish(event models.PaymentEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish payment event",
			zap.Error(err),
			zap.String("event_type", string(event.EventType)),
			zap.String("charge_id", event.ChargeID),
			zap.String("transaction_id", event.TransactionID))
		return
	}
	s.logger.Debug("payment event published",
		zap.String("event_id", event.EventID.String()),
		zap.String("event_type", string(event.EventType)))
}
