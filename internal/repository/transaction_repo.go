package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/weissv/olymp-pay/internal/models"
)

const (
	transactionColumns = `transaction_id, charge_id, amount, state, create_time, perform_time, cancel_time, reason, created_at, updated_at`

	activeChargeIndex = "transactions_active_charge_idx"
	uniqueViolation   = "23505"
)

type pgTransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) TransactionRepository {
	return &pgTransactionRepository{db: db}
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		t     models.Transaction
		state int16
	)
	err := row.Scan(
		&t.TransactionID, &t.ChargeID, &t.Amount, &state, &t.CreateTime,
		&t.PerformTime, &t.CancelTime, &t.Reason, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.State = models.TransactionState(state)
	return &t, nil
}

func (r *pgTransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1`
	t, err := scanTransaction(r.db.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning transaction row: %w", err)
	}
	return t, nil
}

func (r *pgTransactionRepository) GetActiveByChargeID(ctx context.Context, chargeID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE charge_id = $1 AND state IN ($2, $3)`
	t, err := scanTransaction(r.db.QueryRow(ctx, query, chargeID, int(models.StateCreated), int(models.StatePerformed)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning active transaction row: %w", err)
	}
	return t, nil
}

func (r *pgTransactionRepository) CreateIfAbsent(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	query := `
		INSERT INTO transactions (transaction_id, charge_id, amount, state, create_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING ` + transactionColumns
	created, err := scanTransaction(r.db.QueryRow(ctx, query, t.TransactionID, t.ChargeID, t.Amount, int(models.StateCreated), t.CreateTime))
	if err == nil {
		return created, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == activeChargeIndex {
		return nil, ErrChargeBusy
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("error executing insert transaction query: %w", err)
	}

	// ON CONFLICT DO NOTHING returns no row: the id is already stored.
	existing, err := r.GetByTransactionID(ctx, t.TransactionID)
	if err != nil {
		return nil, err
	}
	if existing.ChargeID != t.ChargeID {
		return nil, ErrChargeMismatch
	}
	return existing, nil
}

func (r *pgTransactionRepository) CompareAndTransition(ctx context.Context, tr Transition) (*models.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error starting transition: %w", err)
	}
	defer tx.Rollback(ctx)

	var query string
	args := []any{tr.TransactionID, int(tr.From), int(tr.To), tr.At}
	if tr.To.IsCancelled() {
		query = `
			UPDATE transactions
			SET state = $3, cancel_time = $4, reason = $5, updated_at = NOW()
			WHERE transaction_id = $1 AND state = $2
			RETURNING ` + transactionColumns
		args = append(args, tr.Reason)
	} else {
		query = `
			UPDATE transactions
			SET state = $3, perform_time = $4, updated_at = NOW()
			WHERE transaction_id = $1 AND state = $2
			RETURNING ` + transactionColumns
	}

	updated, err := scanTransaction(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("error updating transaction state: %w", err)
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_id = $1)`, tr.TransactionID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("error checking transaction existence: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrStateConflict
	}

	if tr.PaymentStatus != nil {
		tag, err := tx.Exec(ctx,
			`UPDATE registrations SET payment_status = $2, updated_at = NOW() WHERE charge_id = $1`,
			updated.ChargeID, *tr.PaymentStatus)
		if err != nil {
			return nil, fmt.Errorf("error updating registration payment status: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return nil, fmt.Errorf("registration %q for transaction %q is missing", updated.ChargeID, updated.TransactionID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("error committing transition: %w", err)
	}
	return updated, nil
}

func (r *pgTransactionRepository) ListByCreateTime(ctx context.Context, from, to int64) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE create_time >= $1 AND create_time <= $2
		ORDER BY create_time ASC, transaction_id ASC
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying for transactions by time range: %w", err)
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction row in time range: %w", err)
		}
		transactions = append(transactions, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating over transaction rows: %w", err)
	}

	return transactions, nil
}
