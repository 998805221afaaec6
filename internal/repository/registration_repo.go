package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/weissv/olymp-pay/internal/models"
)

type pgRegistrationRepository struct {
	db *pgxpool.Pool
}

func NewRegistrationRepository(db *pgxpool.Pool) RegistrationRepository {
	return &pgRegistrationRepository{db: db}
}

func (r *pgRegistrationRepository) GetByChargeID(ctx context.Context, chargeID string) (*models.Registration, error) {
	query := `
		SELECT id, charge_id, expected_amount, payment_status, created_at, updated_at
		FROM registrations
		WHERE charge_id = $1
	`
	var reg models.Registration
	err := r.db.QueryRow(ctx, query, chargeID).Scan(
		&reg.ID, &reg.ChargeID, &reg.ExpectedAmount, &reg.PaymentStatus, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning registration row: %w", err)
	}
	return &reg, nil
}

func (r *pgRegistrationRepository) Create(ctx context.Context, reg *models.Registration) (*models.Registration, error) {
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	query := `
		INSERT INTO registrations (id, charge_id, expected_amount, payment_status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, reg.ID, reg.ChargeID, reg.ExpectedAmount, reg.PaymentStatus).
		Scan(&reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("error executing insert registration query: %w", err)
	}
	return reg, nil
}
