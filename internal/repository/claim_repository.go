package repository

import (
	"context"
	"errors"
	"fmt"

	"voucher-api/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// claimRepository implements the ClaimRepository interface using PostgreSQL.
// The UNIQUE (voucher_code, order_id) constraint is the durable idempotency
// key; rows are never updated or deleted once written.
type claimRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewClaimRepository creates a new PostgreSQL-backed claim ledger.
func NewClaimRepository(pool *pgxpool.Pool, logger zerolog.Logger) ClaimRepository {
	return &claimRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "claim").Logger(),
	}
}

// Get retrieves a previously recorded claim outcome.
func (r *claimRepository) Get(ctx context.Context, code, orderID string) (*model.ClaimOutcome, error) {
	query := `
		SELECT voucher_code, order_id, success, order_amount,
		       discount_applied, quota_remaining_after, message, claimed_at
		FROM claims
		WHERE voucher_code = $1 AND order_id = $2
	`

	var outcome model.ClaimOutcome
	err := r.pool.QueryRow(ctx, query, code, orderID).Scan(
		&outcome.Code,
		&outcome.OrderID,
		&outcome.Success,
		&outcome.OrderAmount,
		&outcome.DiscountApplied,
		&outcome.QuotaRemainingAfter,
		&outcome.Message,
		&outcome.ClaimedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().
			Err(err).
			Str("code", code).
			Str("order_id", orderID).
			Msg("failed to query claim outcome")
		return nil, fmt.Errorf("failed to query claim outcome: %w", err)
	}

	return &outcome, nil
}

// Insert records an outcome inside the claim transaction so the ledger write
// and the quota decrement commit as one unit.
func (r *claimRepository) Insert(ctx context.Context, tx pgx.Tx, outcome *model.ClaimOutcome) error {
	query := `
		INSERT INTO claims (
			id, voucher_code, order_id, success, order_amount,
			discount_applied, quota_remaining_after, message, claimed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		uuid.New(),
		outcome.Code,
		outcome.OrderID,
		outcome.Success,
		outcome.OrderAmount,
		outcome.DiscountApplied,
		outcome.QuotaRemainingAfter,
		outcome.Message,
		outcome.ClaimedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			r.logger.Debug().
				Str("code", outcome.Code).
				Str("order_id", outcome.OrderID).
				Msg("claim outcome already recorded")
			return ErrDuplicateClaim
		}
		r.logger.Error().
			Err(err).
			Str("code", outcome.Code).
			Str("order_id", outcome.OrderID).
			Msg("failed to insert claim outcome")
		return fmt.Errorf("failed to insert claim outcome: %w", err)
	}

	r.logger.Debug().
		Str("code", outcome.Code).
		Str("order_id", outcome.OrderID).
		Bool("success", outcome.Success).
		Msg("claim outcome recorded")

	return nil
}
