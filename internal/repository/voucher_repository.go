package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voucher-api/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const pgUniqueViolation = "23505"

const voucherColumns = `
	id, code, discount_type, discount_value, min_spend,
	start_at, end_at, quota_total, quota_remaining, status,
	created_at, updated_at
`

// voucherRepository implements the VoucherRepository interface using PostgreSQL.
type voucherRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewVoucherRepository creates a new PostgreSQL-backed voucher repository.
func NewVoucherRepository(pool *pgxpool.Pool, logger zerolog.Logger) VoucherRepository {
	return &voucherRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "voucher").Logger(),
	}
}

// BeginTx starts the transaction that scopes a claim's critical section.
func (r *voucherRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// GetByCode retrieves a voucher by its code without locking.
func (r *voucherRepository) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	query := `
		SELECT ` + voucherColumns + `
		FROM vouchers
		WHERE code = $1
	`

	return r.scanVoucher(ctx, r.pool.QueryRow(ctx, query, code), code)
}

// GetByCodeForUpdate retrieves a voucher by code and locks its row. The row
// lock serialises claims per code; rows for other codes stay unlocked.
func (r *voucherRepository) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Voucher, error) {
	query := `
		SELECT ` + voucherColumns + `
		FROM vouchers
		WHERE code = $1
		FOR UPDATE
	`

	return r.scanVoucher(ctx, tx.QueryRow(ctx, query, code), code)
}

func (r *voucherRepository) scanVoucher(ctx context.Context, row pgx.Row, code string) (*model.Voucher, error) {
	var v model.Voucher
	err := row.Scan(
		&v.ID,
		&v.Code,
		&v.DiscountType,
		&v.DiscountValue,
		&v.MinSpend,
		&v.StartAt,
		&v.EndAt,
		&v.QuotaTotal,
		&v.QuotaRemaining,
		&v.Status,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("code", code).Msg("voucher not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query voucher")
		return nil, fmt.Errorf("failed to query voucher: %w", err)
	}

	return &v, nil
}

// DecrementQuota atomically decrements quota_remaining, guarded against
// going negative even if a race slipped past the row lock.
func (r *voucherRepository) DecrementQuota(ctx context.Context, tx pgx.Tx, code string) (int, bool, error) {
	query := `
		UPDATE vouchers
		SET quota_remaining = quota_remaining - 1,
		    updated_at = now()
		WHERE code = $1 AND quota_remaining > 0
		RETURNING quota_remaining
	`

	var remaining int
	err := tx.QueryRow(ctx, query, code).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("code", code).Msg("conditional decrement found no quota")
			return 0, false, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to decrement quota")
		return 0, false, fmt.Errorf("failed to decrement quota: %w", err)
	}

	r.logger.Debug().
		Str("code", code).
		Int("quota_remaining", remaining).
		Msg("quota decremented")

	return remaining, true, nil
}

// ListActive retrieves claimable vouchers ordered by code.
func (r *voucherRepository) ListActive(ctx context.Context, now time.Time) ([]model.Voucher, error) {
	query := `
		SELECT ` + voucherColumns + `
		FROM vouchers
		WHERE status = $1
		  AND start_at <= $2
		  AND end_at >= $2
		  AND quota_remaining > 0
		ORDER BY code ASC
	`

	rows, err := r.pool.Query(ctx, query, model.VoucherStatusActive, now)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query active vouchers")
		return nil, fmt.Errorf("failed to query active vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []model.Voucher
	for rows.Next() {
		var v model.Voucher
		err := rows.Scan(
			&v.ID,
			&v.Code,
			&v.DiscountType,
			&v.DiscountValue,
			&v.MinSpend,
			&v.StartAt,
			&v.EndAt,
			&v.QuotaTotal,
			&v.QuotaRemaining,
			&v.Status,
			&v.CreatedAt,
			&v.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan voucher row")
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		vouchers = append(vouchers, v)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating voucher rows")
		return nil, fmt.Errorf("error iterating vouchers: %w", err)
	}

	return vouchers, nil
}

// Create inserts a new voucher definition.
func (r *voucherRepository) Create(ctx context.Context, voucher *model.Voucher) error {
	query := `
		INSERT INTO vouchers (` + voucherColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		voucher.ID,
		voucher.Code,
		voucher.DiscountType,
		voucher.DiscountValue,
		voucher.MinSpend,
		voucher.StartAt,
		voucher.EndAt,
		voucher.QuotaTotal,
		voucher.QuotaRemaining,
		voucher.Status,
		voucher.CreatedAt,
		voucher.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			r.logger.Debug().Str("code", voucher.Code).Msg("voucher code already exists")
			return model.ErrDuplicateCode
		}
		r.logger.Error().Err(err).Str("code", voucher.Code).Msg("failed to create voucher")
		return fmt.Errorf("failed to create voucher: %w", err)
	}

	r.logger.Debug().Str("code", voucher.Code).Msg("voucher created")

	return nil
}
