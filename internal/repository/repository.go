package repository

import (
	"context"
	"errors"
	"time"

	"voucher-api/internal/model"

	"github.com/jackc/pgx/v5"
)

// ErrDuplicateClaim is returned by ClaimRepository.Insert when an outcome for
// the same (code, orderId) key already exists. The caller re-reads the
// existing entry and returns it as an idempotent replay.
var ErrDuplicateClaim = errors.New("claim outcome already recorded for this order")

// VoucherRepository defines the interface for voucher data access operations.
type VoucherRepository interface {
	// BeginTx starts the transaction that scopes a claim's critical section.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// GetByCode retrieves a voucher by its code without locking.
	// Returns nil when no voucher exists for the code.
	GetByCode(ctx context.Context, code string) (*model.Voucher, error)

	// GetByCodeForUpdate retrieves a voucher by code within the transaction
	// and acquires the per-code exclusive lock, serialising claims for this
	// code until the transaction commits or rolls back. Claims for other
	// codes are not blocked. Returns nil when no voucher exists.
	GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Voucher, error)

	// DecrementQuota atomically decrements quota_remaining by one, but only
	// if the current value is positive. Returns the post-decrement value and
	// whether the decrement happened; false means the quota hit zero.
	DecrementQuota(ctx context.Context, tx pgx.Tx, code string) (int, bool, error)

	// ListActive retrieves vouchers that are ACTIVE, inside their validity
	// window at now, and still have quota, ordered by code ascending.
	ListActive(ctx context.Context, now time.Time) ([]model.Voucher, error)

	// Create inserts a new voucher. Returns model.ErrDuplicateCode when the
	// code is already taken.
	Create(ctx context.Context, voucher *model.Voucher) error
}

// ClaimRepository defines the interface for the claim ledger, the durable
// (code, orderId) -> outcome map backing idempotent replays.
type ClaimRepository interface {
	// Get retrieves a previously recorded outcome, or nil when the key has
	// never been claimed.
	Get(ctx context.Context, code, orderID string) (*model.ClaimOutcome, error)

	// Insert records an outcome within the claim transaction. Returns
	// ErrDuplicateClaim when the key is already taken.
	Insert(ctx context.Context, tx pgx.Tx, outcome *model.ClaimOutcome) error
}
