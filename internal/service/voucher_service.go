package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"voucher-api/internal/discount"
	"voucher-api/internal/model"
	"voucher-api/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const msgVoucherApplied = "voucher applied"

// voucherService implements VoucherService.
type voucherService struct {
	voucherRepo repository.VoucherRepository
	claimRepo   repository.ClaimRepository
	now         func() time.Time
	logger      zerolog.Logger
}

// NewVoucherService creates a new voucher service.
func NewVoucherService(
	voucherRepo repository.VoucherRepository,
	claimRepo repository.ClaimRepository,
	logger zerolog.Logger,
) VoucherService {
	return &voucherService{
		voucherRepo: voucherRepo,
		claimRepo:   claimRepo,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With().Str("service", "voucher").Logger(),
	}
}

// evaluateVoucher runs the usability checks shared by validation and claims,
// short-circuiting at the first failure. It mutates nothing. A nil voucher
// means the code was not found.
func evaluateVoucher(v *model.Voucher, orderAmount decimal.Decimal, now time.Time) *model.DomainError {
	if v == nil || v.Status != model.VoucherStatusActive {
		return model.ErrVoucherNotFound
	}
	if now.Before(v.StartAt) {
		return model.ErrVoucherNotStarted
	}
	if now.After(v.EndAt) {
		return model.ErrVoucherExpired
	}
	if v.QuotaRemaining <= 0 {
		return model.ErrQuotaExhausted
	}
	if v.MinSpend != nil && orderAmount.LessThan(*v.MinSpend) {
		return model.ErrBelowMinSpend(*v.MinSpend)
	}
	return nil
}

// Validate performs a dry-run check of the voucher against the order amount.
// It holds no locks and decrements nothing, so it is safe to call any number
// of times.
func (s *voucherService) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*model.Verdict, error) {
	code = strings.TrimSpace(code)

	v, err := s.voucherRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, model.NewTransientError(err)
	}

	now := s.now()
	verdict := &model.Verdict{Code: code, OrderAmount: orderAmount}

	if derr := evaluateVoucher(v, orderAmount, now); derr != nil {
		s.logger.Debug().
			Str("code", code).
			Str("reason", derr.Code).
			Msg("voucher validation failed")
		verdict.Message = derr.Message
		return verdict, nil
	}

	d, applies := discount.Compute(v.DiscountType, v.DiscountValue, v.MinSpend, orderAmount)
	if !applies {
		// evaluateVoucher already checked min spend, so this should not
		// happen for well-formed vouchers.
		verdict.Message = "voucher does not apply"
		return verdict, nil
	}

	verdict.Valid = true
	verdict.DiscountAmount = &d
	verdict.Message = msgVoucherApplied

	return verdict, nil
}

// Claim redeems one unit of quota for the order, or replays the recorded
// outcome for the same (code, orderId). The quota decrement and the ledger
// write commit as a single transaction.
func (s *voucherService) Claim(ctx context.Context, code, orderID string, orderAmount decimal.Decimal) (*model.ClaimOutcome, bool, error) {
	code = strings.TrimSpace(code)
	orderID = strings.TrimSpace(orderID)

	// Fast path: the key may already be settled.
	existing, err := s.claimRepo.Get(ctx, code, orderID)
	if err != nil {
		return nil, false, model.NewTransientError(err)
	}
	if existing != nil {
		s.logger.Debug().
			Str("code", code).
			Str("order_id", orderID).
			Msg("claim replayed from ledger")
		return existing, true, nil
	}

	tx, err := s.voucherRepo.BeginTx(ctx)
	if err != nil {
		return nil, false, model.NewTransientError(err)
	}

	outcome, replayed, err := s.claimLocked(ctx, tx, code, orderID, orderAmount)
	if err != nil || replayed {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Error().Err(rbErr).Msg("failed to rollback claim transaction")
		}
		return outcome, replayed, err
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().
			Err(err).
			Str("code", code).
			Str("order_id", orderID).
			Msg("failed to commit claim transaction")
		return nil, false, model.NewTransientError(err)
	}

	s.logger.Info().
		Str("code", code).
		Str("order_id", orderID).
		Bool("success", outcome.Success).
		Str("message", outcome.Message).
		Msg("claim decided")

	return outcome, false, nil
}

// claimLocked runs the claim's critical section inside the transaction. The
// voucher row lock taken by GetByCodeForUpdate serialises claims per code;
// any exit path leaves rollback or commit to the caller.
func (s *voucherService) claimLocked(ctx context.Context, tx pgx.Tx, code, orderID string, orderAmount decimal.Decimal) (*model.ClaimOutcome, bool, error) {
	v, err := s.voucherRepo.GetByCodeForUpdate(ctx, tx, code)
	if err != nil {
		return nil, false, model.NewTransientError(err)
	}

	// A competing claim for the same order may have settled the key while we
	// waited for the lock.
	existing, err := s.claimRepo.Get(ctx, code, orderID)
	if err != nil {
		return nil, false, model.NewTransientError(err)
	}
	if existing != nil {
		return existing, true, nil
	}

	now := s.now()
	outcome := &model.ClaimOutcome{
		Code:        code,
		OrderID:     orderID,
		OrderAmount: orderAmount,
		ClaimedAt:   now,
	}

	if derr := evaluateVoucher(v, orderAmount, now); derr != nil {
		// Failed validation still consumes the idempotency key so a retry
		// with the same orderId gets this answer instead of re-evaluating
		// against changed voucher state.
		outcome.Message = derr.Message
		return s.record(ctx, tx, outcome)
	}

	d, applies := discount.Compute(v.DiscountType, v.DiscountValue, v.MinSpend, orderAmount)
	if !applies {
		outcome.Message = "voucher does not apply"
		return s.record(ctx, tx, outcome)
	}

	remaining, decremented, err := s.voucherRepo.DecrementQuota(ctx, tx, code)
	if err != nil {
		return nil, false, model.NewTransientError(err)
	}
	if !decremented {
		// Quota hit zero between the check and the decrement.
		outcome.Message = model.ErrQuotaExhausted.Message
		return s.record(ctx, tx, outcome)
	}

	outcome.Success = true
	outcome.DiscountApplied = &d
	outcome.QuotaRemainingAfter = &remaining
	outcome.Message = msgVoucherApplied

	return s.record(ctx, tx, outcome)
}

// record persists the outcome to the ledger. A duplicate key means a
// competing claim won the race; its committed outcome is surfaced as a
// replay and the caller discards this transaction.
func (s *voucherService) record(ctx context.Context, tx pgx.Tx, outcome *model.ClaimOutcome) (*model.ClaimOutcome, bool, error) {
	err := s.claimRepo.Insert(ctx, tx, outcome)
	if err == nil {
		return outcome, false, nil
	}

	if errors.Is(err, repository.ErrDuplicateClaim) {
		existing, gerr := s.claimRepo.Get(ctx, outcome.Code, outcome.OrderID)
		if gerr != nil {
			return nil, false, model.NewTransientError(gerr)
		}
		if existing == nil {
			s.logger.Error().
				Str("code", outcome.Code).
				Str("order_id", outcome.OrderID).
				Msg("ledger entry exists but could not be read back")
			return nil, false, model.ErrReplayConflict
		}
		return existing, true, nil
	}

	return nil, false, model.NewTransientError(err)
}

// ListActive returns vouchers currently claimable, ordered by code.
func (s *voucherService) ListActive(ctx context.Context) ([]model.Voucher, error) {
	vouchers, err := s.voucherRepo.ListActive(ctx, s.now())
	if err != nil {
		return nil, model.NewTransientError(err)
	}
	return vouchers, nil
}

// Create registers a new voucher after validating its field shape.
func (s *voucherService) Create(ctx context.Context, req *model.CreateVoucherRequest) (*model.Voucher, error) {
	if derr := validateCreateRequest(req); derr != nil {
		s.logger.Warn().
			Str("reason", derr.Code).
			Msg("voucher creation rejected")
		return nil, derr
	}

	now := s.now()
	voucher := &model.Voucher{
		ID:             uuid.New(),
		Code:           strings.TrimSpace(req.Code),
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		MinSpend:       req.MinSpend,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		QuotaTotal:     req.QuotaTotal,
		QuotaRemaining: req.QuotaTotal,
		Status:         model.VoucherStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.voucherRepo.Create(ctx, voucher); err != nil {
		var derr *model.DomainError
		if errors.As(err, &derr) {
			return nil, derr
		}
		return nil, model.NewTransientError(err)
	}

	s.logger.Info().
		Str("code", voucher.Code).
		Int("quota_total", voucher.QuotaTotal).
		Msg("voucher created")

	return voucher, nil
}

// validateCreateRequest checks the field shape of an admin create request.
func validateCreateRequest(req *model.CreateVoucherRequest) *model.DomainError {
	if req == nil {
		return model.NewDomainError(model.ErrCodeInvalidVoucher, "request body is required")
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "code is required")
	}
	if len(code) > 64 {
		return model.NewDomainError(model.ErrCodeInvalidVoucher, "code must be at most 64 characters")
	}
	if !req.DiscountType.Valid() {
		return model.NewDomainError(model.ErrCodeInvalidVoucher, "discountType must be PERCENT or FIXED")
	}
	if !req.DiscountValue.IsPositive() {
		return model.NewDomainError(model.ErrCodeInvalidVoucher, "discountValue must be positive")
	}
	if req.DiscountType == model.DiscountPercent && req.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return model.NewDomainError(model.ErrCodeInvalidVoucher, "percent discount must be at most 100")
	}
	if req.MinSpend != nil && req.MinSpend.IsNegative() {
		return model.NewDomainError(model.ErrCodeInvalidVoucher, "minSpend must not be negative")
	}
	if req.StartAt.IsZero() || req.EndAt.IsZero() {
		return model.NewDomainError(model.ErrCodeMissingField, "startAt and endAt are required")
	}
	if !req.EndAt.After(req.StartAt) {
		return model.NewDomainError(model.ErrCodeInvalidVoucher, "endAt must be after startAt")
	}
	if req.QuotaTotal < 1 {
		return model.NewDomainError(model.ErrCodeInvalidVoucher, "quotaTotal must be at least 1")
	}

	return nil
}
