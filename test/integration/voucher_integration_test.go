package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"voucher-api/internal/model"
	"voucher-api/internal/repository"
	"voucher-api/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoucherRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	repo := repository.NewVoucherRepository(testDB.Pool, logger)

	ctx := context.Background()

	t.Run("Create and GetByCode round trip", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		minSpend := decimal.RequireFromString("50.00")
		voucher := DefaultVoucher("SAVE10", 100)
		voucher.MinSpend = &minSpend

		require.NoError(t, repo.Create(ctx, voucher))

		got, err := repo.GetByCode(ctx, "SAVE10")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, voucher.ID, got.ID)
		assert.Equal(t, "SAVE10", got.Code)
		assert.Equal(t, model.DiscountPercent, got.DiscountType)
		assert.True(t, got.DiscountValue.Equal(decimal.NewFromInt(10)))
		require.NotNil(t, got.MinSpend)
		assert.True(t, got.MinSpend.Equal(minSpend))
		assert.Equal(t, 100, got.QuotaRemaining)
	})

	t.Run("GetByCode is case sensitive", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedVoucher(t, testDB.Pool, DefaultVoucher("MixedCase", 10))

		got, err := repo.GetByCode(ctx, "mixedcase")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = repo.GetByCode(ctx, "MixedCase")
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("Create rejects duplicate codes", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedVoucher(t, testDB.Pool, DefaultVoucher("DUP", 10))

		err := repo.Create(ctx, DefaultVoucher("DUP", 20))
		require.Error(t, err)

		var derr *model.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, model.ErrCodeDuplicateCode, derr.Code)
	})

	t.Run("DecrementQuota stops at zero", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedVoucher(t, testDB.Pool, DefaultVoucher("TWO", 2))

		for i := 0; i < 2; i++ {
			tx, err := repo.BeginTx(ctx)
			require.NoError(t, err)

			_, err = repo.GetByCodeForUpdate(ctx, tx, "TWO")
			require.NoError(t, err)

			remaining, decremented, err := repo.DecrementQuota(ctx, tx, "TWO")
			require.NoError(t, err)
			assert.True(t, decremented)
			assert.Equal(t, 1-i, remaining)

			require.NoError(t, tx.Commit(ctx))
		}

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		_, err = repo.GetByCodeForUpdate(ctx, tx, "TWO")
		require.NoError(t, err)

		_, decremented, err := repo.DecrementQuota(ctx, tx, "TWO")
		require.NoError(t, err)
		assert.False(t, decremented)
	})

	t.Run("ListActive filters and orders by code", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		now := time.Now().UTC()

		SeedVoucher(t, testDB.Pool, DefaultVoucher("BBB", 10))
		SeedVoucher(t, testDB.Pool, DefaultVoucher("AAA", 10))

		inactive := DefaultVoucher("INACTIVE", 10)
		inactive.Status = model.VoucherStatusInactive
		SeedVoucher(t, testDB.Pool, inactive)

		expired := DefaultVoucher("EXPIRED", 10)
		expired.StartAt = now.Add(-48 * time.Hour)
		expired.EndAt = now.Add(-24 * time.Hour)
		SeedVoucher(t, testDB.Pool, expired)

		exhausted := DefaultVoucher("EMPTY", 10)
		exhausted.QuotaRemaining = 0
		SeedVoucher(t, testDB.Pool, exhausted)

		vouchers, err := repo.ListActive(ctx, now)
		require.NoError(t, err)
		require.Len(t, vouchers, 2)
		assert.Equal(t, "AAA", vouchers[0].Code)
		assert.Equal(t, "BBB", vouchers[1].Code)
	})
}

func TestClaimRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	voucherRepo := repository.NewVoucherRepository(testDB.Pool, logger)
	claimRepo := repository.NewClaimRepository(testDB.Pool, logger)

	ctx := context.Background()

	t.Run("Insert and Get round trip", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		tx, err := voucherRepo.BeginTx(ctx)
		require.NoError(t, err)

		discount := decimal.RequireFromString("10.00")
		quota := 4
		outcome := &model.ClaimOutcome{
			Code:                "SAVE10",
			OrderID:             "O-1",
			Success:             true,
			OrderAmount:         decimal.NewFromInt(100),
			DiscountApplied:     &discount,
			QuotaRemainingAfter: &quota,
			Message:             "voucher applied",
			ClaimedAt:           time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, claimRepo.Insert(ctx, tx, outcome))
		require.NoError(t, tx.Commit(ctx))

		got, err := claimRepo.Get(ctx, "SAVE10", "O-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Success)
		assert.True(t, got.DiscountApplied.Equal(discount))
		assert.Equal(t, 4, *got.QuotaRemainingAfter)
	})

	t.Run("failed outcome persists without snapshot fields", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		tx, err := voucherRepo.BeginTx(ctx)
		require.NoError(t, err)

		outcome := &model.ClaimOutcome{
			Code:        "SAVE10",
			OrderID:     "O-FAIL",
			Success:     false,
			OrderAmount: decimal.NewFromInt(100),
			Message:     "voucher quota exhausted",
			ClaimedAt:   time.Now().UTC(),
		}
		require.NoError(t, claimRepo.Insert(ctx, tx, outcome))
		require.NoError(t, tx.Commit(ctx))

		got, err := claimRepo.Get(ctx, "SAVE10", "O-FAIL")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.False(t, got.Success)
		assert.Nil(t, got.DiscountApplied)
		assert.Nil(t, got.QuotaRemainingAfter)
	})

	t.Run("duplicate key maps to ErrDuplicateClaim", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		outcome := &model.ClaimOutcome{
			Code:        "SAVE10",
			OrderID:     "O-1",
			Success:     false,
			OrderAmount: decimal.NewFromInt(100),
			Message:     "voucher not found or inactive",
			ClaimedAt:   time.Now().UTC(),
		}

		tx, err := voucherRepo.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, claimRepo.Insert(ctx, tx, outcome))
		require.NoError(t, tx.Commit(ctx))

		tx, err = voucherRepo.BeginTx(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		err = claimRepo.Insert(ctx, tx, outcome)
		assert.ErrorIs(t, err, repository.ErrDuplicateClaim)
	})
}

func TestClaimService_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	voucherRepo := repository.NewVoucherRepository(testDB.Pool, logger)
	claimRepo := repository.NewClaimRepository(testDB.Pool, logger)
	svc := service.NewVoucherService(voucherRepo, claimRepo, logger)

	ctx := context.Background()

	t.Run("claim decrements quota and records the outcome", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedVoucher(t, testDB.Pool, DefaultVoucher("SAVE10", 5))

		outcome, idempotent, err := svc.Claim(ctx, "SAVE10", "O-1", decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.False(t, idempotent)
		assert.True(t, outcome.Success)
		assert.Equal(t, "10.00", outcome.DiscountApplied.StringFixed(2))
		assert.Equal(t, 4, *outcome.QuotaRemainingAfter)

		replay, idempotent, err := svc.Claim(ctx, "SAVE10", "O-1", decimal.NewFromInt(500))
		require.NoError(t, err)
		assert.True(t, idempotent)
		assert.True(t, replay.Success)
		assert.Equal(t, "10.00", replay.DiscountApplied.StringFixed(2))

		v, err := voucherRepo.GetByCode(ctx, "SAVE10")
		require.NoError(t, err)
		assert.Equal(t, 4, v.QuotaRemaining)
	})

	t.Run("concurrent claims never oversell", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedVoucher(t, testDB.Pool, DefaultVoucher("LIMITED", 5))

		const claimers = 25
		var wg sync.WaitGroup
		outcomes := make(chan *model.ClaimOutcome, claimers)

		for i := 0; i < claimers; i++ {
			orderID := fmt.Sprintf("O-%03d", i)
			wg.Add(1)
			go func() {
				defer wg.Done()

				outcome, _, err := svc.Claim(ctx, "LIMITED", orderID, decimal.NewFromInt(100))
				if err == nil {
					outcomes <- outcome
				}
			}()
		}

		wg.Wait()
		close(outcomes)

		successes := 0
		for outcome := range outcomes {
			if outcome.Success {
				successes++
			}
		}
		assert.Equal(t, 5, successes)

		v, err := voucherRepo.GetByCode(ctx, "LIMITED")
		require.NoError(t, err)
		assert.Equal(t, 0, v.QuotaRemaining)

		var ledgerCount int
		require.NoError(t, testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM claims").Scan(&ledgerCount))
		assert.Equal(t, claimers, ledgerCount)
	})

	t.Run("validate consumes nothing", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedVoucher(t, testDB.Pool, DefaultVoucher("DRYRUN", 3))

		for i := 0; i < 5; i++ {
			verdict, err := svc.Validate(ctx, "DRYRUN", decimal.NewFromInt(100))
			require.NoError(t, err)
			assert.True(t, verdict.Valid)
		}

		v, err := voucherRepo.GetByCode(ctx, "DRYRUN")
		require.NoError(t, err)
		assert.Equal(t, 3, v.QuotaRemaining)
	})
}
