// Package seed bulk-loads voucher definitions from gzipped JSON-lines files
// at startup, from local disk or S3. Definitions whose codes already exist
// are skipped, so seeding is safe to repeat.
package seed

import (
	"context"
	"errors"
	"time"

	"voucher-api/internal/model"
	"voucher-api/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Definition is one voucher definition line in a seed file.
type Definition struct {
	Code          string             `json:"code"`
	DiscountType  model.DiscountType `json:"discountType"`
	DiscountValue decimal.Decimal    `json:"discountValue"`
	MinSpend      *decimal.Decimal   `json:"minSpend,omitempty"`
	StartAt       time.Time          `json:"startAt"`
	EndAt         time.Time          `json:"endAt"`
	QuotaTotal    int                `json:"quotaTotal"`
}

// Loader defines the interface for reading voucher seed files.
type Loader interface {
	// Load reads a gzipped JSON-lines seed file and returns its definitions.
	Load(ctx context.Context, filePath string) ([]Definition, error)
}

// Seeder inserts seed definitions through the voucher service so they pass
// the same field-shape validation as admin-created vouchers.
type Seeder struct {
	service service.VoucherService
	loader  Loader
	logger  zerolog.Logger
}

// NewSeeder creates a new voucher seeder.
func NewSeeder(svc service.VoucherService, loader Loader, logger zerolog.Logger) *Seeder {
	return &Seeder{
		service: svc,
		loader:  loader,
		logger:  logger.With().Str("component", "voucher-seeder").Logger(),
	}
}

// Run loads the seed file and creates every definition not already present.
// Individual invalid definitions are logged and skipped; only a failure to
// read the file itself aborts the run.
func (s *Seeder) Run(ctx context.Context, filePath string) error {
	definitions, err := s.loader.Load(ctx, filePath)
	if err != nil {
		return err
	}

	var created, skipped, failed int
	for _, def := range definitions {
		req := &model.CreateVoucherRequest{
			Code:          def.Code,
			DiscountType:  def.DiscountType,
			DiscountValue: def.DiscountValue,
			MinSpend:      def.MinSpend,
			StartAt:       def.StartAt,
			EndAt:         def.EndAt,
			QuotaTotal:    def.QuotaTotal,
		}

		_, err := s.service.Create(ctx, req)
		if err == nil {
			created++
			continue
		}

		var derr *model.DomainError
		if errors.As(err, &derr) && derr.Code == model.ErrCodeDuplicateCode {
			skipped++
			continue
		}

		failed++
		s.logger.Warn().
			Err(err).
			Str("code", def.Code).
			Msg("failed to seed voucher definition")
	}

	s.logger.Info().
		Str("file", filePath).
		Int("created", created).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("voucher seeding completed")

	return nil
}
