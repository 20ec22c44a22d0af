package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"voucher-api/internal/model"

	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}

	// Same decimal codec registration the production pool uses.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	// Create schema
	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS vouchers (
			id UUID PRIMARY KEY,
			code VARCHAR(64) NOT NULL UNIQUE,
			discount_type VARCHAR(10) NOT NULL CHECK (discount_type IN ('PERCENT', 'FIXED')),
			discount_value NUMERIC(12, 2) NOT NULL CHECK (discount_value > 0),
			min_spend NUMERIC(12, 2),
			start_at TIMESTAMPTZ NOT NULL,
			end_at TIMESTAMPTZ NOT NULL,
			quota_total INTEGER NOT NULL CHECK (quota_total >= 1),
			quota_remaining INTEGER NOT NULL CHECK (quota_remaining >= 0),
			status VARCHAR(10) NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE', 'INACTIVE')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS claims (
			id UUID PRIMARY KEY,
			voucher_code VARCHAR(64) NOT NULL,
			order_id VARCHAR(128) NOT NULL,
			success BOOLEAN NOT NULL,
			order_amount NUMERIC(12, 2) NOT NULL,
			discount_applied NUMERIC(12, 2),
			quota_remaining_after INTEGER,
			message TEXT NOT NULL,
			claimed_at TIMESTAMPTZ NOT NULL,
			UNIQUE (voucher_code, order_id)
		);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedVoucher inserts one voucher directly into the database.
func SeedVoucher(t *testing.T, pool *pgxpool.Pool, v *model.Voucher) {
	t.Helper()

	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO vouchers (
			id, code, discount_type, discount_value, min_spend,
			start_at, end_at, quota_total, quota_remaining, status,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		v.ID, v.Code, v.DiscountType, v.DiscountValue, v.MinSpend,
		v.StartAt, v.EndAt, v.QuotaTotal, v.QuotaRemaining, v.Status,
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to seed voucher %s: %v", v.Code, err)
	}
}

// DefaultVoucher builds a claimable voucher for tests. Callers adjust fields
// as needed before seeding.
func DefaultVoucher(code string, quota int) *model.Voucher {
	now := time.Now().UTC()
	return &model.Voucher{
		ID:             uuid.New(),
		Code:           code,
		DiscountType:   model.DiscountPercent,
		DiscountValue:  decimal.NewFromInt(10),
		StartAt:        now.Add(-time.Hour),
		EndAt:          now.Add(24 * time.Hour),
		QuotaTotal:     quota,
		QuotaRemaining: quota,
		Status:         model.VoucherStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"claims", "vouchers"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
