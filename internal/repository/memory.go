package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"voucher-api/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// MemoryStore is an in-memory voucher store and claim ledger implementing
// both VoucherRepository and ClaimRepository. Claims are serialised with a
// per-code mutex held from GetByCodeForUpdate until the transaction commits
// or rolls back; claims for different codes never block each other. Intended
// for local development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	vouchers map[string]*model.Voucher
	claims   map[claimKey]model.ClaimOutcome
	locks    map[string]*sync.Mutex
	logger   zerolog.Logger
}

type claimKey struct {
	code    string
	orderID string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		vouchers: make(map[string]*model.Voucher),
		claims:   make(map[claimKey]model.ClaimOutcome),
		locks:    make(map[string]*sync.Mutex),
		logger:   logger.With().Str("repository", "memory").Logger(),
	}
}

// codeLock returns the mutex serialising claims for the given code, creating
// it on first use. A lock exists per code string regardless of whether a
// voucher does, so claims for unknown codes are serialised too.
func (s *MemoryStore) codeLock(code string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[code]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[code] = lock
	}
	return lock
}

// BeginTx starts an in-memory transaction. Mutations are buffered and
// applied atomically on Commit.
func (s *MemoryStore) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return &memoryTx{store: s}, nil
}

// GetByCode retrieves a copy of the voucher, or nil when absent.
func (s *MemoryStore) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vouchers[code]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

// GetByCodeForUpdate acquires the per-code lock for the transaction and
// returns a copy of the voucher, or nil when absent (the lock is held either
// way).
func (s *MemoryStore) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Voucher, error) {
	mtx, ok := tx.(*memoryTx)
	if !ok {
		return nil, errors.New("transaction does not belong to this store")
	}
	mtx.lock(code)

	return s.GetByCode(ctx, code)
}

// DecrementQuota buffers a conditional quota decrement. The per-code lock
// held by the transaction guarantees the observed value cannot change before
// commit.
func (s *MemoryStore) DecrementQuota(ctx context.Context, tx pgx.Tx, code string) (int, bool, error) {
	mtx, ok := tx.(*memoryTx)
	if !ok {
		return 0, false, errors.New("transaction does not belong to this store")
	}
	if !mtx.holds(code) {
		return 0, false, errors.New("quota decrement requires the per-code lock")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vouchers[code]
	if !ok || v.QuotaRemaining <= 0 {
		return 0, false, nil
	}

	remaining := v.QuotaRemaining - 1
	mtx.pending = append(mtx.pending, func() {
		v.QuotaRemaining = remaining
		v.UpdatedAt = time.Now().UTC()
	})

	return remaining, true, nil
}

// ListActive returns claimable vouchers ordered by code ascending.
func (s *MemoryStore) ListActive(ctx context.Context, now time.Time) ([]model.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var vouchers []model.Voucher
	for _, v := range s.vouchers {
		if v.Status != model.VoucherStatusActive {
			continue
		}
		if now.Before(v.StartAt) || now.After(v.EndAt) {
			continue
		}
		if v.QuotaRemaining <= 0 {
			continue
		}
		vouchers = append(vouchers, *v)
	}

	sort.Slice(vouchers, func(i, j int) bool {
		return vouchers[i].Code < vouchers[j].Code
	})

	return vouchers, nil
}

// Create inserts a new voucher definition.
func (s *MemoryStore) Create(ctx context.Context, voucher *model.Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vouchers[voucher.Code]; exists {
		return model.ErrDuplicateCode
	}

	copied := *voucher
	s.vouchers[voucher.Code] = &copied

	return nil
}

// Get retrieves a previously recorded claim outcome, or nil.
func (s *MemoryStore) Get(ctx context.Context, code, orderID string) (*model.ClaimOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, ok := s.claims[claimKey{code: code, orderID: orderID}]
	if !ok {
		return nil, nil
	}
	return &outcome, nil
}

// Insert buffers a ledger write applied atomically with any quota decrement
// pending on the same transaction.
func (s *MemoryStore) Insert(ctx context.Context, tx pgx.Tx, outcome *model.ClaimOutcome) error {
	mtx, ok := tx.(*memoryTx)
	if !ok {
		return errors.New("transaction does not belong to this store")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := claimKey{code: outcome.Code, orderID: outcome.OrderID}
	if _, exists := s.claims[key]; exists {
		return ErrDuplicateClaim
	}

	recorded := *outcome
	mtx.pending = append(mtx.pending, func() {
		s.claims[key] = recorded
	})

	return nil
}

// memoryTx implements pgx.Tx over the in-memory store. Only the transaction
// control methods are functional; SQL passthrough methods are not supported.
type memoryTx struct {
	store   *MemoryStore
	locked  []string
	pending []func()
	done    bool
}

func (t *memoryTx) lock(code string) {
	if t.holds(code) {
		return
	}
	t.store.codeLock(code).Lock()
	t.locked = append(t.locked, code)
}

func (t *memoryTx) holds(code string) bool {
	for _, c := range t.locked {
		if c == code {
			return true
		}
	}
	return false
}

func (t *memoryTx) release() {
	for _, code := range t.locked {
		t.store.codeLock(code).Unlock()
	}
	t.locked = nil
	t.pending = nil
	t.done = true
}

// Commit applies buffered mutations atomically and releases per-code locks.
func (t *memoryTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}

	t.store.mu.Lock()
	for _, apply := range t.pending {
		apply()
	}
	t.store.mu.Unlock()

	t.release()
	return nil
}

// Rollback discards buffered mutations and releases per-code locks.
func (t *memoryTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}

	t.release()
	return nil
}

var errMemoryTxUnsupported = errors.New("memory transaction does not support SQL passthrough")

func (t *memoryTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errMemoryTxUnsupported
}

func (t *memoryTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errMemoryTxUnsupported
}

func (t *memoryTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *memoryTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *memoryTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errMemoryTxUnsupported
}

func (t *memoryTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errMemoryTxUnsupported
}

func (t *memoryTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errMemoryTxUnsupported
}

func (t *memoryTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

func (t *memoryTx) Conn() *pgx.Conn { return nil }
