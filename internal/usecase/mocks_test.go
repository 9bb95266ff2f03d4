//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"usdt-storefront/internal/domain"
	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/adapter"
	"usdt-storefront/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories
// =============================

// MockOrderRepo is an in-memory OrderRepository. UpdateStatusFrom is a real
// compare-and-swap under the mutex, so concurrency tests exercise the same
// guarantee the SQL implementation gives.
type MockOrderRepo struct {
	mu    sync.Mutex
	store map[string]*model.Order

	SaveFunc             func(ctx context.Context, tx repository.Tx, o *model.Order) error
	UpdateStatusFromFunc func(ctx context.Context, tx repository.Tx, id string, from, to model.OrderStatus, txRef *string) (bool, error)
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{store: make(map[string]*model.Order)}
}

func (m *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.store[o.ID] = &cp
	return nil
}

func (m *MockOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.store {
		if o.Code == code {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrderRepo) ListPendingWithinWindow(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.store {
		if o.Status == model.OrderStatusPending && o.PaymentDeadline != nil && o.PaymentDeadline.After(now) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockOrderRepo) ExpireStalePending(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.store {
		if o.Status == model.OrderStatusPending && o.PaymentDeadline != nil && o.PaymentDeadline.Before(now) {
			o.Status = model.OrderStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *MockOrderRepo) UpdateStatusFrom(ctx context.Context, tx repository.Tx, id string, from, to model.OrderStatus, txRef *string) (bool, error) {
	if m.UpdateStatusFromFunc != nil {
		return m.UpdateStatusFromFunc(ctx, tx, id, from, to, txRef)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if txRef != nil {
		ref := *txRef
		o.TxRef = &ref
	}
	return true, nil
}

func (m *MockOrderRepo) CountTrialOrders(ctx context.Context, tx repository.Tx, userID string, productID *string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.store {
		if o.UserID != userID {
			continue
		}
		if o.Status != model.OrderStatusTrialRequested && o.Status != model.OrderStatusTrialGranted {
			continue
		}
		if productID != nil && o.ProductID != *productID {
			continue
		}
		n++
	}
	return n, nil
}

func (m *MockOrderRepo) HasSettledPromoUse(ctx context.Context, tx repository.Tx, userID, promoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.store {
		if o.UserID == userID && o.PromoCodeID != nil && *o.PromoCodeID == promoID && o.Status == model.OrderStatusPaid {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockOrderRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.store {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockOrderRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.OrderStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.OrderStatus]int)
	for _, o := range m.store {
		out[o.Status]++
	}
	return out, nil
}

func (m *MockOrderRepo) SumPaidAmount(ctx context.Context, tx repository.Tx, since time.Time) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, o := range m.store {
		if o.Status == model.OrderStatusPaid && !o.CreatedAt.Before(since) {
			sum = sum.Add(o.Amount)
		}
	}
	return sum, nil
}

// ---- MockProductRepo ----

type MockProductRepo struct {
	mu    sync.Mutex
	store map[string]*model.Product

	DecrementStockFunc func(ctx context.Context, tx repository.Tx, id string, qty int) error
}

var _ repository.ProductRepository = (*MockProductRepo)(nil)

func NewMockProductRepo() *MockProductRepo {
	return &MockProductRepo{store: make(map[string]*model.Product)}
}

func (m *MockProductRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockProductRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProductRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Product
	for _, p := range m.store {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockProductRepo) DecrementStock(ctx context.Context, tx repository.Tx, id string, qty int) error {
	if m.DecrementStockFunc != nil {
		return m.DecrementStockFunc(ctx, tx, id, qty)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Stock > 0 {
		p.Stock -= qty
	}
	return nil
}

// Stock returns the current stored quantity, for assertions.
func (m *MockProductRepo) Stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.store[id]; ok {
		return p.Stock
	}
	return 0
}

// ---- MockPromoRepo ----

type MockPromoRepo struct {
	mu    sync.Mutex
	store map[string]*model.PromoCode
}

var _ repository.PromoCodeRepository = (*MockPromoRepo)(nil)

func NewMockPromoRepo() *MockPromoRepo {
	return &MockPromoRepo{store: make(map[string]*model.PromoCode)}
}

func (m *MockPromoRepo) Save(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPromoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPromoRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPromoRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.UsedCount++
	return nil
}

// UsedCount returns the stored counter, for assertions.
func (m *MockPromoRepo) UsedCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.store[id]; ok {
		return p.UsedCount
	}
	return 0
}

// ---- MockEntitlementRepo ----

type MockEntitlementRepo struct {
	mu    sync.Mutex
	store map[string]*model.Entitlement // by order ID

	SaveFunc func(ctx context.Context, tx repository.Tx, e *model.Entitlement) error
}

var _ repository.EntitlementRepository = (*MockEntitlementRepo)(nil)

func NewMockEntitlementRepo() *MockEntitlementRepo {
	return &MockEntitlementRepo{store: make(map[string]*model.Entitlement)}
}

func (m *MockEntitlementRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.store[e.OrderID]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *e
	m.store[e.OrderID] = &cp
	return nil
}

func (m *MockEntitlementRepo) FindByOrder(ctx context.Context, tx repository.Tx, orderID string) (*model.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockEntitlementRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Entitlement
	for _, e := range m.store {
		if e.UserID == userID && e.Active {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockEntitlementRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.store {
		if e.Active && e.ExpiresAt != nil && e.ExpiresAt.Before(now) {
			e.Active = false
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored entitlements, for assertions.
func (m *MockEntitlementRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// ---- MockUserRepo ----

type MockUserRepo struct {
	mu    sync.Mutex
	store map[string]*model.User
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{store: make(map[string]*model.User)}
}

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.store {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// =============================
// Adapters
// =============================

// ---- Mock ChainObserver ----

type MockChainObserver struct {
	mu        sync.Mutex
	Transfers []adapter.Transfer
	Fetches   int

	FetchTransfersFunc func(ctx context.Context, wallet string, since time.Time) ([]adapter.Transfer, error)
}

var _ adapter.ChainObserver = (*MockChainObserver)(nil)

func (m *MockChainObserver) FetchTransfers(ctx context.Context, wallet string, since time.Time) ([]adapter.Transfer, error) {
	m.mu.Lock()
	m.Fetches++
	m.mu.Unlock()
	if m.FetchTransfersFunc != nil {
		return m.FetchTransfersFunc(ctx, wallet, since)
	}
	return m.Transfers, nil
}

// ---- Mock NotificationSink ----

type MockNotificationSink struct {
	mu     sync.Mutex
	Events []adapter.OrderConfirmedEvent

	OrderConfirmedFunc func(ctx context.Context, ev adapter.OrderConfirmedEvent) error
}

var _ adapter.NotificationSink = (*MockNotificationSink)(nil)

func (m *MockNotificationSink) OrderConfirmed(ctx context.Context, ev adapter.OrderConfirmedEvent) error {
	if m.OrderConfirmedFunc != nil {
		return m.OrderConfirmedFunc(ctx, ev)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
	return nil
}

// Delivered returns the captured events, for assertions.
func (m *MockNotificationSink) Delivered() []adapter.OrderConfirmedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]adapter.OrderConfirmedEvent, len(m.Events))
	copy(out, m.Events)
	return out
}

// ---- Mock TxManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithTx runs the function immediately without a real transaction. Tests that
// need to verify transactional behavior assign a custom WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
