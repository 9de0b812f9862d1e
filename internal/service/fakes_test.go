package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/telemetry"
	"github.com/utafrali/storefront/pkg/logger"
)

// --- Mock EventPublisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishSaleCompleted(ctx context.Context, sale *domain.Sale) error {
	return m.Called(ctx, sale).Error(0)
}

func (m *mockPublisher) PublishWalletUpdated(ctx context.Context, customer *domain.Customer, operation string, amount decimal.Decimal) error {
	return m.Called(ctx, customer, operation, amount).Error(0)
}

func (m *mockPublisher) PublishInventoryUpdated(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockPublisher) PublishProductDeleted(ctx context.Context, productID string) error {
	return m.Called(ctx, productID).Error(0)
}

func (m *mockPublisher) PublishReviewSubmitted(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

// newMockPublisher accepts any event and returns err for each publish.
func newMockPublisher(err error) *mockPublisher {
	m := new(mockPublisher)
	m.On("PublishSaleCompleted", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishWalletUpdated", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishInventoryUpdated", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishProductDeleted", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishReviewSubmitted", mock.Anything, mock.Anything).Return(err).Maybe()
	return m
}

// --- Fake ProductCache ---

type fakeCache struct {
	mu          sync.Mutex
	items       map[string]domain.Product
	invalidated []string
	gets        int
	err         error

	// beforeSet runs once, outside the lock, at the start of the next Set.
	beforeSet func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string]domain.Product)}
}

func (c *fakeCache) Get(_ context.Context, id string) (*domain.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.err != nil {
		return nil, false, c.err
	}
	p, ok := c.items[id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *fakeCache) Set(_ context.Context, p *domain.Product) error {
	if c.beforeSet != nil {
		hook := c.beforeSet
		c.beforeSet = nil
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.items[p.ID] = *p
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, id)
	if c.err != nil {
		return c.err
	}
	delete(c.items, id)
	return nil
}

func (c *fakeCache) has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[id]
	return ok
}

// --- Fake SaleIdempotency ---

const fakeInFlight = "in-flight"

type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
	err  error
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: make(map[string]string)}
}

func (f *fakeIdempotency) Reserve(_ context.Context, customerID, key string) (cache.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return cache.Reservation{}, f.err
	}
	k := customerID + ":" + key
	v, ok := f.keys[k]
	switch {
	case !ok:
		f.keys[k] = fakeInFlight
		return cache.Reservation{State: cache.Reserved}, nil
	case v == fakeInFlight:
		return cache.Reservation{State: cache.InFlight}, nil
	default:
		return cache.Reservation{State: cache.Completed, SaleID: v}, nil
	}
}

func (f *fakeIdempotency) Complete(_ context.Context, customerID, key, saleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[customerID+":"+key] = saleID
	return nil
}

func (f *fakeIdempotency) Release(_ context.Context, customerID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, customerID+":"+key)
	return nil
}

func (f *fakeIdempotency) value(customerID, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.keys[customerID+":"+key]
	return v, ok
}

// --- Recording Observer ---

type observation struct {
	operation string
	outcome   string
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *recordingObserver) Observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	o.mu.Lock()
	o.obs = append(o.obs, observation{operation: operation, outcome: telemetry.Outcome(err)})
	o.mu.Unlock()
	return err
}

func (o *recordingObserver) observations() []observation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]observation(nil), o.obs...)
}

// --- Fixtures ---

type fixture struct {
	store     *memStore
	events    *mockPublisher
	cache     *fakeCache
	idem      *fakeIdempotency
	observer  *recordingObserver
	sales     *SaleService
	wallets   *WalletService
	inventory *InventoryService
	customers *CustomerService
	reviews   *ReviewService
	wishlists *WishlistService
	jwt       *auth.JWTManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithEvents(t, newMockPublisher(nil))
}

func newFixtureWithEvents(t *testing.T, events *mockPublisher) *fixture {
	t.Helper()

	store := newMemStore()
	c := newFakeCache()
	idem := newFakeIdempotency()
	obs := &recordingObserver{}
	log := logger.Discard()
	wm := NewWalletManager()
	im := NewInventoryManager()
	jwtManager := auth.NewJWTManager("test-secret-that-is-long-enough-32b", 15*time.Minute)

	return &fixture{
		store:     store,
		events:    events,
		cache:     c,
		idem:      idem,
		observer:  obs,
		sales:     NewSaleService(store, wm, im, idem, c, events, obs, log),
		wallets:   NewWalletService(store, wm, events, obs, log),
		inventory: NewInventoryService(store, im, c, events, obs, log),
		customers: NewCustomerService(store, auth.NewPasswordHasher(4), jwtManager, log),
		reviews:   NewReviewService(store, events, log),
		wishlists: NewWishlistService(store, log),
		jwt:       jwtManager,
	}
}

func principalOf(c *domain.Customer) *authz.Principal {
	return &authz.Principal{CustomerID: c.ID, Username: c.Username, Role: c.Role}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
