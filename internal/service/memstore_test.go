package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// --- In-memory ledger ---

// memStore is an in-memory repository.Store. Units of work run concurrently;
// Lock and LockByUsername take a per-row mutex held until the unit of work
// ends, and a failed unit of work is undone from its own undo log. Every unit
// of work records a journal of the row locks, reads and writes it performed.
type memStore struct {
	mu sync.Mutex

	customers map[string]domain.Customer
	products  map[string]domain.Product
	sales     map[string]domain.Sale
	reviews   map[string]domain.Review
	wishlists map[wishlistKey]time.Time

	rowLocks map[string]*sync.Mutex
	journals [][]string

	// readDelay pauses after every row read so that concurrent units of work
	// interleave between reading a row and writing it.
	readDelay time.Duration

	// commitErr, when set, is returned by WithinTx after fn succeeds and the
	// unit of work is rolled back.
	commitErr error
}

type wishlistKey struct {
	customerID string
	productID  string
}

var (
	_ repository.Store  = (*memStore)(nil)
	_ repository.Ledger = (*memTx)(nil)
)

var (
	errCheckViolation = errors.New("violates check constraint")
	errRowNotLocked   = errors.New("row written without holding its lock")
)

func newMemStore() *memStore {
	return &memStore{
		customers: make(map[string]domain.Customer),
		products:  make(map[string]domain.Product),
		sales:     make(map[string]domain.Sale),
		reviews:   make(map[string]domain.Review),
		wishlists: make(map[wishlistKey]time.Time),
		rowLocks:  make(map[string]*sync.Mutex),
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, ledger repository.Ledger) error) error {
	tx := &memTx{s: s, held: make(map[string]*sync.Mutex)}

	err := fn(ctx, tx)
	if err == nil && s.commitErr != nil {
		err = s.commitErr
	}
	tx.finish(err != nil)
	return err
}

// Outside a unit of work the repositories read and write without row locks.
func (s *memStore) Customers() repository.CustomerRepository { return memCustomers{s: s} }
func (s *memStore) Products() repository.ProductRepository   { return memProducts{s: s} }
func (s *memStore) Sales() repository.SaleRepository         { return memSales{s: s} }
func (s *memStore) Reviews() repository.ReviewRepository     { return memReviews{s: s} }
func (s *memStore) Wishlists() repository.WishlistRepository { return memWishlists{s: s} }

// lastJournal returns the journal of the most recently finished unit of work.
func (s *memStore) lastJournal() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.journals) == 0 {
		return nil
	}
	return slices.Clone(s.journals[len(s.journals)-1])
}

func (s *memStore) pause() {
	if s.readDelay > 0 {
		time.Sleep(s.readDelay)
	}
}

// memTx is one unit of work against a memStore.
type memTx struct {
	s       *memStore
	held    map[string]*sync.Mutex
	undos   []func()
	journal []string
}

func (tx *memTx) Customers() repository.CustomerRepository { return memCustomers{tx.s, tx} }
func (tx *memTx) Products() repository.ProductRepository   { return memProducts{tx.s, tx} }
func (tx *memTx) Sales() repository.SaleRepository         { return memSales{tx.s, tx} }
func (tx *memTx) Reviews() repository.ReviewRepository     { return memReviews{tx.s, tx} }
func (tx *memTx) Wishlists() repository.WishlistRepository { return memWishlists{tx.s, tx} }

// lockRow blocks until the unit of work owns key. Locks are re-entrant
// within one unit of work.
func (tx *memTx) lockRow(key string) {
	if _, ok := tx.held[key]; ok {
		return
	}
	tx.s.mu.Lock()
	m, ok := tx.s.rowLocks[key]
	if !ok {
		m = &sync.Mutex{}
		tx.s.rowLocks[key] = m
	}
	tx.s.mu.Unlock()

	m.Lock()
	tx.held[key] = m
}

// owns reports whether a write to key is allowed. Store-level access has no
// unit of work and is always allowed.
func (tx *memTx) owns(key string) bool {
	if tx == nil {
		return true
	}
	_, ok := tx.held[key]
	return ok
}

func (tx *memTx) record(format string, args ...any) {
	if tx == nil {
		return
	}
	tx.journal = append(tx.journal, fmt.Sprintf(format, args...))
}

// finish rolls back when asked, records the journal and releases every row
// lock.
func (tx *memTx) finish(rollback bool) {
	tx.s.mu.Lock()
	if rollback {
		for i := len(tx.undos) - 1; i >= 0; i-- {
			tx.undos[i]()
		}
	}
	tx.s.journals = append(tx.s.journals, tx.journal)
	tx.s.mu.Unlock()

	for _, m := range tx.held {
		m.Unlock()
	}
}

// track saves the current value of m[k] so that a rollback can restore it.
// The caller holds the store mutex.
func track[K comparable, V any](tx *memTx, m map[K]V, k K) {
	if tx == nil {
		return
	}
	old, had := m[k]
	tx.undos = append(tx.undos, func() {
		if had {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

func customerKey(id string) string { return "customer:" + id }
func productKey(id string) string  { return "product:" + id }

// seed helpers

func (s *memStore) addCustomer(username, role string, balance string) *domain.Customer {
	c := domain.Customer{
		ID:            "cust-" + username,
		Username:      username,
		FullName:      username,
		Gender:        domain.GenderOther,
		MaritalStatus: domain.MaritalStatusSingle,
		Role:          role,
		WalletBalance: decimal.RequireFromString(balance),
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	s.mu.Lock()
	s.customers[c.ID] = c
	s.mu.Unlock()
	return &c
}

func (s *memStore) addProduct(id, name, price string, stock int) *domain.Product {
	p := domain.Product{
		ID:         id,
		Name:       name,
		Slug:       id,
		Category:   "general",
		Price:      decimal.RequireFromString(price),
		StockCount: stock,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
	return &p
}

func (s *memStore) customer(username string) domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if c.Username == username {
			return c
		}
	}
	return domain.Customer{}
}

func (s *memStore) product(id string) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memStore) saleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sales)
}

func (s *memStore) allSales() []domain.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		out = append(out, sale)
	}
	return out
}

// --- customers ---

type memCustomers struct {
	s  *memStore
	tx *memTx
}

func (r memCustomers) Create(_ context.Context, c *domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.customers {
		if existing.Username == c.Username {
			return apperrors.AlreadyExists("customer", "username", c.Username)
		}
	}
	track(r.tx, r.s.customers, c.ID)
	r.s.customers[c.ID] = *c
	r.tx.record("insert customer:%s", c.Username)
	return nil
}

func (r memCustomers) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	r.s.mu.Lock()
	c, ok := r.s.customers[id]
	r.s.mu.Unlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	r.tx.record("read customer:%s", c.Username)
	r.s.pause()
	return &c, nil
}

func (r memCustomers) GetByUsername(_ context.Context, username string) (*domain.Customer, error) {
	c, ok := r.find(username)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	r.tx.record("read customer:%s", username)
	r.s.pause()
	return &c, nil
}

func (r memCustomers) find(username string) (domain.Customer, bool) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.customers {
		if c.Username == username {
			return c, true
		}
	}
	return domain.Customer{}, false
}

// LockByUsername takes the customer row lock and then reads the row, so the
// balance it returns cannot change until the unit of work ends.
func (r memCustomers) LockByUsername(ctx context.Context, username string) (*domain.Customer, error) {
	if r.tx == nil {
		return r.GetByUsername(ctx, username)
	}
	c, ok := r.find(username)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	r.tx.lockRow(customerKey(c.ID))
	r.tx.record("lock customer:%s", username)

	r.s.mu.Lock()
	c, ok = r.s.customers[c.ID]
	r.s.mu.Unlock()
	if !ok || c.Username != username {
		return nil, apperrors.ErrNotFound
	}
	r.s.pause()
	return &c, nil
}

func (r memCustomers) UpdateBalance(_ context.Context, id string, balance decimal.Decimal) error {
	if !r.tx.owns(customerKey(id)) {
		return errRowNotLocked
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return apperrors.NotFound("customer", id)
	}
	if balance.IsNegative() {
		return errCheckViolation
	}
	if balance.GreaterThan(domain.MaxAmount) {
		return apperrors.InvalidAmount("wallet balance is out of range")
	}
	track(r.tx, r.s.customers, id)
	c.WalletBalance = balance
	r.s.customers[id] = c
	r.tx.record("update balance:%s", c.Username)
	return nil
}

func (r memCustomers) UpdateProfile(_ context.Context, c *domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.customers[c.ID]
	if !ok {
		return apperrors.NotFound("customer", c.ID)
	}
	track(r.tx, r.s.customers, c.ID)
	balance := stored.WalletBalance
	stored = *c
	stored.WalletBalance = balance
	r.s.customers[c.ID] = stored
	r.tx.record("update profile:%s", c.Username)
	return nil
}

func (r memCustomers) SetRole(_ context.Context, id, role string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return apperrors.NotFound("customer", id)
	}
	track(r.tx, r.s.customers, id)
	c.Role = role
	r.s.customers[id] = c
	r.tx.record("update role:%s", c.Username)
	return nil
}

func (r memCustomers) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return apperrors.NotFound("customer", id)
	}
	track(r.tx, r.s.customers, id)
	delete(r.s.customers, id)
	for k := range r.s.wishlists {
		if k.customerID == id {
			track(r.tx, r.s.wishlists, k)
			delete(r.s.wishlists, k)
		}
	}
	for k, rev := range r.s.reviews {
		if rev.CustomerID == id {
			track(r.tx, r.s.reviews, k)
			delete(r.s.reviews, k)
		}
	}
	r.tx.record("delete customer:%s", c.Username)
	return nil
}

// --- products ---

type memProducts struct {
	s  *memStore
	tx *memTx
}

func (r memProducts) Create(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.products {
		if existing.Slug == p.Slug {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
	}
	track(r.tx, r.s.products, p.ID)
	r.s.products[p.ID] = *p
	r.tx.record("insert product:%s", p.ID)
	return nil
}

func (r memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.Lock()
	p, ok := r.s.products[id]
	r.s.mu.Unlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	r.tx.record("read product:%s", id)
	r.s.pause()
	return &p, nil
}

func (r memProducts) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.tx.record("read slug:%s", slug)
	for _, p := range r.s.products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// Lock takes the product row lock and then reads the row.
func (r memProducts) Lock(ctx context.Context, id string) (*domain.Product, error) {
	if r.tx == nil {
		return r.GetByID(ctx, id)
	}
	r.s.mu.Lock()
	_, ok := r.s.products[id]
	r.s.mu.Unlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	r.tx.lockRow(productKey(id))
	r.tx.record("lock product:%s", id)

	r.s.mu.Lock()
	p, ok := r.s.products[id]
	r.s.mu.Unlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	r.s.pause()
	return &p, nil
}

func (r memProducts) Update(_ context.Context, p *domain.Product) error {
	if !r.tx.owns(productKey(p.ID)) {
		return errRowNotLocked
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return apperrors.NotFound("product", p.ID)
	}
	if p.StockCount < 0 || p.Price.IsNegative() {
		return errCheckViolation
	}
	for _, other := range r.s.products {
		if other.ID != p.ID && other.Slug == p.Slug {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
	}
	track(r.tx, r.s.products, p.ID)
	r.s.products[p.ID] = *p
	r.tx.record("update product:%s", p.ID)
	return nil
}

func (r memProducts) UpdateStock(_ context.Context, id string, stock int) error {
	if !r.tx.owns(productKey(id)) {
		return errRowNotLocked
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return apperrors.NotFound("product", id)
	}
	if stock < 0 {
		return errCheckViolation
	}
	if stock > domain.MaxStock {
		return apperrors.InvalidQuantity("stock_count is out of range")
	}
	track(r.tx, r.s.products, id)
	p.StockCount = stock
	p.UpdatedAt = time.Now().UTC()
	r.s.products[id] = p
	r.tx.record("update stock:%s", id)
	return nil
}

func (r memProducts) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return apperrors.NotFound("product", id)
	}
	track(r.tx, r.s.products, id)
	delete(r.s.products, id)
	r.tx.record("delete product:%s", id)
	return nil
}

func (r memProducts) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Product{}
	for _, p := range r.s.products {
		if filter.Category == "" || p.Category == filter.Category {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, filter.Page, filter.PerPage), len(out), nil
}

// --- sales ---

type memSales struct {
	s  *memStore
	tx *memTx
}

func (r memSales) Create(_ context.Context, sale *domain.Sale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	track(r.tx, r.s.sales, sale.ID)
	r.s.sales[sale.ID] = *sale
	r.tx.record("insert sale")
	return nil
}

func (r memSales) GetByID(_ context.Context, id string) (*domain.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sale, ok := r.s.sales[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &sale, nil
}

func (r memSales) ListByCustomer(_ context.Context, customerID string, pageNum, perPage int) ([]domain.Sale, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Sale{}
	for _, sale := range r.s.sales {
		if sale.CustomerID == customerID {
			out = append(out, sale)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, pageNum, perPage), len(out), nil
}

// --- reviews ---

type memReviews struct {
	s  *memStore
	tx *memTx
}

func (r memReviews) Create(_ context.Context, review *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[review.ProductID]; !ok {
		return apperrors.NotFound("product", review.ProductID)
	}
	track(r.tx, r.s.reviews, review.ID)
	r.s.reviews[review.ID] = *review
	return nil
}

func (r memReviews) GetByID(_ context.Context, id string) (*domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	review, ok := r.s.reviews[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &review, nil
}

func (r memReviews) Update(_ context.Context, review *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[review.ID]; !ok {
		return apperrors.NotFound("review", review.ID)
	}
	track(r.tx, r.s.reviews, review.ID)
	r.s.reviews[review.ID] = *review
	return nil
}

func (r memReviews) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[id]; !ok {
		return apperrors.NotFound("review", id)
	}
	track(r.tx, r.s.reviews, id)
	delete(r.s.reviews, id)
	return nil
}

func (r memReviews) ListByProduct(_ context.Context, productID string) ([]domain.Review, error) {
	return r.list(func(rev domain.Review) bool {
		return rev.ProductID == productID && rev.Status != domain.ReviewStatusFlagged
	}), nil
}

func (r memReviews) ListByCustomer(_ context.Context, customerID string) ([]domain.Review, error) {
	return r.list(func(rev domain.Review) bool { return rev.CustomerID == customerID }), nil
}

func (r memReviews) list(keep func(domain.Review) bool) []domain.Review {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Review{}
	for _, rev := range r.s.reviews {
		if keep(rev) {
			out = append(out, rev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// --- wishlists ---

type memWishlists struct {
	s  *memStore
	tx *memTx
}

func (r memWishlists) Add(_ context.Context, customerID, productID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[productID]; !ok {
		return false, apperrors.NotFound("product", productID)
	}
	k := wishlistKey{customerID, productID}
	if _, ok := r.s.wishlists[k]; ok {
		return false, nil
	}
	track(r.tx, r.s.wishlists, k)
	r.s.wishlists[k] = time.Now().UTC()
	return true, nil
}

func (r memWishlists) Remove(_ context.Context, customerID, productID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := wishlistKey{customerID, productID}
	if _, ok := r.s.wishlists[k]; !ok {
		return apperrors.NotFound("wishlist item", productID)
	}
	track(r.tx, r.s.wishlists, k)
	delete(r.s.wishlists, k)
	return nil
}

func (r memWishlists) List(_ context.Context, customerID string, pageNum, perPage int) ([]domain.WishlistItem, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.WishlistItem{}
	for k, at := range r.s.wishlists {
		if k.customerID == customerID {
			out = append(out, domain.WishlistItem{CustomerID: k.customerID, ProductID: k.productID, CreatedAt: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return page(out, pageNum, perPage), len(out), nil
}

func page[T any](items []T, pageNum, perPage int) []T {
	if perPage <= 0 {
		return items
	}
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := min(start+perPage, len(items))
	return items[start:end]
}
