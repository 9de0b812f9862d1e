package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func inTx(t *testing.T, store *memStore, fn func(ctx context.Context, ledger repository.Ledger) error) error {
	t.Helper()
	return store.WithinTx(context.Background(), fn)
}

// --- WalletManager ---

func TestWalletManager_Charge(t *testing.T) {
	store := newMemStore()
	store.addCustomer("alice", domain.RoleCustomer, "10.00")
	m := NewWalletManager()

	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		c, err := m.Charge(ctx, ledger, "alice", dec("5.25"))
		require.NoError(t, err)
		assert.Equal(t, "15.25", c.WalletBalance.StringFixed(2))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "15.25", store.customer("alice").WalletBalance.StringFixed(2))
}

func TestWalletManager_ChargeRejectsInvalidAmounts(t *testing.T) {
	tests := []struct {
		name   string
		amount string
	}{
		{"negative", "-5"},
		{"zero", "0"},
		{"three decimals", "1.005"},
		{"cents wrap int64", "184467440737095516.21"},
		{"one cent above storable", "92233720368547758.08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.addCustomer("alice", domain.RoleCustomer, "10.00")
			m := NewWalletManager()

			err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
				_, err := m.Charge(ctx, ledger, "alice", dec(tt.amount))
				return err
			})
			assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
			assert.Equal(t, "10.00", store.customer("alice").WalletBalance.StringFixed(2))
		})
	}
}

func TestWalletManager_ChargeBeyondStorableBalance(t *testing.T) {
	store := newMemStore()
	top := domain.MaxAmount.Sub(dec("1.00")).StringFixed(2)
	store.addCustomer("alice", domain.RoleCustomer, top)
	m := NewWalletManager()

	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		_, err := m.Charge(ctx, ledger, "alice", dec("1.01"))
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
	assert.Equal(t, top, store.customer("alice").WalletBalance.StringFixed(2))

	err = inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		_, err := m.Charge(ctx, ledger, "alice", dec("1.00"))
		return err
	})
	require.NoError(t, err)
	assert.True(t, store.customer("alice").WalletBalance.Equal(domain.MaxAmount))
}

func TestWalletManager_Deduct(t *testing.T) {
	store := newMemStore()
	store.addCustomer("alice", domain.RoleCustomer, "10.00")
	m := NewWalletManager()

	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		c, err := m.Deduct(ctx, ledger, "alice", dec("10.00"))
		require.NoError(t, err)
		assert.True(t, c.WalletBalance.IsZero())
		return nil
	})
	require.NoError(t, err)
}

func TestWalletManager_DeductInsufficientFunds(t *testing.T) {
	store := newMemStore()
	store.addCustomer("alice", domain.RoleCustomer, "10.00")
	m := NewWalletManager()

	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		_, err := m.Deduct(ctx, ledger, "alice", dec("10.01"))
		return err
	})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INSUFFICIENT_FUNDS", appErr.Code)
	assert.Equal(t, "10.00", store.customer("alice").WalletBalance.StringFixed(2))
}

func TestWalletManager_UnknownCustomer(t *testing.T) {
	store := newMemStore()
	m := NewWalletManager()

	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		_, err := m.Charge(ctx, ledger, "ghost", dec("1"))
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "customer ghost not found")
}

// --- InventoryManager ---

func TestInventoryManager_AddStock(t *testing.T) {
	store := newMemStore()
	store.addProduct("p-1", "Lamp", "30", 2)
	m := NewInventoryManager()

	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		p, err := m.AddStock(ctx, ledger, "p-1", 3)
		require.NoError(t, err)
		assert.Equal(t, 5, p.StockCount)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, store.product("p-1").StockCount)
}

func TestInventoryManager_AddStockZeroIsNoop(t *testing.T) {
	store := newMemStore()
	store.addProduct("p-1", "Lamp", "30", 2)
	m := NewInventoryManager()

	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		p, err := m.AddStock(ctx, ledger, "p-1", 0)
		require.NoError(t, err)
		assert.Equal(t, 2, p.StockCount)
		return nil
	})
	require.NoError(t, err)
}

func TestInventoryManager_AddStockNegative(t *testing.T) {
	store := newMemStore()
	store.addProduct("p-1", "Lamp", "30", 2)
	m := NewInventoryManager()

	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		_, err := m.AddStock(ctx, ledger, "p-1", -1)
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuantity)
}

func TestInventoryManager_AddStockBeyondMaximum(t *testing.T) {
	tests := []struct {
		name  string
		stock int
		delta int
	}{
		{"delta overflows int", 2, math.MaxInt},
		{"delta above column", 0, domain.MaxStock + 1},
		{"sum above column", domain.MaxStock - 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.addProduct("p-1", "Lamp", "30", tt.stock)
			m := NewInventoryManager()

			err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
				_, err := m.AddStock(ctx, ledger, "p-1", tt.delta)
				return err
			})
			assert.ErrorIs(t, err, apperrors.ErrInvalidQuantity)
			assert.Equal(t, tt.stock, store.product("p-1").StockCount)
		})
	}
}

func TestInventoryManager_AddStockUpToMaximum(t *testing.T) {
	store := newMemStore()
	store.addProduct("p-1", "Lamp", "30", domain.MaxStock-1)
	m := NewInventoryManager()

	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		_, err := m.AddStock(ctx, ledger, "p-1", 1)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxStock, store.product("p-1").StockCount)
}

func TestInventoryManager_DeductStock(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		wantErr  error
		want     int
	}{
		{"partial", 2, nil, 3},
		{"all", 5, nil, 0},
		{"zero", 0, apperrors.ErrInvalidQuantity, 5},
		{"negative", -1, apperrors.ErrInvalidQuantity, 5},
		{"more than stock", 6, apperrors.ErrInsufficientStock, 5},
		{"above column", math.MaxInt, apperrors.ErrInvalidQuantity, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.addProduct("p-1", "Lamp", "30", 5)
			m := NewInventoryManager()

			err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
				_, err := m.DeductStock(ctx, ledger, "p-1", tt.quantity)
				return err
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, store.product("p-1").StockCount)
		})
	}
}

func TestInventoryManager_DeductStockUnknownProduct(t *testing.T) {
	store := newMemStore()
	m := NewInventoryManager()

	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		_, err := m.DeductStock(ctx, ledger, "missing", 1)
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInventoryManager_UpdatePartial(t *testing.T) {
	store := newMemStore()
	store.addProduct("p-1", "Lamp", "30", 5)
	m := NewInventoryManager()

	price := dec("45.50")
	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		_, err := m.Update(ctx, ledger, "p-1", domain.ProductPatch{Price: &price})
		return err
	})
	require.NoError(t, err)

	got := store.product("p-1")
	assert.Equal(t, "45.50", got.Price.StringFixed(2))
	assert.Equal(t, "Lamp", got.Name)
	assert.Equal(t, 5, got.StockCount)
}

func TestInventoryManager_UpdateValidation(t *testing.T) {
	negPrice := dec("-1")
	negStock := -3
	hugeStock := domain.MaxStock + 1
	empty := "  "

	tests := []struct {
		name    string
		patch   domain.ProductPatch
		wantErr error
	}{
		{"negative price", domain.ProductPatch{Price: &negPrice}, apperrors.ErrInvalidAmount},
		{"negative stock", domain.ProductPatch{StockCount: &negStock}, apperrors.ErrInvalidQuantity},
		{"stock above column", domain.ProductPatch{StockCount: &hugeStock}, apperrors.ErrInvalidQuantity},
		{"blank name", domain.ProductPatch{Name: &empty}, apperrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.addProduct("p-1", "Lamp", "30", 5)
			m := NewInventoryManager()

			err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
				_, err := m.Update(ctx, ledger, "p-1", tt.patch)
				return err
			})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, "30.00", store.product("p-1").Price.StringFixed(2))
		})
	}
}

func TestInventoryManager_RenameRegeneratesSlug(t *testing.T) {
	store := newMemStore()
	store.addProduct("p-1", "Lamp", "30", 5)
	m := NewInventoryManager()

	name := "Desk Lamp"
	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		_, err := m.Update(ctx, ledger, "p-1", domain.ProductPatch{Name: &name})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", store.product("p-1").Name)
	assert.Equal(t, "desk-lamp", store.product("p-1").Slug)
}

func TestInventoryManager_RenameOntoTakenSlugGetsSuffix(t *testing.T) {
	store := newMemStore()
	store.addProduct("desk-lamp", "Desk Lamp", "40", 1)
	store.addProduct("p-1", "Lamp", "30", 5)
	m := NewInventoryManager()

	name := "Desk Lamp"
	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		_, err := m.Update(ctx, ledger, "p-1", domain.ProductPatch{Name: &name})
		return err
	})
	require.NoError(t, err)

	got := store.product("p-1").Slug
	assert.True(t, strings.HasPrefix(got, "desk-lamp-"), "slug %q", got)
	assert.Len(t, got, len("desk-lamp-")+6)
	assert.Equal(t, "desk-lamp", store.product("desk-lamp").Slug)
}

// --- Row locking ---

// Every balance or stock change must lock its row before reading it. The
// journal records lock, read and write calls in order; a read of a row that
// is later written would mean the check ran on an unlocked value.
func TestManagers_LockBeforeWrite(t *testing.T) {
	price := dec("45.50")
	tests := []struct {
		name string
		run  func(ctx context.Context, ledger repository.Ledger) error
		want []string
	}{
		{
			name: "charge",
			run: func(ctx context.Context, ledger repository.Ledger) error {
				_, err := NewWalletManager().Charge(ctx, ledger, "alice", dec("5"))
				return err
			},
			want: []string{"lock customer:alice", "update balance:alice"},
		},
		{
			name: "deduct",
			run: func(ctx context.Context, ledger repository.Ledger) error {
				_, err := NewWalletManager().Deduct(ctx, ledger, "alice", dec("5"))
				return err
			},
			want: []string{"lock customer:alice", "update balance:alice"},
		},
		{
			name: "add stock",
			run: func(ctx context.Context, ledger repository.Ledger) error {
				_, err := NewInventoryManager().AddStock(ctx, ledger, "p-1", 2)
				return err
			},
			want: []string{"lock product:p-1", "update stock:p-1"},
		},
		{
			name: "deduct stock",
			run: func(ctx context.Context, ledger repository.Ledger) error {
				_, err := NewInventoryManager().DeductStock(ctx, ledger, "p-1", 2)
				return err
			},
			want: []string{"lock product:p-1", "update stock:p-1"},
		},
		{
			name: "update price",
			run: func(ctx context.Context, ledger repository.Ledger) error {
				_, err := NewInventoryManager().Update(ctx, ledger, "p-1", domain.ProductPatch{Price: &price})
				return err
			},
			want: []string{"lock product:p-1", "update product:p-1"},
		},
		{
			name: "insufficient funds",
			run: func(ctx context.Context, ledger repository.Ledger) error {
				_, err := NewWalletManager().Deduct(ctx, ledger, "alice", dec("500"))
				return err
			},
			want: []string{"lock customer:alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.addCustomer("alice", domain.RoleCustomer, "10.00")
			store.addProduct("p-1", "Lamp", "30", 5)

			_ = inTx(t, store, tt.run)
			assert.Equal(t, tt.want, store.lastJournal())
		})
	}
}

func TestMemStore_RejectsUnlockedWrites(t *testing.T) {
	store := newMemStore()
	alice := store.addCustomer("alice", domain.RoleCustomer, "10.00")
	store.addProduct("p-1", "Lamp", "30", 5)

	err := inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		c, err := ledger.Customers().GetByUsername(ctx, "alice")
		require.NoError(t, err)
		return ledger.Customers().UpdateBalance(ctx, c.ID, c.WalletBalance.Add(dec("1")))
	})
	assert.ErrorIs(t, err, errRowNotLocked)

	err = inTx(t, store, func(ctx context.Context, ledger repository.Ledger) error {
		return ledger.Products().UpdateStock(ctx, "p-1", 4)
	})
	assert.ErrorIs(t, err, errRowNotLocked)

	assert.Equal(t, "10.00", store.customer(alice.Username).WalletBalance.StringFixed(2))
	assert.Equal(t, 5, store.product("p-1").StockCount)
}

func TestMemStore_RowLockBlocksSecondUnitOfWork(t *testing.T) {
	store := newMemStore()
	store.addProduct("p-1", "Lamp", "30", 5)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = store.WithinTx(context.Background(), func(ctx context.Context, ledger repository.Ledger) error {
			_, err := ledger.Products().Lock(ctx, "p-1")
			close(locked)
			<-release
			return err
		})
	}()
	<-locked

	go func() {
		defer close(done)
		_ = store.WithinTx(context.Background(), func(ctx context.Context, ledger repository.Ledger) error {
			_, err := ledger.Products().Lock(ctx, "p-1")
			return err
		})
	}()

	select {
	case <-done:
		t.Fatal("second unit of work took a held row lock")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("row lock was not released at the end of the unit of work")
	}
}

func TestWalletManager_ConcurrentDeducts(t *testing.T) {
	store := newMemStore()
	store.addCustomer("alice", domain.RoleCustomer, "50.00")
	store.readDelay = 5 * time.Millisecond
	m := NewWalletManager()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.WithinTx(context.Background(), func(ctx context.Context, ledger repository.Ledger) error {
				_, err := m.Deduct(ctx, ledger, "alice", dec("10.00"))
				return err
			})
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, apperrors.ErrInsufficientFunds):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 5, successes)
	assert.True(t, store.customer("alice").WalletBalance.IsZero())
}

func TestInventoryManager_ConcurrentDeductStock(t *testing.T) {
	store := newMemStore()
	store.addProduct("p-1", "Lamp", "30", 3)
	store.readDelay = 5 * time.Millisecond
	m := NewInventoryManager()

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.WithinTx(context.Background(), func(ctx context.Context, ledger repository.Ledger) error {
				_, err := m.DeductStock(ctx, ledger, "p-1", 1)
				return err
			})
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, apperrors.ErrInsufficientStock):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, successes)
	assert.Zero(t, store.product("p-1").StockCount)
}
