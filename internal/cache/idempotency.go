package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	saleKeyPrefix = "storefront:sale-idempotency:"
	inFlightValue = "in-flight"
)

// ReservationState describes what Reserve found for an idempotency key.
type ReservationState int

const (
	// Reserved means the caller now owns the key and must Complete or Release it.
	Reserved ReservationState = iota
	// InFlight means another request holding the same key has not finished.
	InFlight
	// Completed means a sale already exists for the key.
	Completed
)

// Reservation is the result of Reserve.
type Reservation struct {
	State  ReservationState
	SaleID string
}

// SaleIdempotency tracks Idempotency-Key headers on sale requests. Keys are
// scoped per customer so two customers can reuse the same header value.
type SaleIdempotency struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSaleIdempotency creates a key store whose entries expire after ttl.
func NewSaleIdempotency(client redis.UniversalClient, ttl time.Duration) *SaleIdempotency {
	return &SaleIdempotency{
		client: client,
		ttl:    ttl,
	}
}

func saleKey(customerID, key string) string {
	return saleKeyPrefix + customerID + ":" + key
}

// Reserve claims key for customerID with SET NX. When the key is already
// taken it reports whether the earlier request is still running or which
// sale it produced.
func (s *SaleIdempotency) Reserve(ctx context.Context, customerID, key string) (Reservation, error) {
	k := saleKey(customerID, key)

	// Two attempts cover a key expiring between SET NX and GET.
	for range 2 {
		ok, err := s.client.SetNX(ctx, k, inFlightValue, s.ttl).Result()
		if err != nil {
			return Reservation{}, fmt.Errorf("redis reserve idempotency key: %w", err)
		}
		if ok {
			return Reservation{State: Reserved}, nil
		}

		value, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Reservation{}, fmt.Errorf("redis get idempotency key: %w", err)
		}
		if value == inFlightValue {
			return Reservation{State: InFlight}, nil
		}
		return Reservation{State: Completed, SaleID: value}, nil
	}

	return Reservation{State: InFlight}, nil
}

// Complete records the sale produced under key.
func (s *SaleIdempotency) Complete(ctx context.Context, customerID, key, saleID string) error {
	if err := s.client.Set(ctx, saleKey(customerID, key), saleID, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis complete idempotency key: %w", err)
	}
	return nil
}

// Release frees key after a failed sale so the client may retry with it.
func (s *SaleIdempotency) Release(ctx context.Context, customerID, key string) error {
	if err := s.client.Del(ctx, saleKey(customerID, key)).Err(); err != nil {
		return fmt.Errorf("redis release idempotency key: %w", err)
	}
	return nil
}
