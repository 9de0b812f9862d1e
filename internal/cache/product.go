package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
)

const productKeyPrefix = "storefront:product:"

// ProductCache is a Redis read-through cache for single products.
type ProductCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewProductCache creates a product cache whose entries expire after ttl.
func NewProductCache(client redis.UniversalClient, ttl time.Duration) *ProductCache {
	return &ProductCache{
		client: client,
		ttl:    ttl,
	}
}

func productKey(id string) string {
	return productKeyPrefix + id
}

// Get returns the cached product. The boolean is false on a cache miss.
func (c *ProductCache) Get(ctx context.Context, id string) (*domain.Product, bool, error) {
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get product: %w", err)
	}

	var product domain.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, false, fmt.Errorf("unmarshal product: %w", err)
	}

	return &product, true, nil
}

// Set stores product with the configured TTL.
func (c *ProductCache) Set(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	if err := c.client.Set(ctx, productKey(product.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set product: %w", err)
	}

	return nil
}

// Invalidate removes a product from the cache. Missing keys are not an error.
func (c *ProductCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, productKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del product: %w", err)
	}
	return nil
}
