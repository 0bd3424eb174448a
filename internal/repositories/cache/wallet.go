// Package cache provides the Redis-backed wallet read cache. The cache is a
// convenience projection only; the transaction ledger remains the source of
// truth and every mutation invalidates the cached summary.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const walletKeyPrefix = "wallet:summary:"

// WalletSummary is the cached read model of a wallet.
type WalletSummary struct {
	WalletID      uuid.UUID                  `json:"wallet_id"`
	UserID        uuid.UUID                  `json:"user_id"`
	IsActive      bool                       `json:"is_active"`
	Balances      map[string]decimal.Decimal `json:"balances"`
	CreditLimit   decimal.Decimal            `json:"credit_limit"`
	CreditBalance decimal.Decimal            `json:"credit_balance"`
	CachedAt      time.Time                  `json:"cached_at"`
}

type WalletCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWalletCache(client *redis.Client, ttl time.Duration) *WalletCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &WalletCache{client: client, ttl: ttl}
}

func (c *WalletCache) Get(ctx context.Context, userID uuid.UUID) (*WalletSummary, bool, error) {
	data, err := c.client.Get(ctx, walletKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read wallet cache: %w", err)
	}
	var summary WalletSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, false, fmt.Errorf("failed to decode wallet cache: %w", err)
	}
	return &summary, true, nil
}

func (c *WalletCache) Set(ctx context.Context, summary *WalletSummary) error {
	summary.CachedAt = time.Now().UTC()
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode wallet cache: %w", err)
	}
	return c.client.Set(ctx, walletKey(summary.UserID), data, c.ttl).Err()
}

func (c *WalletCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, walletKey(userID)).Err()
}

func walletKey(userID uuid.UUID) string {
	return walletKeyPrefix + userID.String()
}
