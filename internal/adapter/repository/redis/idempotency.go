package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/adledger/internal/usecase"
)

// IdempotencyStore implements usecase.IdempotencyStore using Redis.
//
// A key moves from a pending claim written with SETNX to the completed
// response. Both are JSON-encoded usecase.StoredResponse values.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "adledger:idempotency:",
	}
}

// Reserve claims key. It returns nil when the caller now owns the key and the
// stored entry otherwise.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (*usecase.StoredResponse, error) {
	fullKey := s.prefix + key

	claim, err := json.Marshal(usecase.StoredResponse{Fingerprint: fingerprint, Pending: true})
	if err != nil {
		return nil, err
	}

	set, err := s.client.SetNX(ctx, fullKey, claim, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if set {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, fullKey).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		set, err = s.client.SetNX(ctx, fullKey, claim, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if set {
			return nil, nil
		}
		raw, err = s.client.Get(ctx, fullKey).Bytes()
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	var existing usecase.StoredResponse
	if err := json.Unmarshal(raw, &existing); err != nil {
		return nil, fmt.Errorf("decode idempotency key: %w", err)
	}

	return &existing, nil
}

// Complete stores the final response, replacing the pending claim.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, response usecase.StoredResponse, ttl time.Duration) error {
	response.Pending = false

	raw, err := json.Marshal(response)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.prefix+key, raw, ttl).Err()
}

// Release drops a claim so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
