package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/NhuHoa123/stationery-storefront/pkg/errors"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/domain"
)

const keyPrefix = "cart:"

var errVersionMismatch = errors.New("cart version mismatch")

// CartRepository implements repository.CartRepository using Redis. Each cart
// is a JSON snapshot under cart:<session> whose TTL is refreshed on save.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Get retrieves a session's cart from Redis.
func (r *CartRepository) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", sessionID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &cart, nil
}

// Save overwrites the stored cart without a version check.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	k := key(cart.SessionID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, k)
		if err != nil {
			return err
		}
		return r.write(ctx, tx, k, cart, current+1)
	}, k)
	if err != nil {
		return fmt.Errorf("redis save cart: %w", err)
	}
	return nil
}

// SaveIfVersion writes the cart inside a WATCH transaction so that a
// concurrent writer on the same key makes it fail instead of overwrite.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int) (bool, error) {
	k := key(cart.SessionID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, k)
		if err != nil {
			return err
		}
		if current != expected {
			return errVersionMismatch
		}
		return r.write(ctx, tx, k, cart, expected+1)
	}, k)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errVersionMismatch), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("redis save cart: %w", err)
	}
}

// DeleteIfVersion removes the cart under the same WATCH guard as
// SaveIfVersion.
func (r *CartRepository) DeleteIfVersion(ctx context.Context, sessionID string, expected int) (bool, error) {
	k := key(sessionID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, k)
		if err != nil {
			return err
		}
		if current != expected {
			return errVersionMismatch
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, k)
			return nil
		})
		return err
	}, k)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errVersionMismatch), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("redis del cart: %w", err)
	}
}

func (r *CartRepository) write(ctx context.Context, tx *redis.Tx, k string, cart *domain.Cart, version int) error {
	prev := cart.Version
	cart.Version = version

	data, err := json.Marshal(cart)
	if err != nil {
		cart.Version = prev
		return fmt.Errorf("marshal cart: %w", err)
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, k, data, r.ttl)
		return nil
	})
	if err != nil {
		cart.Version = prev
	}
	return err
}

func storedVersion(ctx context.Context, tx *redis.Tx, k string) (int, error) {
	data, err := tx.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read stored cart: %w", err)
	}

	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, fmt.Errorf("unmarshal stored cart: %w", err)
	}
	return head.Version, nil
}
