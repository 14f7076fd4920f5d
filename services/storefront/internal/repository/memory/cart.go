// Package memory keeps carts in process memory. It backs single-instance
// deployments and tests.
package memory

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/NhuHoa123/stationery-storefront/pkg/errors"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/domain"
)

type entry struct {
	cart      *domain.Cart
	expiresAt time.Time
}

// CartRepository implements repository.CartRepository with a mutex-guarded map.
type CartRepository struct {
	mu    sync.Mutex
	carts map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

// NewCartRepository creates a repository. A ttl of zero keeps carts forever.
func NewCartRepository(ttl time.Duration) *CartRepository {
	return &CartRepository{
		carts: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (r *CartRepository) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lookup(sessionID)
	if !ok {
		return nil, apperrors.NotFound("cart", sessionID)
	}
	return e.cart.Clone(), nil
}

func (r *CartRepository) Save(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := 0
	if e, ok := r.lookup(cart.SessionID); ok {
		current = e.cart.Version
	}
	r.store(cart, current+1)
	return nil
}

func (r *CartRepository) SaveIfVersion(_ context.Context, cart *domain.Cart, expected int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := 0
	if e, ok := r.lookup(cart.SessionID); ok {
		current = e.cart.Version
	}
	if current != expected {
		return false, nil
	}
	r.store(cart, expected+1)
	return true, nil
}

func (r *CartRepository) DeleteIfVersion(_ context.Context, sessionID string, expected int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := 0
	if e, ok := r.lookup(sessionID); ok {
		current = e.cart.Version
	}
	if current != expected {
		return false, nil
	}
	delete(r.carts, sessionID)
	return true, nil
}

// Len returns the number of stored carts, expired ones included.
func (r *CartRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// lookup returns the live entry for a session, dropping it if expired.
// The caller holds r.mu.
func (r *CartRepository) lookup(sessionID string) (entry, bool) {
	e, ok := r.carts[sessionID]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !r.now().Before(e.expiresAt) {
		delete(r.carts, sessionID)
		return entry{}, false
	}
	return e, true
}

// store saves a copy of cart at the given version. The caller holds r.mu.
func (r *CartRepository) store(cart *domain.Cart, version int) {
	cart.Version = version
	e := entry{cart: cart.Clone()}
	if r.ttl > 0 {
		e.expiresAt = r.now().Add(r.ttl)
	}
	r.carts[cart.SessionID] = e
}
