package repository

import (
	"context"

	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/domain"
)

// CartRepository stores one cart per shopper session. Implementations
// return independent copies so callers may mutate what they load.
type CartRepository interface {
	// Get returns the session's cart or a NotFound AppError.
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)

	// Save overwrites the session's cart and bumps its version.
	Save(ctx context.Context, cart *domain.Cart) error

	// SaveIfVersion stores cart only if the stored version still equals
	// expected (0 when no cart is stored). On success cart.Version becomes
	// expected+1. A lost race returns false and a nil error.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int) (bool, error)

	// DeleteIfVersion removes the session's cart only if the stored version
	// still equals expected. A missing cart counts as version 0, so
	// deleting it with expected 0 succeeds. A lost race returns false and a
	// nil error.
	DeleteIfVersion(ctx context.Context, sessionID string, expected int) (bool, error)
}
