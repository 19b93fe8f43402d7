package ports

import (
	"context"
	"time"

	"delyva-shipping-layer/internal/domain"
)

// EncryptionService encrypts credentials before storage and decrypts them
// after retrieval.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// QuoteCache is a short-TTL cache in front of the instant-quote call. The
// rate callback blocks checkout, so repeat quotes for the same parcel are
// served from cache. Implementations derive the cache key from the quote
// inputs. Get returns (nil, nil) on a miss; cache errors must be treated
// as misses, never surfaced to the caller.
type QuoteCache interface {
	Get(ctx context.Context, locationID string, origin, destination domain.Address, weightKg float64) ([]domain.Rate, error)
	Set(ctx context.Context, locationID string, origin, destination domain.Address, weightKg float64, rates []domain.Rate, ttl time.Duration) error
}
