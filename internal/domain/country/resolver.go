// internal/domain/country/resolver.go
package country

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
)

// Resolver picks the destination for a request: the signed-in buyer's saved
// preference, then the stored cookie value, then the configured default.
type Resolver struct {
	redisClient *redis.Client
	fallback    Destination
	logger      *logrus.Logger
}

// NewResolver creates a new country resolver
func NewResolver(redisClient *redis.Client, cfg config.CheckoutConfig, logger *logrus.Logger) *Resolver {
	return &Resolver{
		redisClient: redisClient,
		fallback: Destination{
			Name: cfg.DefaultCountryName,
			Code: cfg.DefaultCountryCode,
		}.Normalize(),
		logger: logger,
	}
}

func userKey(userID uint) string {
	return fmt.Sprintf("user_country:%d", userID)
}

// Default returns the configured fallback destination
func (r *Resolver) Default() Destination {
	return r.fallback
}

// Resolve never fails: unreadable preferences are skipped with a warning
func (r *Resolver) Resolve(ctx context.Context, userID *uint, stored string) Destination {
	if userID != nil && r.redisClient != nil {
		val, err := r.redisClient.Get(ctx, userKey(*userID)).Result()
		switch {
		case err == nil:
			if d, perr := Parse(val); perr == nil {
				return d
			}
			r.logger.WithField("user_id", *userID).Warn("Ignoring malformed saved country preference")
		case !errors.Is(err, redis.Nil):
			r.logger.WithError(err).WithField("user_id", *userID).Warn("Failed to read saved country preference")
		}
	}

	if stored != "" {
		if d, err := Parse(stored); err == nil {
			return d
		}
		r.logger.WithField("value", stored).Debug("Ignoring malformed country cookie")
	}

	return r.fallback
}

// Save persists the preference for a signed-in buyer. Guests keep theirs in
// the cookie only.
func (r *Resolver) Save(ctx context.Context, userID *uint, d Destination) (Destination, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return Destination{}, err
	}
	if userID == nil || r.redisClient == nil {
		return d, nil
	}

	if err := r.redisClient.Set(ctx, userKey(*userID), d.Encode(), 0).Err(); err != nil {
		return Destination{}, apperrors.Wrap(apperrors.KindPersistence, "failed to save country preference", err)
	}
	return d, nil
}
