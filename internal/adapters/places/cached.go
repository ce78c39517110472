package places

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"dishmap/internal/domain"
)

// CachedGateway memoizes Details responses. Entries are only ever written from a
// fresh upstream response, so the newest provider data always replaces older entries.
// Cache failures fall through to the provider.
type CachedGateway struct {
	domain.PlacesGateway
	cache domain.Cache
	ttl   time.Duration
}

func NewCachedGateway(inner domain.PlacesGateway, cache domain.Cache, ttl time.Duration) *CachedGateway {
	return &CachedGateway{PlacesGateway: inner, cache: cache, ttl: ttl}
}

func detailsKey(placeID string, fields []string) string {
	return "place:" + placeID + ":" + strings.Join(fields, ",")
}

func (g *CachedGateway) Details(ctx context.Context, placeID string, fields []string) (domain.PlaceDetails, error) {
	key := detailsKey(placeID, fields)
	var d domain.PlaceDetails
	if ok, err := g.cache.Get(ctx, key, &d); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("details cache read failed")
	} else if ok {
		return d, nil
	}

	d, err := g.PlacesGateway.Details(ctx, placeID, fields)
	if err != nil {
		return domain.PlaceDetails{}, err
	}
	if err := g.cache.Set(ctx, key, d, int(g.ttl.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("details cache write failed")
	}
	return d, nil
}
