package enrich

import (
	"context"
	"math"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retreat-leads/internal/cache"
	"github.com/sells-group/retreat-leads/internal/model"
	"github.com/sells-group/retreat-leads/pkg/google"
)

// earthRadiusMiles is the mean Earth radius used for distances.
const earthRadiusMiles = 3959.0

// Venue is the home venue distances are measured from.
type Venue struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Places matches organizers against Google Places. Results, including
// misses, are memoized for the run and kept in the durable cache keyed by
// query.
type Places struct {
	client google.Client
	store  cache.Cache
	memo   *gocache.Cache
	venue  Venue
}

// NewPlaces creates a Places matcher. store may be nil to skip durable caching.
func NewPlaces(client google.Client, store cache.Cache, venue Venue) *Places {
	return &Places{
		client: client,
		store:  store,
		memo:   gocache.New(gocache.NoExpiration, 0),
		venue:  venue,
	}
}

// PlacesQuery builds the text search for an organizer: its name, the
// location of its first event, and "retreat" unless the name already says so.
func PlacesQuery(name, location string) string {
	parts := make([]string, 0, 3)
	if name = strings.TrimSpace(name); name != "" {
		parts = append(parts, name)
	}
	if location = strings.TrimSpace(location); location != "" {
		parts = append(parts, location)
	}
	if len(parts) == 0 {
		return ""
	}
	if !strings.Contains(strings.ToLower(name), "retreat") {
		parts = append(parts, "retreat")
	}
	return strings.Join(parts, " ")
}

// Lookup returns the first Places match for query. A blank query is a miss
// without an API call.
func (p *Places) Lookup(ctx context.Context, query string) (model.PlaceResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.PlaceResult{}, nil
	}

	if v, ok := p.memo.Get(query); ok {
		return v.(model.PlaceResult), nil
	}

	if p.store != nil {
		var cached model.PlaceResult
		hit, err := cache.GetJSON(ctx, p.store, query, &cached)
		if err != nil {
			zap.L().Warn("enrich: places cache read failed", zap.String("query", query), zap.Error(err))
		} else if hit {
			p.memo.Set(query, cached, gocache.NoExpiration)
			return cached, nil
		}
	}

	resp, err := p.client.TextSearch(ctx, query)
	if err != nil {
		return model.PlaceResult{}, eris.Wrapf(err, "enrich: places search %q", query)
	}

	var res model.PlaceResult
	if resp != nil && len(resp.Places) > 0 {
		res = p.fromPlace(resp.Places[0])
	}

	p.memo.Set(query, res, gocache.NoExpiration)
	if p.store != nil {
		if err := cache.PutJSON(ctx, p.store, query, res); err != nil {
			zap.L().Warn("enrich: places cache write failed", zap.String("query", query), zap.Error(err))
		}
	}

	zap.L().Debug("enrich: places lookup",
		zap.String("query", query),
		zap.Bool("found", res.Found),
		zap.String("place", res.BusinessName),
	)
	return res, nil
}

func (p *Places) fromPlace(pl google.Place) model.PlaceResult {
	res := model.PlaceResult{
		Found:            true,
		PlaceID:          pl.ID,
		BusinessName:     pl.DisplayName.Text,
		FormattedAddress: pl.FormattedAddress,
		Phone:            pl.Phone(),
		Website:          pl.WebsiteURI,
		MapsURL:          pl.GoogleMapsURI,
		Rating:           pl.Rating,
		ReviewCount:      pl.UserRatingCount,
	}
	if pl.Location != nil {
		res.Latitude = pl.Location.Latitude
		res.Longitude = pl.Location.Longitude
		res.DistanceMiles = math.Round(Haversine(
			pl.Location.Latitude, pl.Location.Longitude,
			p.venue.Latitude, p.venue.Longitude,
		)*10) / 10
	}
	return res
}

// Haversine returns the great-circle distance in miles between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
