package geo

import (
	"context"
	"strings"
	"time"

	"github.com/pariz/gountries"
)

// Location is a best-effort geolocation result. An empty field means
// the source could not resolve it; absence is never an error.
type Location struct {
	Country string
	Region  string
	City    string
}

func (l Location) Complete() bool {
	return l.Country != "" && l.Region != "" && l.City != ""
}

// merge fills only fields still absent in l. First non-empty wins per
// field, not per stage.
func (l Location) merge(other Location) Location {
	if l.Country == "" {
		l.Country = other.Country
	}
	if l.Region == "" {
		l.Region = other.Region
	}
	if l.City == "" {
		l.City = other.City
	}
	return l
}

// GeoDB looks up a client IP in a local geolocation database. A miss
// returns an empty Location, not an error.
type GeoDB interface {
	Lookup(ctx context.Context, ip string) (Location, error)
}

// Resolver runs an ordered list of geolocation stages: CDN edge
// headers, platform proxy headers, then the IP database. Each stage
// only contributes fields the previous stages left absent, and the
// cascade stops as soon as all three fields are filled.
type Resolver struct {
	countries     *gountries.Query
	db            GeoDB
	lookupTimeout time.Duration
}

// NewResolver builds a resolver around an injected database handle.
// db may be nil, in which case the database stage is skipped.
func NewResolver(db GeoDB, lookupTimeout time.Duration) *Resolver {
	if lookupTimeout <= 0 {
		lookupTimeout = 500 * time.Millisecond
	}
	return &Resolver{
		countries:     gountries.New(),
		db:            db,
		lookupTimeout: lookupTimeout,
	}
}

type stageFn func(ctx context.Context, get HeaderGetter) Location

// Resolve produces the request's approximate location. Enrichment is
// best-effort: every failure mode degrades to absent fields.
func (r *Resolver) Resolve(ctx context.Context, get HeaderGetter) Location {
	stages := []stageFn{
		r.edgeHeaders,
		r.proxyHeaders,
		r.databaseLookup,
	}

	var loc Location
	for _, stage := range stages {
		loc = loc.merge(stage(ctx, get))
		if loc.Complete() {
			break
		}
	}
	return loc
}

// edgeHeaders reads Cloudflare-injected geolocation hints. The region
// arrives as an ISO 3166-2 subdivision code and is resolved to its
// human-readable name using the country code as context.
func (r *Resolver) edgeHeaders(_ context.Context, get HeaderGetter) Location {
	country := get("CF-IPCountry")
	return Location{
		Country: country,
		Region:  r.subdivisionName(country, get("CF-Region-Code")),
		City:    get("CF-IPCity"),
	}
}

// proxyHeaders reads the hosting platform's geolocation hints, same
// shape as the edge stage under different names.
func (r *Resolver) proxyHeaders(_ context.Context, get HeaderGetter) Location {
	country := get("X-Vercel-IP-Country")
	return Location{
		Country: country,
		Region:  r.subdivisionName(country, get("X-Vercel-IP-Country-Region")),
		City:    get("X-Vercel-IP-City"),
	}
}

// databaseLookup fills remaining fields from the local IP database.
// Skipped when no handle is configured or no client IP was resolved.
func (r *Resolver) databaseLookup(ctx context.Context, get HeaderGetter) Location {
	if r.db == nil {
		return Location{}
	}
	ip := ClientIP(get)
	if ip == "" {
		return Location{}
	}

	ctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	loc, err := r.db.Lookup(ctx, ip)
	if err != nil {
		return Location{}
	}
	return loc
}

// subdivisionName resolves an ISO 3166-2 region code ("CA", "BE") to
// its subdivision name within the given country. Returns "" on any
// miss; codes are normalized to uppercase before lookup.
func (r *Resolver) subdivisionName(countryCode, regionCode string) string {
	if countryCode == "" || regionCode == "" {
		return ""
	}

	country, err := r.countries.FindCountryByAlpha(strings.ToUpper(countryCode))
	if err != nil {
		return ""
	}

	regionCode = strings.ToUpper(regionCode)
	for _, sub := range country.SubDivisions() {
		if strings.ToUpper(sub.Code) == regionCode {
			return sub.Name
		}
	}
	return ""
}
