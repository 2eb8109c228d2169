package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// MaxMindDB adapts a MaxMind City database file to the GeoDB
// interface. The reader is read-only and safe for concurrent use; it
// is opened once at startup and closed at process shutdown.
type MaxMindDB struct {
	reader *geoip2.Reader
}

func OpenMaxMindDB(path string) (*MaxMindDB, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geolocation database: %w", err)
	}
	return &MaxMindDB{reader: reader}, nil
}

// Lookup returns English-locale names for the address. Unparseable
// addresses and records without data yield an empty Location.
func (m *MaxMindDB) Lookup(ctx context.Context, ip string) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}, nil
	}

	record, err := m.reader.City(parsed)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation lookup: %w", err)
	}

	loc := Location{
		Country: record.Country.Names["en"],
		City:    record.City.Names["en"],
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
	}
	return loc, nil
}

func (m *MaxMindDB) Close() error {
	return m.reader.Close()
}
