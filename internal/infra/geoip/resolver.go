// Package geoip resolves visitor countries for locale detection.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
	gocache "github.com/patrickmn/go-cache"
)

// ErrUnavailable is returned when the resolver is not initialized.
var ErrUnavailable = errors.New("geoip resolver unavailable")

const lookupTTL = 30 * time.Minute

// CountryResolver resolves ISO country codes from IP addresses.
type CountryResolver interface {
	CountryCode(ip string) (string, error)
}

// Resolver looks countries up in a MaxMind database and remembers recent
// answers per IP.
type Resolver struct {
	reader *geoip2.Reader
	recent *gocache.Cache
}

// NewResolver opens the GeoIP database at path. An empty path yields a nil
// resolver and no error; locale detection then relies on headers only.
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return &Resolver{reader: reader, recent: gocache.New(lookupTTL, 2*lookupTTL)}, nil
}

// CountryCode returns the ISO country code for ip, or "" when the database
// has no answer.
func (r *Resolver) CountryCode(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return "", ErrUnavailable
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	key := parsed.String()
	if v, ok := r.recent.Get(key); ok {
		return v.(string), nil
	}
	record, err := r.reader.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	code := ""
	if record != nil {
		code = strings.ToUpper(record.Country.IsoCode)
	}
	r.recent.SetDefault(key, code)
	return code, nil
}

// Close closes the underlying database reader.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}
