package geoip

import (
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// maxCached bounds the per-IP answer cache. Tracked servers are re-checked
// over and over from the same few addresses.
const maxCached = 4096

// Provider resolves server IP addresses to ISO country codes.
// A nil *Provider is valid and resolves every address to "".
type Provider struct {
	db    *geoip2.Reader
	cache map[string]string
	mu    sync.Mutex
}

// Open initializes the GeoIP database reader from a specific file path.
func Open(path string) (*Provider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return &Provider{db: db, cache: make(map[string]string)}, nil
}

// Close closes the underlying GeoIP database reader.
func (p *Provider) Close() error {
	if p == nil {
		return nil
	}
	return p.db.Close()
}

// CountryCode returns the ISO country code (e.g., "US", "DE") of a server IP.
// Addresses that are invalid, not publicly routable or unknown give "".
func (p *Provider) CountryCode(ipStr string) string {
	if p == nil {
		return ""
	}

	ip := net.ParseIP(ipStr)
	if !routable(ip) {
		return ""
	}
	key := ip.String()

	p.mu.Lock()
	code, ok := p.cache[key]
	p.mu.Unlock()
	if ok {
		return code
	}

	if record, err := p.db.Country(ip); err == nil {
		code = record.Country.IsoCode
	}

	p.mu.Lock()
	if len(p.cache) >= maxCached {
		clear(p.cache)
	}
	p.cache[key] = code
	p.mu.Unlock()

	return code
}

func routable(ip net.IP) bool {
	return ip != nil &&
		!ip.IsUnspecified() &&
		!ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsMulticast()
}
