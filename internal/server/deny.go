package server

import (
	"errors"
	"net"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/woozymasta/mcping/internal/resolve"
)

// ErrDenied is returned for targets on the deny list.
var ErrDenied = errors.New("target is not allowed")

// DenyList is a set of hashed host names and IP addresses (using xxhash) that
// must never be queried. A nil *DenyList denies nothing.
type DenyList struct {
	hashes map[uint64]struct{}
}

// NewDenyList builds a DenyList from host names and IP literals.
// It returns nil for an empty list.
func NewDenyList(hosts []string) *DenyList {
	d := &DenyList{hashes: make(map[uint64]struct{})}
	for _, h := range hosts {
		if key := denyKey(h); key != "" {
			d.hashes[xxhash.Sum64String(key)] = struct{}{}
		}
	}
	if len(d.hashes) == 0 {
		return nil
	}
	return d
}

// Denied reports whether host is listed.
func (d *DenyList) Denied(host string) bool {
	if d == nil {
		return false
	}
	_, ok := d.hashes[xxhash.Sum64String(denyKey(host))]
	return ok
}

// Guard rejects resolved targets whose name or address is listed.
func (d *DenyList) Guard(t resolve.Target) error {
	if d.Denied(t.Hostname) || d.Denied(t.IP) {
		return ErrDenied
	}
	return nil
}

// denyKey normalizes a host name or IP literal.
func denyKey(host string) string {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return host
}
