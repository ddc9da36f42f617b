// Package resolve turns a user supplied server address into a dialable target,
// following the _minecraft._tcp SRV record for Java addresses without a port.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrInvalidAddress is returned for addresses that can not be parsed.
var ErrInvalidAddress = errors.New("invalid address")

// Target is a resolved server endpoint.
type Target struct {
	// Hostname is the name announced to the server (SRV target when one was used).
	Hostname string
	// IP is the address dialed.
	IP string
	// Port is the port dialed.
	Port int
	// SRV reports whether an SRV record supplied Hostname and Port.
	SRV bool
}

// Address returns IP:Port.
func (t Target) Address() string {
	return net.JoinHostPort(t.IP, strconv.Itoa(t.Port))
}

// Lookup is the subset of *net.Resolver used here.
type Lookup interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Resolver resolves addresses for one edition.
type Resolver struct {
	lookup      Lookup
	service     string
	defaultPort int
}

// New returns a Resolver using lookup for DNS. service names the SRV service
// ("minecraft") and may be empty to disable SRV lookups.
func New(lookup Lookup, service string, defaultPort int) *Resolver {
	if lookup == nil {
		lookup = net.DefaultResolver
	}
	return &Resolver{lookup: lookup, service: service, defaultPort: defaultPort}
}

// Resolve parses address and resolves it to a Target.
func (r *Resolver) Resolve(ctx context.Context, address string) (Target, error) {
	host, port, err := SplitAddress(address)
	if err != nil {
		return Target{}, err
	}

	t := Target{Hostname: host, Port: port}

	if port == 0 {
		t.Port = r.defaultPort
		if r.service != "" && net.ParseIP(host) == nil {
			if target, srvPort, ok := r.lookupSRV(ctx, host); ok {
				t.Hostname = target
				t.Port = srvPort
				t.SRV = true
			}
		}
	}

	ip, err := r.lookupIP(ctx, t.Hostname)
	if err != nil {
		return Target{}, err
	}
	t.IP = ip

	return t, nil
}

func (r *Resolver) lookupSRV(ctx context.Context, host string) (string, int, bool) {
	_, records, err := r.lookup.LookupSRV(ctx, r.service, "tcp", host)
	if err != nil || len(records) == 0 {
		log.Trace().Err(err).Str("host", host).Msg("No SRV record")
		return "", 0, false
	}

	target := strings.TrimSuffix(records[0].Target, ".")
	log.Debug().
		Str("host", host).
		Str("target", target).
		Uint16("port", records[0].Port).
		Msg("Using SRV record")

	return target, int(records[0].Port), true
}

func (r *Resolver) lookupIP(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	addrs, err := r.lookup.LookupIPAddr(ctx, host)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("resolve %s: %w", host, &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true})
	}

	for _, a := range addrs {
		if a.IP.To4() != nil {
			return a.IP.String(), nil
		}
	}
	return addrs[0].IP.String(), nil
}

// SplitAddress splits "host", "host:port", "[v6]:port" or a bare IPv6 literal.
// A missing port is returned as 0.
func SplitAddress(address string) (string, int, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", 0, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	// Bare IPv6 literal without brackets.
	if ip := net.ParseIP(address); ip != nil {
		return ip.String(), 0, nil
	}

	if strings.HasPrefix(address, "[") && strings.HasSuffix(address, "]") {
		host := address[1 : len(address)-1]
		if net.ParseIP(host) == nil {
			return "", 0, fmt.Errorf("%w: '%s'", ErrInvalidAddress, address)
		}
		return host, 0, nil
	}

	if !strings.Contains(address, ":") {
		return address, 0, nil
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, fmt.Errorf("%w: '%s'", ErrInvalidAddress, address)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("%w: bad port in '%s'", ErrInvalidAddress, address)
	}
	if host == "" {
		return "", 0, fmt.Errorf("%w: missing host in '%s'", ErrInvalidAddress, address)
	}

	return host, port, nil
}
