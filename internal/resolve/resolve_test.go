package resolve

import (
	"context"
	"errors"
	"net"
	"testing"
)

type fakeLookup struct {
	srv      map[string]*net.SRV
	ips      map[string][]net.IPAddr
	srvCalls int
}

func (f *fakeLookup) LookupSRV(_ context.Context, service, proto, name string) (string, []*net.SRV, error) {
	f.srvCalls++
	rec, ok := f.srv["_"+service+"._"+proto+"."+name]
	if !ok {
		return "", nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
	}
	return "", []*net.SRV{rec}, nil
}

func (f *fakeLookup) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	addrs, ok := f.ips[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return addrs, nil
}

func newFake() *fakeLookup {
	return &fakeLookup{
		srv: map[string]*net.SRV{
			"_minecraft._tcp.example.com": {Target: "mc.example.com.", Port: 25577},
		},
		ips: map[string][]net.IPAddr{
			"example.com":    {{IP: net.ParseIP("2001:db8::1")}, {IP: net.ParseIP("192.0.2.10")}},
			"mc.example.com": {{IP: net.ParseIP("192.0.2.20")}},
			"v6.example.com": {{IP: net.ParseIP("2001:db8::2")}},
		},
	}
}

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		in      string
		host    string
		port    int
		invalid bool
	}{
		{in: "example.com", host: "example.com"},
		{in: "example.com:25566", host: "example.com", port: 25566},
		{in: " 127.0.0.1:19132 ", host: "127.0.0.1", port: 19132},
		{in: "::1", host: "::1"},
		{in: "[2001:db8::1]", host: "2001:db8::1"},
		{in: "[2001:db8::1]:25565", host: "2001:db8::1", port: 25565},
		{in: "", invalid: true},
		{in: "a:b:c", invalid: true},
		{in: "example.com:0", invalid: true},
		{in: "example.com:99999", invalid: true},
		{in: "example.com:port", invalid: true},
		{in: ":25565", invalid: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			host, port, err := SplitAddress(tc.in)
			if tc.invalid {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Fatalf("SplitAddress(%q) error = %v, want ErrInvalidAddress", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitAddress(%q) error: %v", tc.in, err)
			}
			if host != tc.host || port != tc.port {
				t.Errorf("SplitAddress(%q) = %q, %d; want %q, %d", tc.in, host, port, tc.host, tc.port)
			}
		})
	}
}

func TestResolveSRV(t *testing.T) {
	r := New(newFake(), "minecraft", 25565)

	got, err := r.Resolve(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := Target{Hostname: "mc.example.com", IP: "192.0.2.20", Port: 25577, SRV: true}
	if got != want {
		t.Errorf("Resolve = %+v, want %+v", got, want)
	}
}

func TestResolveExplicitPortSkipsSRV(t *testing.T) {
	lookup := newFake()
	r := New(lookup, "minecraft", 25565)

	got, err := r.Resolve(context.Background(), "example.com:25570")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if lookup.srvCalls != 0 {
		t.Errorf("SRV looked up %d times with an explicit port", lookup.srvCalls)
	}
	// IPv4 is preferred over the first (IPv6) answer.
	want := Target{Hostname: "example.com", IP: "192.0.2.10", Port: 25570}
	if got != want {
		t.Errorf("Resolve = %+v, want %+v", got, want)
	}
}

func TestResolveDefaults(t *testing.T) {
	lookup := newFake()

	bedrock := New(lookup, "", 19132)
	got, err := bedrock.Resolve(context.Background(), "v6.example.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Port != 19132 || got.IP != "2001:db8::2" || got.SRV {
		t.Errorf("Resolve = %+v", got)
	}
	if lookup.srvCalls != 0 {
		t.Errorf("SRV looked up without a service")
	}

	java := New(lookup, "minecraft", 25565)
	got, err = java.Resolve(context.Background(), "127.0.0.1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Port != 25565 || got.IP != "127.0.0.1" || got.SRV {
		t.Errorf("Resolve = %+v", got)
	}
	if got.Address() != "127.0.0.1:25565" {
		t.Errorf("Address = %q", got.Address())
	}
}

func TestResolveUnknownHost(t *testing.T) {
	r := New(newFake(), "minecraft", 25565)
	_, err := r.Resolve(context.Background(), "missing.example.com")
	var dnsErr *net.DNSError
	if !errors.As(err, &dnsErr) {
		t.Fatalf("Resolve error = %v, want a DNS error", err)
	}
}

func TestResolveEmptyAnswer(t *testing.T) {
	lookup := newFake()
	lookup.ips["empty.example.com"] = nil

	r := New(lookup, "", 19132)
	_, err := r.Resolve(context.Background(), "empty.example.com")
	var dnsErr *net.DNSError
	if !errors.As(err, &dnsErr) || !dnsErr.IsNotFound {
		t.Fatalf("Resolve error = %v, want a not-found DNS error", err)
	}
}
