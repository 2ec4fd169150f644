package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"time"
)

// dnsTimeout bounds DNS resolution for outbound commerce fetches.
const dnsTimeout = 2 * time.Second

var (
	// ErrBlockedAddress is returned when a fetch would reach an internal address.
	ErrBlockedAddress = errors.New("security: destination address is not allowed")
	// ErrTooManyRedirects is returned when the redirect limit is exceeded.
	ErrTooManyRedirects = errors.New("security: too many redirects")
	// ErrResolveFailed is returned when the destination host cannot be resolved.
	ErrResolveFailed = errors.New("security: destination host did not resolve")
)

// blockedPrefixes are ranges that are never valid destinations even though
// the netip classification helpers do not flag them.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
}

// IsBlockedAddr reports whether addr is loopback, private, link-local
// (including the cloud metadata endpoint), multicast, unspecified, or in a
// reserved range.
func IsBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsMulticast() || addr.IsUnspecified() ||
		addr.IsInterfaceLocalMulticast() {
		return true
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Resolver abstracts DNS resolution for testability.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// SafeTransport is an http.RoundTripper whose dialer resolves the target
// host itself and refuses to connect when any resolved address is blocked.
type SafeTransport struct {
	base     *http.Transport
	resolver Resolver
	dialer   *net.Dialer
}

// NewSafeTransport wraps base (a fresh transport when nil). A nil resolver
// uses net.DefaultResolver.
func NewSafeTransport(base *http.Transport, resolver Resolver) *SafeTransport {
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	st := &SafeTransport{
		base:     base,
		resolver: resolver,
		dialer:   &net.Dialer{Timeout: 10 * time.Second},
	}
	base.Proxy = nil
	base.DialContext = st.dialContext
	return st
}

// RoundTrip implements http.RoundTripper.
func (st *SafeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return st.base.RoundTrip(req)
}

func (st *SafeTransport) dialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("security: invalid address %q: %w", address, err)
	}
	addrs, err := st.resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	return st.dialer.DialContext(ctx, network, net.JoinHostPort(addrs[0].String(), port))
}

// resolve returns the addresses for host, failing if any of them is blocked
// so a mixed public/private answer cannot be used for rebinding.
func (st *SafeTransport) resolve(ctx context.Context, host string) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		if IsBlockedAddr(addr) {
			return nil, fmt.Errorf("%w: %s", ErrBlockedAddress, addr)
		}
		return []netip.Addr{addr}, nil
	}

	dnsCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	addrs, err := st.resolver.LookupNetIP(dnsCtx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResolveFailed, host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrResolveFailed, host)
	}
	for _, a := range addrs {
		if IsBlockedAddr(a) {
			return nil, fmt.Errorf("%w: %s resolved to %s", ErrBlockedAddress, host, a)
		}
	}
	return addrs, nil
}

// CheckRedirect returns an http.Client CheckRedirect func that caps the
// number of redirects and re-validates each redirect target.
func (st *SafeTransport) CheckRedirect(maxRedirects int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("%w: limit is %d", ErrTooManyRedirects, maxRedirects)
		}
		if req.URL.Hostname() == "" {
			return fmt.Errorf("%w: redirect without host", ErrBlockedAddress)
		}
		_, err := st.resolve(req.Context(), req.URL.Hostname())
		return err
	}
}

// NewSafeHTTPClient returns an http.Client using a SafeTransport.
func NewSafeHTTPClient(timeout time.Duration, maxRedirects int, resolver Resolver) *http.Client {
	st := NewSafeTransport(nil, resolver)
	return &http.Client{
		Timeout:       timeout,
		Transport:     st,
		CheckRedirect: st.CheckRedirect(maxRedirects),
	}
}
