// Package safehttp builds HTTP clients for capability egress that refuse to
// reach private, loopback or link-local addresses.
package safehttp

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds a whole request made through NewClient.
const DefaultTimeout = 20 * time.Second

// checkAddr runs after DNS resolution and before the connection is made, so
// a hostname resolving to an internal address is refused too.
func checkAddr(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("failed to parse remote IP for %q", address)
	}
	if denied(ip) {
		return fmt.Errorf("access to private IP %s is denied", ip)
	}
	return nil
}

func denied(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// NewTransport returns a transport whose dialer rejects internal addresses.
func NewTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
		Control: checkAddr,
	}
	return &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewClient returns a traced client using NewTransport. A non-positive
// timeout uses DefaultTimeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(NewTransport()),
		Timeout:   timeout,
	}
}
