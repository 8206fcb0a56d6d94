package safehttp

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
)

func TestDenied(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"10.1.2.3", true},
		{"192.168.0.10", true},
		{"169.254.169.254", true},
		{"0.0.0.0", true},
		{"::ffff:127.0.0.1", true},
		{"8.8.8.8", false},
		{"2001:4860:4860::8888", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := denied(netip.MustParseAddr(tt.addr)); got != tt.want {
				t.Errorf("denied(%s) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestClient_RefusesLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached the loopback server")
	}))
	defer srv.Close()

	_, err := NewClient(0).Get(srv.URL)
	if err == nil || !strings.Contains(err.Error(), "is denied") {
		t.Errorf("Get() error = %v, want denial", err)
	}
}
