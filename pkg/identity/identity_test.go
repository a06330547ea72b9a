package identity

import (
	"context"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromClaims(t *testing.T) {
	iat := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	claims := &jwt.RegisteredClaims{
		Subject:   "alice",
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(time.Hour)),
	}

	id := FromClaims(claims)
	assert.Equal(t, "alice", id.UserID)
	assert.Equal(t, iat, id.IssuedAt)
	assert.Equal(t, iat.Add(time.Hour), id.ExpiresAt)
	assert.Equal(t, "", id.SourceAddress())

	id.WithRemoteIP(net.ParseIP("10.0.0.7"))
	assert.Equal(t, "10.0.0.7", id.SourceAddress())
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := Get(context.Background())
	assert.False(t, ok)

	ctx := Set(context.Background(), &Identity{UserID: "bob"})
	id, ok := Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "bob", id.UserID)
}

func TestClientIP(t *testing.T) {
	trusted := func(ip string) bool {
		_, proxies, _ := net.ParseCIDR("10.0.0.0/8")
		return proxies.Contains(net.ParseIP(ip))
	}

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		expected   string
	}{
		{"direct client", "203.0.113.9:5555", "", "203.0.113.9"},
		{"untrusted peer header ignored", "203.0.113.9:5555", "198.51.100.1", "203.0.113.9"},
		{"trusted proxy", "10.0.0.2:443", "198.51.100.1", "198.51.100.1"},
		{"chained proxies", "10.0.0.2:443", "198.51.100.1, 10.1.1.1", "198.51.100.1"},
		{"spoofed left entry", "10.0.0.2:443", "1.2.3.4, 198.51.100.1", "198.51.100.1"},
		{"garbage header", "10.0.0.2:443", "not-an-ip", "10.0.0.2"},
		{"all hops trusted", "10.0.0.2:443", "10.9.9.9", "10.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.expected, ClientIP(r, trusted).String())
		})
	}

	t.Run("no trust function", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "10.0.0.2:443"
		r.Header.Set("X-Forwarded-For", "198.51.100.1")
		assert.Equal(t, "10.0.0.2", ClientIP(r, nil).String())
	})
}
