package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/credvault/pkg/identity"
)

var testSecret = []byte(strings.Repeat("s", 32))

func newTestAuthenticator(t *testing.T, opts JWTOptions) *JWTAuthenticator {
	t.Helper()
	if opts.Secret == nil {
		opts.Secret = testSecret
	}
	auth, err := NewJWTAuthenticator(opts)
	require.NoError(t, err)
	return auth
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func rejecting(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})
}

func TestNewJWTAuthenticator_ShortSecret(t *testing.T) {
	_, err := NewJWTAuthenticator(JWTOptions{Secret: []byte("short")})
	assert.Error(t, err)
}

func TestMiddleware_MissingAuthorization(t *testing.T) {
	handler := newTestAuthenticator(t, JWTOptions{}).Middleware(rejecting(t))

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization missing", errorBody(t, rec))
}

func TestMiddleware_MalformedAuthorizationHeader(t *testing.T) {
	handler := newTestAuthenticator(t, JWTOptions{}).Middleware(rejecting(t))

	tests := []struct {
		name   string
		header string
	}{
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"random string", "something"},
		{"empty bearer", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Malformed authorization header", errorBody(t, rec))
		})
	}
}

func TestMiddleware_RejectedTokens(t *testing.T) {
	auth := newTestAuthenticator(t, JWTOptions{Issuer: "credvault", Audience: "api"})
	handler := auth.Middleware(rejecting(t))
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "credvault",
		Audience:  jwt.ClaimStrings{"api"},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	noExpiry := valid
	noExpiry.ExpiresAt = nil
	wrongIssuer := valid
	wrongIssuer.Issuer = "elsewhere"
	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"web"}
	noSubject := valid
	noSubject.Subject = ""

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{"garbage", "not.a.jwt", "Invalid token"},
		{"expired", sign(t, jwt.SigningMethodHS256, testSecret, expired), "Token expired"},
		{"no expiry", sign(t, jwt.SigningMethodHS256, testSecret, noExpiry), "Invalid token"},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte(strings.Repeat("x", 32)), valid), "Invalid token"},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, testSecret, wrongIssuer), "Invalid token"},
		{"wrong audience", sign(t, jwt.SigningMethodHS256, testSecret, wrongAudience), "Invalid token"},
		{"no subject", sign(t, jwt.SigningMethodHS256, testSecret, noSubject), "Invalid token"},
		{"alg none", sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid), "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.message, errorBody(t, rec))
		})
	}
}

func TestMiddleware_IdentityFromToken(t *testing.T) {
	auth := newTestAuthenticator(t, JWTOptions{
		IsTrustedProxy: func(ip string) bool { return ip == "10.0.0.1" },
	})
	token, err := auth.Issue("alice", time.Hour)
	require.NoError(t, err)

	var got *identity.Identity
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		require.True(t, ok)
		got = id
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "10.0.0.1:40000"
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("X-Forwarded-For", "198.51.100.4")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, "198.51.100.4", got.SourceAddress())
	assert.WithinDuration(t, time.Now().Add(time.Hour), got.ExpiresAt, time.Minute)
}
