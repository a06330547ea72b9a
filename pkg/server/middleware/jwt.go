package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/credvault/pkg/identity"
)

var validMethods = []string{"HS256", "HS384", "HS512"}

// JWTAuthenticator is middleware that validates bearer tokens
type JWTAuthenticator struct {
	secret   []byte
	issuer   string
	audience string
	trusted  func(ip string) bool
	log      logrus.FieldLogger
}

// JWTOptions configures a JWTAuthenticator. Issuer and Audience are only
// checked when set.
type JWTOptions struct {
	Secret         []byte
	Issuer         string
	Audience       string
	IsTrustedProxy func(ip string) bool
	Log            logrus.FieldLogger
}

// NewJWTAuthenticator creates a new JWT authenticator middleware
func NewJWTAuthenticator(opts JWTOptions) (*JWTAuthenticator, error) {
	if len(opts.Secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &JWTAuthenticator{
		secret:   opts.Secret,
		issuer:   opts.Issuer,
		audience: opts.Audience,
		trusted:  opts.IsTrustedProxy,
		log:      log.WithField("component", "authn"),
	}, nil
}

// Parse verifies a token and returns its claims. A subject is required.
func (j *JWTAuthenticator) Parse(tokenString string) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(validMethods),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Issue signs a token for subject valid for ttl.
func (j *JWTAuthenticator) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if j.audience != "" {
		claims.Audience = jwt.ClaimStrings{j.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Middleware returns an HTTP middleware that validates bearer tokens and
// stores the caller's identity in the request context.
func (j *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "Authorization missing")
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			unauthorized(w, "Malformed authorization header")
			return
		}

		claims, err := j.Parse(strings.TrimSpace(tokenString))
		if err != nil {
			j.log.WithError(err).Debug("rejected bearer token")
			if errors.Is(err, jwt.ErrTokenExpired) {
				unauthorized(w, "Token expired")
				return
			}
			unauthorized(w, "Invalid token")
			return
		}

		id := identity.FromClaims(claims).WithRemoteIP(identity.ClientIP(r, j.trusted))
		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="credvault"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
