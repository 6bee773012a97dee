package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every way a bearer token can fail to validate:
// wrong signature, wrong signing method, or expiry.
var ErrInvalidToken = errors.New("dashboard: invalid or expired token")

// tokenClaims is intentionally thin: the dashboard has one operator role,
// not a user directory, so there is nothing beyond the registered claims
// worth carrying.
type tokenClaims struct {
	jwt.RegisteredClaims
}

// tokenManager issues and validates the single bearer token operators use
// to reach the dashboard's HTTP and websocket routes.
type tokenManager struct {
	secret []byte
	ttl    time.Duration
}

func newTokenManager(secret string, ttl time.Duration) *tokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &tokenManager{secret: []byte(secret), ttl: ttl}
}

// issue mints a fresh token. Called once at startup; the resulting token
// is logged so an operator can paste it into a dashboard client.
func (m *tokenManager) issue() (string, error) {
	now := time.Now()
	claims := tokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "idrone-platform-pld",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) validate(raw string) error {
	token, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

type ctxKey int

const ctxKeyAuthorized ctxKey = iota

// requireToken rejects any request that doesn't carry a valid bearer
// token, either in the Authorization header (HTTP routes) or the "token"
// query parameter (browsers can't set headers on a WebSocket handshake).
func (m *tokenManager) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			raw = r.URL.Query().Get("token")
		}
		if err := m.validate(raw); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyAuthorized, true)))
	})
}
