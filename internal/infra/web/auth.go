package web

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ===== Session/JWT primitives =====

type AuthConfig struct {
	HMACSecret []byte
	APIKey     string
	TTL        time.Duration
}

type AuthManager struct{ cfg AuthConfig }

// NewAuthManager exchanges the operator API key for short-lived HS256 tokens.
func NewAuthManager(secret, apiKey string, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthManager{cfg: AuthConfig{
		HMACSecret: []byte(secret),
		APIKey:     apiKey,
		TTL:        ttl,
	}}
}

type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// CheckAPIKey compares in constant time; an unset key never matches.
func (a *AuthManager) CheckAPIKey(key string) bool {
	if a.cfg.APIKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.cfg.APIKey), []byte(key)) == 1
}

func (a *AuthManager) Mint() (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(a.cfg.TTL)
	claims := OperatorClaims{
		Role: "operator",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Subject:   "operator",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.cfg.HMACSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*OperatorClaims, error) {
	// Authorization: Bearer <jwt>
	hdr := r.Header.Get("Authorization")
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		return a.parse(strings.TrimSpace(hdr[7:]))
	}
	return nil, errors.New("missing token")
}

func (a *AuthManager) parse(tok string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Require rejects requests without a valid bearer token.
func (a *AuthManager) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.ParseFromRequest(r); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
