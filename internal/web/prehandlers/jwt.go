package prehandlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/conduit-lang/plumber/internal/plumbing"
	"github.com/conduit-lang/plumber/internal/web/router"
)

// ErrMissingToken is returned when a request carries no bearer token
var ErrMissingToken = errors.New("missing bearer token")

// Tokens issues and validates HS256 tokens
type Tokens struct {
	secretKey []byte
	tokenTTL  time.Duration
}

// NewTokens creates a token service with the given secret key and token TTL
func NewTokens(secretKey string, tokenTTL time.Duration) *Tokens {
	return &Tokens{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
	}
}

// Issue signs a token for subject carrying the extra claims
func (t *Tokens) Issue(subject string, extra map[string]any) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(t.tokenTTL).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secretKey)
}

// Validate checks a token's signature and expiry and returns its claims
func (t *Tokens) Validate(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return t.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// JWT reads the bearer token from the Authorization header and assigns its
// claims. Missing or invalid tokens stop the request with a 401.
func JWT(tokens *Tokens) plumbing.PreFunc {
	return func(r *http.Request) (any, error) {
		header := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return nil, router.Unauthorized("Missing bearer token", ErrMissingToken)
		}

		claims, err := tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			return nil, router.Unauthorized("Invalid token", err)
		}
		return claims, nil
	}
}
