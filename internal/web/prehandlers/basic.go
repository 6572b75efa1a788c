package prehandlers

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/conduit-lang/plumber/internal/plumbing"
	"github.com/conduit-lang/plumber/internal/web/router"
)

// ErrInvalidCredentials is returned when basic credentials do not match
var ErrInvalidCredentials = errors.New("invalid credentials")

// HashPassword hashes a plain text password using bcrypt.
// Rejects passwords longer than 72 bytes (bcrypt's maximum).
func HashPassword(password string) (string, error) {
	if len(password) > 72 {
		return "", fmt.Errorf("password exceeds maximum length of 72 bytes")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compares a plain text password with a bcrypt hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BasicAuth checks HTTP basic credentials against bcrypt hashes keyed by
// username and assigns the username
func BasicAuth(realm string, users map[string]string) plumbing.PreFunc {
	challenge := fmt.Sprintf("Basic realm=%q", realm)

	return func(r *http.Request) (any, error) {
		username, password, ok := r.BasicAuth()
		if !ok {
			return nil, challengeError(challenge, "Missing credentials", ErrInvalidCredentials)
		}

		hash, known := users[username]
		if !known || !CheckPassword(password, hash) {
			return nil, challengeError(challenge, "Invalid credentials", ErrInvalidCredentials)
		}
		return username, nil
	}
}

func challengeError(challenge, message string, err error) error {
	httpErr := router.Unauthorized(message, err)
	httpErr.Header = http.Header{}
	httpErr.Header.Set("WWW-Authenticate", challenge)
	return httpErr
}
