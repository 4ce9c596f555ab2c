// Package authheader builds the bearer-token Authorization header value the
// okws-demo CLI attaches to its Connect handshake. The supervisor itself
// treats Headers as opaque strings and has no notion of auth; something
// still has to produce that string for a demo to be runnable against a
// real server, and golang-jwt/jwt/v5 is the library the rest of the
// retrieved pack reaches for.
package authheader

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Bearer signs a short-lived HS256 token with secret and returns the
// complete "Bearer <token>" header value.
func Bearer(secret, subject, issuer string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("okws-demo: jwt secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("okws-demo: signing bearer token: %w", err)
	}
	return "Bearer " + signed, nil
}
