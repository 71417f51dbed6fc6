// Package visitor mints the signed anonymous identity that maps a browser to
// its server-held cart. The token travels in a cookie; the subject is the
// visitor id used to namespace durable cart keys.
package visitor

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/royaliq/storefront/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// Manager issues and validates visitor tokens.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewManager(cfg config.VisitorConfig) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("visitor secret is required")
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("visitor issuer is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
	}, nil
}

// TTL reports how long issued tokens stay valid; the cookie max-age matches it.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue mints a fresh visitor id and its signed token.
func (m *Manager) Issue(now time.Time) (string, string, error) {
	visitorID := uuid.NewString()

	claims := jwt.RegisteredClaims{
		Subject:   visitorID,
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString(m.secret)
	if err != nil {
		return "", "", fmt.Errorf("signing visitor token: %w", err)
	}
	return visitorID, signed, nil
}

// Parse validates the token and returns the visitor id.
func (m *Manager) Parse(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(m.issuer),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("visitor token missing subject")
	}
	return claims.Subject, nil
}
