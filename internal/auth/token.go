// Package auth issues and verifies the bearer tokens that scope a client
// to one navigation session.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing session token")
	ErrInvalidToken = errors.New("invalid session token")
)

// Role distinguishes the device driving a session from read-only viewers.
type Role string

const (
	RoleNavigator Role = "navigator"
	RoleViewer    Role = "viewer"
)

// Claims are the JWT claims carried by a session token.
type Claims struct {
	SessionID string `json:"session_id"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}

// CanWrite reports whether the token may push location and heading updates.
func (c *Claims) CanWrite() bool {
	return c.Role == RoleNavigator
}

// Issuer signs and parses HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer for secret. A zero ttl means tokens expire after 12 hours.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// MakeToken signs a token scoped to sessionID.
func (i *Issuer) MakeToken(sessionID string, role Role) (string, error) {
	now := i.now()
	claims := Claims{
		SessionID: sessionID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// ParseToken verifies tok and returns its claims.
func (i *Issuer) ParseToken(tok string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseTokenFromRequest reads the token from the Authorization bearer
// header, falling back to the token query parameter for browser
// websocket clients.
func (i *Issuer) ParseTokenFromRequest(r *http.Request) (*Claims, error) {
	tok := ""
	if header := r.Header.Get("Authorization"); len(header) > len("bearer ") && strings.EqualFold(header[:len("bearer ")], "bearer ") {
		tok = strings.TrimSpace(header[len("bearer "):])
	}
	if tok == "" {
		tok = r.URL.Query().Get("token")
	}
	if tok == "" {
		return nil, ErrMissingToken
	}
	return i.ParseToken(tok)
}

// Authorize parses the request token and checks that it belongs to sessionID.
func (i *Issuer) Authorize(r *http.Request, sessionID string) (*Claims, error) {
	claims, err := i.ParseTokenFromRequest(r)
	if err != nil {
		return nil, err
	}
	if claims.SessionID != sessionID {
		return nil, fmt.Errorf("%w: token is for another session", ErrInvalidToken)
	}
	return claims, nil
}
