// Package auth issues and validates the JWT session tokens carried in an
// HttpOnly cookie after the OAuth callback. The token is stateless: the
// identity facts the handlers need (GitHub id, username, verified emails,
// staff flag) live in the signed claims, so no session store is required.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "jamreg"

// Session is the authenticated principal extracted from a valid token.
type Session struct {
	GitHubID int64
	Username string
	Emails   []string
	Staff    bool
}

// TokenService signs and verifies session tokens with an HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret should be at least
// 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), ttl: time.Hour}, nil
}

type claims struct {
	jwt.RegisteredClaims
	Username string   `json:"username"`
	Emails   []string `json:"emails,omitempty"`
	Staff    bool     `json:"staff,omitempty"`
}

// Generate signs a session token for the given principal.
func (s *TokenService) Generate(session Session) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(session.GitHubID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    issuer,
		},
		Username: session.Username,
		Emails:   session.Emails,
		Staff:    session.Staff,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string and returns the session it
// encodes. jwt.WithValidMethods pins HS256 so an attacker cannot downgrade
// the algorithm.
func (s *TokenService) Validate(tokenStr string) (*Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	ghID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || ghID == 0 {
		return nil, fmt.Errorf("auth: token has an invalid subject")
	}

	return &Session{
		GitHubID: ghID,
		Username: c.Username,
		Emails:   c.Emails,
		Staff:    c.Staff,
	}, nil
}
