package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"splashpark/internal/config"
	"splashpark/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("missing token")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const RoleAdmin = "admin"

// Session issues and verifies signed HS256 tokens for the admin account.
// Tokens are stateless; logout is the client discarding the token before
// its expiry.
type Session struct {
	username string
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewSession(cfg config.AdminConfig) *Session {
	return &Session{
		username: cfg.Username,
		password: cfg.Password,
		secret:   []byte(cfg.TokenSecret),
		ttl:      time.Duration(cfg.SessionHours) * time.Hour,
		now:      time.Now,
	}
}

// NewSessionWithClock pins the clock for expiry tests.
func NewSessionWithClock(cfg config.AdminConfig, now func() time.Time) *Session {
	s := NewSession(cfg)
	s.now = now
	return s
}

// Issue checks the credential pair and returns a signed token with its
// expiry. Comparison is constant-time on both fields.
func (s *Session) Issue(username, password string) (string, time.Time, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if !userOK || !passOK {
		return "", time.Time{}, ErrInvalidCredentials
	}

	issued := s.now()
	expiry := issued.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":  username,
		"role": RoleAdmin,
		"iat":  issued.Unix(),
		"exp":  expiry.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return token, expiry, nil
}

// Verify parses a raw token or an Authorization header value ("Bearer ..."
// prefix is tolerated) and returns the identity it encodes.
func (s *Session) Verify(raw string) (*domain.Identity, error) {
	tokenStr := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(tokenStr), "bearer ") {
		tokenStr = strings.TrimSpace(tokenStr[7:])
	}
	if tokenStr == "" {
		return nil, ErrUnauthenticated
	}

	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	identity := &domain.Identity{}
	if sub, ok := claims["sub"].(string); ok {
		identity.Subject = sub
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = role
	}
	if iat, ok := claims["iat"].(float64); ok {
		identity.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := claims["exp"].(float64); ok {
		identity.Expiry = time.Unix(int64(exp), 0)
	}

	if identity.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}

	return identity, nil
}

// Revoke has no server-side state to destroy; the returned instruction
// tells the caller what logout means here.
func (s *Session) Revoke() string {
	return "discard the token"
}
