package session

import (
	"alcyxob/nutrition-app/internal/domain"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session")
	ErrExpiredSession = errors.New("session has expired")
)

const issuer = "nutrition-app"

// Guard resolves the caller's identity from an incoming request.
type Guard interface {
	GetSession(r *http.Request) (*domain.Identity, error)
}

// claims is the session token payload.
type claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 session tokens carried in a cookie or
// an Authorization: Bearer header.
type Manager struct {
	secret       []byte
	ttl          time.Duration
	cookieName   string
	secureCookie bool
}

// NewManager creates a session manager. The secret must not be empty.
func NewManager(secret string, ttl time.Duration, cookieName string, secureCookie bool) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("session secret cannot be empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if cookieName == "" {
		cookieName = "session"
	}
	return &Manager{
		secret:       []byte(secret),
		ttl:          ttl,
		cookieName:   cookieName,
		secureCookie: secureCookie,
	}, nil
}

func (m *Manager) CookieName() string { return m.cookieName }
func (m *Manager) TTL() time.Duration { return m.ttl }
func (m *Manager) SecureCookie() bool { return m.secureCookie }

// Issue signs a new token for the identity and returns it with its expiry.
func (m *Manager) Issue(id domain.Identity) (string, time.Time, error) {
	if id.UserID == "" {
		return "", time.Time{}, fmt.Errorf("%w: empty user id", ErrInvalidSession)
	}
	now := time.Now()
	expiresAt := now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		UserID: id.UserID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token.
func (m *Manager) Verify(tokenString string) (*domain.Identity, error) {
	if tokenString == "" {
		return nil, ErrNoSession
	}
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSession
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid || c.UserID == "" || c.ExpiresAt == nil {
		return nil, ErrInvalidSession
	}
	return &domain.Identity{UserID: c.UserID, Email: c.Email}, nil
}

// GetSession reads the session cookie first, then a Bearer token.
func (m *Manager) GetSession(r *http.Request) (*domain.Identity, error) {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return m.Verify(cookie.Value)
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, ErrNoSession
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, fmt.Errorf("%w: authorization header format must be Bearer {token}", ErrInvalidSession)
	}
	return m.Verify(parts[1])
}

// Cookie builds the HttpOnly cookie carrying token.
func (m *Manager) Cookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie clears the session cookie.
func (m *Manager) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
