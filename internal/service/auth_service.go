package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository" // Import repository package
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt" // Import bcrypt
)

// --- Error Definitions ---
var (
	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
	ErrInvalidCredentials   = errors.New("name, a valid email and a password of at least 8 characters are required")
)

// TokenIssuer signs session tokens for an identity.
type TokenIssuer interface {
	Issue(id domain.Identity) (string, time.Time, error)
}

// Session is an issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*domain.UserProfile, error)
	Login(ctx context.Context, email, password string) (*Session, *domain.UserProfile, error)
}

// authService implements the AuthService interface.
type authService struct {
	profileRepo repository.UserProfileRepository
	issuer      TokenIssuer
}

// NewAuthService creates a new instance of authService.
func NewAuthService(profileRepo repository.UserProfileRepository, issuer TokenIssuer) AuthService {
	return &authService{
		profileRepo: profileRepo,
		issuer:      issuer,
	}
}

// Register handles new account registration.
func (s *authService) Register(ctx context.Context, name, email, password string) (*domain.UserProfile, error) {
	// 1. Basic input validation
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || len(password) < 8 {
		return nil, ErrInvalidCredentials
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 2. Check if the account already exists
	_, err := s.profileRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// 3. Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	// 4. Save the profile
	profile := &domain.UserProfile{
		Name:               name,
		Email:              email,
		PasswordHash:       string(hashedPassword),
		DietaryPreferences: []string{},
	}
	if _, err := s.profileRepo.Create(ctx, profile); err != nil {
		// Another request may have registered the same email since the check above
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	// Remove password hash before returning
	profile.PasswordHash = ""
	return profile, nil
}

// Login verifies credentials and issues a session token.
func (s *authService) Login(ctx context.Context, email, password string) (*Session, *domain.UserProfile, error) {
	if email == "" || password == "" {
		return nil, nil, ErrAuthenticationFailed
	}

	profile, err := s.profileRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrAuthenticationFailed
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrAuthenticationFailed
	}

	token, expiresAt, err := s.issuer.Issue(domain.Identity{UserID: profile.ID, Email: profile.Email})
	if err != nil {
		return nil, nil, ErrTokenGeneration
	}

	profile.PasswordHash = ""
	return &Session{Token: token, ExpiresAt: expiresAt}, profile, nil
}
