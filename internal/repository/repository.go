package repository

import (
	"alcyxob/nutrition-app/internal/domain" // Import our defined domain models
	"context"
)

// Error constants for the repository layer
var (
	ErrNotFound      = RepositoryError("not found")
	ErrAlreadyExists = RepositoryError("already exists")
	ErrUpdateFailed  = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// AnalysisRepository stores immutable analysis records (the food_analyses table).
type AnalysisRepository interface {
	// Insert stores the record and returns its generated ID. CreatedAt is set
	// when zero.
	Insert(ctx context.Context, record *domain.AnalysisRecord) (string, error)
	// ListByOwner returns the owner's records, newest first.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.AnalysisRecord, error)
	// Delete removes one record owned by ownerID, or returns ErrNotFound.
	Delete(ctx context.Context, id, ownerID string) error
}

// UserProfileRepository manages accounts and their settings (the user_profiles table).
type UserProfileRepository interface {
	Create(ctx context.Context, profile *domain.UserProfile) (string, error)
	GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	GetByID(ctx context.Context, id string) (*domain.UserProfile, error)
	UpdateSettings(ctx context.Context, id string, settings domain.ProfileSettings) (*domain.UserProfile, error)
}
