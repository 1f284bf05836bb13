package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
)

// Daily calorie goal bounds; 0 means no goal.
const (
	MinDailyCalorieGoal = 0
	MaxDailyCalorieGoal = 20000
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidSettings = errors.New("invalid profile settings")
)

type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	UpdateSettings(ctx context.Context, userID string, settings domain.ProfileSettings) (*domain.UserProfile, error)
}

type profileService struct {
	profileRepo repository.UserProfileRepository
}

func NewProfileService(profileRepo repository.UserProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

func (s *profileService) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	profile.PasswordHash = ""
	return profile, nil
}

// UpdateSettings validates and applies a partial settings update.
func (s *profileService) UpdateSettings(ctx context.Context, userID string, settings domain.ProfileSettings) (*domain.UserProfile, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	if settings.Name != nil {
		name := strings.TrimSpace(*settings.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidSettings)
		}
		settings.Name = &name
	}
	if g := settings.DailyCalorieGoal; g != nil && (*g < MinDailyCalorieGoal || *g > MaxDailyCalorieGoal) {
		return nil, fmt.Errorf("%w: daily_calorie_goal must be between %d and %d", ErrInvalidSettings, MinDailyCalorieGoal, MaxDailyCalorieGoal)
	}
	if settings.DietaryPreferences != nil {
		prefs := make([]string, 0, len(settings.DietaryPreferences))
		for _, p := range settings.DietaryPreferences {
			if p = strings.TrimSpace(p); p != "" {
				prefs = append(prefs, p)
			}
		}
		settings.DietaryPreferences = prefs
	}

	profile, err := s.profileRepo.UpdateSettings(ctx, userID, settings)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	profile.PasswordHash = ""
	return profile, nil
}
