package sqlite

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type sqliteUserProfileRepository struct {
	db *sql.DB
}

// NewSQLiteUserProfileRepository stores accounts in the user_profiles table.
func NewSQLiteUserProfileRepository(db *sql.DB) repository.UserProfileRepository {
	return &sqliteUserProfileRepository{db: db}
}

const profileColumns = `id, name, email, password_hash, daily_calorie_goal, dietary_preferences, created_at, updated_at`

func (r *sqliteUserProfileRepository) Create(ctx context.Context, profile *domain.UserProfile) (string, error) {
	if profile.Email == "" || profile.PasswordHash == "" {
		return "", errors.New("profile email and password hash are required")
	}
	prefs := profile.DietaryPreferences
	if prefs == nil {
		prefs = []string{}
	}
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	email := strings.ToLower(profile.Email)
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, profile.Name, email, profile.PasswordHash, profile.DailyCalorieGoal, string(prefsJSON), toMillis(now), toMillis(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", repository.ErrAlreadyExists
		}
		return "", err
	}

	profile.ID = id
	profile.Email = email
	profile.DietaryPreferences = prefs
	profile.CreatedAt = fromMillis(toMillis(now))
	profile.UpdatedAt = profile.CreatedAt
	return id, nil
}

func (r *sqliteUserProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE email = ?`, strings.ToLower(email))
	return scanProfile(row)
}

func (r *sqliteUserProfileRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE id = ?`, id)
	return scanProfile(row)
}

func (r *sqliteUserProfileRepository) UpdateSettings(ctx context.Context, id string, settings domain.ProfileSettings) (*domain.UserProfile, error) {
	sets := []string{"updated_at = ?"}
	args := []any{toMillis(time.Now())}
	if settings.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *settings.Name)
	}
	if settings.DailyCalorieGoal != nil {
		sets = append(sets, "daily_calorie_goal = ?")
		args = append(args, *settings.DailyCalorieGoal)
	}
	if settings.DietaryPreferences != nil {
		prefsJSON, err := json.Marshal(settings.DietaryPreferences)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "dietary_preferences = ?")
		args = append(args, string(prefsJSON))
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE user_profiles SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func scanProfile(row *sql.Row) (*domain.UserProfile, error) {
	var (
		p                    domain.UserProfile
		prefs                string
		createdAt, updatedAt int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.DailyCalorieGoal, &prefs, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(prefs), &p.DietaryPreferences); err != nil {
		return nil, fmt.Errorf("decode dietary preferences: %w", err)
	}
	if p.DietaryPreferences == nil {
		p.DietaryPreferences = []string{}
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}
