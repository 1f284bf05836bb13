package domain

import (
	"time"
)

// Identity is the authenticated caller as established by the session guard.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// UserProfile represents an account in the user_profiles table.
type UserProfile struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"` // Never expose this via JSON
	DailyCalorieGoal   int       `json:"daily_calorie_goal"`
	DietaryPreferences []string  `json:"dietary_preferences"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ProfileSettings is a partial update of the user-editable profile fields.
// Nil fields are left untouched.
type ProfileSettings struct {
	Name               *string
	DailyCalorieGoal   *int
	DietaryPreferences []string // nil = unchanged, empty = clear
}
