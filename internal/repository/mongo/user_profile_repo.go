package mongo

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userProfileCollectionName = "user_profiles"

type userProfileDocument struct {
	ID                 primitive.ObjectID `bson:"_id"`
	Name               string             `bson:"name"`
	Email              string             `bson:"email"`
	PasswordHash       string             `bson:"passwordHash"`
	DailyCalorieGoal   int                `bson:"dailyCalorieGoal"`
	DietaryPreferences []string           `bson:"dietaryPreferences"`
	CreatedAt          time.Time          `bson:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt"`
}

func (d *userProfileDocument) toDomain() *domain.UserProfile {
	prefs := d.DietaryPreferences
	if prefs == nil {
		prefs = []string{}
	}
	return &domain.UserProfile{
		ID:                 d.ID.Hex(),
		Name:               d.Name,
		Email:              d.Email,
		PasswordHash:       d.PasswordHash,
		DailyCalorieGoal:   d.DailyCalorieGoal,
		DietaryPreferences: prefs,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// mongoUserProfileRepository implements repository.UserProfileRepository using MongoDB.
type mongoUserProfileRepository struct {
	collection *mongo.Collection
}

// NewMongoUserProfileRepository creates a new instance of mongoUserProfileRepository.
func NewMongoUserProfileRepository(db *mongo.Database) repository.UserProfileRepository {
	return &mongoUserProfileRepository{
		collection: db.Collection(userProfileCollectionName),
	}
}

// Create inserts a new profile. Emails are stored lower-cased.
func (r *mongoUserProfileRepository) Create(ctx context.Context, profile *domain.UserProfile) (string, error) {
	if profile.Email == "" || profile.PasswordHash == "" {
		return "", errors.New("profile email and password hash are required")
	}

	now := time.Now().UTC()
	doc := userProfileDocument{
		ID:                 primitive.NewObjectID(),
		Name:               profile.Name,
		Email:              strings.ToLower(profile.Email),
		PasswordHash:       profile.PasswordHash,
		DailyCalorieGoal:   profile.DailyCalorieGoal,
		DietaryPreferences: profile.DietaryPreferences,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if doc.DietaryPreferences == nil {
		doc.DietaryPreferences = []string{}
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		// The unique email index turns a concurrent registration into a duplicate key error
		if mongo.IsDuplicateKeyError(err) {
			return "", repository.ErrAlreadyExists
		}
		return "", err
	}

	profile.ID = doc.ID.Hex()
	profile.Email = doc.Email
	profile.DietaryPreferences = doc.DietaryPreferences
	profile.CreatedAt = now
	profile.UpdatedAt = now
	return profile.ID, nil
}

// GetByEmail retrieves a profile by email address.
func (r *mongoUserProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

// GetByID retrieves a profile by its hex ObjectID.
func (r *mongoUserProfileRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoUserProfileRepository) findOne(ctx context.Context, filter bson.M) (*domain.UserProfile, error) {
	var doc userProfileDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// UpdateSettings applies the non-nil settings and returns the updated profile.
func (r *mongoUserProfileRepository) UpdateSettings(ctx context.Context, id string, settings domain.ProfileSettings) (*domain.UserProfile, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if settings.Name != nil {
		set["name"] = *settings.Name
	}
	if settings.DailyCalorieGoal != nil {
		set["dailyCalorieGoal"] = *settings.DailyCalorieGoal
	}
	if settings.DietaryPreferences != nil {
		set["dietaryPreferences"] = settings.DietaryPreferences
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userProfileDocument
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// EnsureUserProfileIndexes creates necessary indexes for the user_profiles collection.
func EnsureUserProfileIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
