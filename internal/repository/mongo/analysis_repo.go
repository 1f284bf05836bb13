package mongo

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const analysisCollectionName = "food_analyses"

// analysisDocument is the stored shape of a domain.AnalysisRecord.
type analysisDocument struct {
	ID        primitive.ObjectID    `bson:"_id"`
	OwnerID   string                `bson:"ownerId"`
	ImageURL  string                `bson:"imageUrl"`
	ObjectKey string                `bson:"s3Key,omitempty"`
	Result    domain.AnalysisResult `bson:"result"`
	CreatedAt time.Time             `bson:"createdAt"`
}

func (d *analysisDocument) toDomain() domain.AnalysisRecord {
	return domain.AnalysisRecord{
		ID:        d.ID.Hex(),
		OwnerID:   d.OwnerID,
		ImageURL:  d.ImageURL,
		ObjectKey: d.ObjectKey,
		Result:    d.Result,
		CreatedAt: d.CreatedAt,
	}
}

// mongoAnalysisRepository implements repository.AnalysisRepository
type mongoAnalysisRepository struct {
	collection *mongo.Collection
}

// NewMongoAnalysisRepository creates a new analysis repository backed by MongoDB.
func NewMongoAnalysisRepository(db *mongo.Database) repository.AnalysisRepository {
	return &mongoAnalysisRepository{
		collection: db.Collection(analysisCollectionName),
	}
}

// Insert stores a new analysis record.
func (r *mongoAnalysisRepository) Insert(ctx context.Context, record *domain.AnalysisRecord) (string, error) {
	if record.OwnerID == "" || record.ImageURL == "" {
		return "", errors.New("analysis record requires ownerId and imageUrl")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	doc := analysisDocument{
		ID:        primitive.NewObjectID(),
		OwnerID:   record.OwnerID,
		ImageURL:  record.ImageURL,
		ObjectKey: record.ObjectKey,
		Result:    record.Result,
		CreatedAt: record.CreatedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("failed to convert inserted ID")
	}
	record.ID = insertedID.Hex()
	return record.ID, nil
}

// ListByOwner returns the owner's most recent analyses first.
func (r *mongoAnalysisRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.AnalysisRecord, error) {
	filter := bson.M{"ownerId": ownerID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []analysisDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]domain.AnalysisRecord, 0, len(docs))
	for i := range docs {
		records = append(records, docs[i].toDomain())
	}
	return records, nil
}

// Delete removes one of the owner's analyses.
func (r *mongoAnalysisRepository) Delete(ctx context.Context, id, ownerID string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed ID cannot match any record.
		return repository.ErrNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID, "ownerId": ownerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureAnalysisIndexes creates necessary indexes for the food_analyses collection.
func EnsureAnalysisIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// History listing: by owner, newest first
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "s3Key", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
