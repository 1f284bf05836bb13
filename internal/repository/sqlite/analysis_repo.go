package sqlite

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type sqliteAnalysisRepository struct {
	db *sql.DB
}

// NewSQLiteAnalysisRepository stores analysis records in the food_analyses table.
func NewSQLiteAnalysisRepository(db *sql.DB) repository.AnalysisRepository {
	return &sqliteAnalysisRepository{db: db}
}

func (r *sqliteAnalysisRepository) Insert(ctx context.Context, record *domain.AnalysisRecord) (string, error) {
	if record.OwnerID == "" || record.ImageURL == "" {
		return "", errors.New("analysis record requires ownerId and imageUrl")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	result, err := json.Marshal(record.Result)
	if err != nil {
		return "", fmt.Errorf("encode analysis result: %w", err)
	}

	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO food_analyses (id, owner_id, image_url, s3_key, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, record.OwnerID, record.ImageURL, record.ObjectKey, string(result), toMillis(record.CreatedAt),
	)
	if err != nil {
		return "", err
	}
	record.ID = id
	return id, nil
}

func (r *sqliteAnalysisRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, image_url, s3_key, result, created_at
		FROM food_analyses
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []domain.AnalysisRecord{}
	for rows.Next() {
		var (
			rec       domain.AnalysisRecord
			result    string
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.ImageURL, &rec.ObjectKey, &result, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
			return nil, fmt.Errorf("decode analysis %s: %w", rec.ID, err)
		}
		rec.CreatedAt = fromMillis(createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *sqliteAnalysisRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM food_analyses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
