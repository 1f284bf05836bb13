package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/metrics"
	"alcyxob/nutrition-app/internal/repository"
	"alcyxob/nutrition-app/internal/storage"
	"alcyxob/nutrition-app/internal/vision"
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"
	"time"
)

// History listing bounds.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// VisionAnalyzer is the model client consumed by the analysis pipeline.
type VisionAnalyzer interface {
	Available() bool
	Analyze(ctx context.Context, image []byte, mimeType string) (*vision.RawAnalysis, error)
}

// AnalyzeRequest identifies the photo to analyze. S3Key is the object key
// returned by the upload, when the client has it.
type AnalyzeRequest struct {
	ImageURL string
	S3Key    string
}

// HistoryEntry is a stored analysis plus a fresh link to its photo.
type HistoryEntry struct {
	domain.AnalysisRecord
	ViewURL string `json:"view_url,omitempty"`
}

type AnalysisService interface {
	Analyze(ctx context.Context, ownerID string, req AnalyzeRequest) (*domain.AnalysisResult, error)
	ListHistory(ctx context.Context, ownerID string, limit int) ([]HistoryEntry, error)
	DeleteAnalysis(ctx context.Context, ownerID, analysisID string) error
}

// analysisService implements the AnalysisService interface.
type analysisService struct {
	vision  VisionAnalyzer
	fetcher ImageFetcher
	sink    RecordSink
	repo    repository.AnalysisRepository
	store   storage.ObjectStore
	signTTL time.Duration
	metrics *metrics.Metrics
}

// NewAnalysisService creates the analysis pipeline. Records are handed to
// sink; repo and store serve the history endpoints.
func NewAnalysisService(
	visionClient VisionAnalyzer,
	fetcher ImageFetcher,
	sink RecordSink,
	repo repository.AnalysisRepository,
	store storage.ObjectStore,
	signTTL time.Duration,
	m *metrics.Metrics,
) AnalysisService {
	if signTTL <= 0 {
		signTTL = storage.DefaultSignedURLExpiry
	}
	return &analysisService{
		vision:  visionClient,
		fetcher: fetcher,
		sink:    sink,
		repo:    repo,
		store:   store,
		signTTL: signTTL,
		metrics: m,
	}
}

// Analyze fetches the photo behind req.ImageURL, asks the vision model about
// it and returns the normalized result. Food results are queued for storage;
// storage failures never fail the call.
func (s *analysisService) Analyze(ctx context.Context, ownerID string, req AnalyzeRequest) (*domain.AnalysisResult, error) {
	// 1. Validate inputs
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	imageURL := strings.TrimSpace(req.ImageURL)
	if err := validateImageURL(imageURL); err != nil {
		s.metrics.RecordAnalysis(metrics.OutcomeRejected)
		return nil, err
	}

	// 2. The model must be configured before any outbound I/O
	if s.vision == nil || !s.vision.Available() {
		s.metrics.RecordAnalysis(metrics.OutcomeUnavailable)
		return nil, ErrVisionUnavailable
	}

	// 3. Fetch the bytes ourselves
	image, err := s.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		log.Printf("WARN: Image fetch for user %s failed: %v", ownerID, err)
		s.metrics.RecordAnalysis(metrics.OutcomeFetchFailed)
		return nil, err
	}

	// 4. Ask the model
	started := time.Now()
	raw, err := s.vision.Analyze(ctx, image.Data, image.ContentType)
	s.metrics.ObserveVisionCall(time.Since(started), err)
	if err != nil {
		return nil, s.analysisFailure(ownerID, err)
	}

	// 5. Normalize
	result := NormalizeAnalysis(raw)

	// 6. Persist food results in the background
	if result.ContainsFood {
		s.metrics.RecordAnalysis(metrics.OutcomeFood)
		s.sink.Enqueue(domain.AnalysisRecord{
			OwnerID:   ownerID,
			ImageURL:  imageURL,
			ObjectKey: ownedObjectKey(ownerID, req.S3Key),
			Result:    result,
			CreatedAt: time.Now().UTC(),
		})
	} else {
		s.metrics.RecordAnalysis(metrics.OutcomeNoFood)
	}

	return &result, nil
}

func (s *analysisService) analysisFailure(ownerID string, err error) error {
	if errors.Is(err, vision.ErrUnavailable) {
		s.metrics.RecordAnalysis(metrics.OutcomeUnavailable)
		return ErrVisionUnavailable
	}
	s.metrics.RecordAnalysis(metrics.OutcomeFailed)
	log.Printf("ERROR: Vision analysis for user %s failed: %v", ownerID, err)

	if vision.IsReplyError(err) {
		return &AnalysisFailedError{Reason: err.Error(), Err: err}
	}
	var callErr *vision.CallError
	if errors.As(err, &callErr) {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return &AnalysisFailedError{Reason: "the vision model did not answer in time", Err: err}
		}
		return &AnalysisFailedError{Reason: "the vision model request failed", Err: err}
	}
	return &AnalysisFailedError{Reason: "unexpected error during analysis", Err: err}
}

// ListHistory returns the owner's stored analyses, newest first, each with a
// freshly signed photo link when the record has an object key.
func (s *analysisService) ListHistory(ctx context.Context, ownerID string, limit int) ([]HistoryEntry, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	records, err := s.repo.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entry := HistoryEntry{AnalysisRecord: rec}
		if rec.ObjectKey != "" && s.store != nil {
			signed, err := s.store.SignGet(ctx, rec.ObjectKey, s.signTTL)
			if err != nil {
				log.Printf("WARN: Could not sign view URL for analysis %s: %v", rec.ID, err)
			} else {
				entry.ViewURL = signed.URL
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DeleteAnalysis removes one of the owner's analyses.
func (s *analysisService) DeleteAnalysis(ctx context.Context, ownerID, analysisID string) error {
	if ownerID == "" {
		return ErrUnauthorized
	}
	if analysisID == "" {
		return ErrAnalysisNotFound
	}
	if err := s.repo.Delete(ctx, analysisID, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAnalysisNotFound
		}
		return err
	}
	return nil
}

func validateImageURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: imageUrl is required", ErrInvalidImageURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImageURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidImageURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidImageURL)
	}
	return nil
}

// ownedObjectKey keeps a client-supplied key only when it lies under the
// owner's upload prefix.
func ownedObjectKey(ownerID, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	clean := path.Clean(key)
	if clean != key || !strings.HasPrefix(clean, path.Join("uploads", ownerID)+"/") {
		return ""
	}
	return clean
}
