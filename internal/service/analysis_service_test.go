package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/vision"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type analysisFixture struct {
	vision  *fakeVision
	fetcher *fakeFetcher
	sink    *recordingSink
	repo    *memAnalysisRepo
	store   *fakeStore
	svc     AnalysisService
}

func newAnalysisFixture(reply string) *analysisFixture {
	f := &analysisFixture{
		vision:  &fakeVision{available: true, reply: reply},
		fetcher: &fakeFetcher{image: &FetchedImage{Data: jpegPayload(1024), ContentType: "image/jpeg"}},
		sink:    &recordingSink{},
		repo:    &memAnalysisRepo{},
		store:   newFakeStore(),
	}
	f.svc = NewAnalysisService(f.vision, f.fetcher, f.sink, f.repo, f.store, time.Hour, nil)
	return f
}

const signedURL = "https://photos.example/uploads/user-1/abc.jpg?X-Amz-Signature=sig"

func TestAnalyzeFoodQueuesExactlyOneRecord(t *testing.T) {
	f := newAnalysisFixture(`{"contains_food": true, "dish_name": "Tacos", "confidence_score": 1.4}`)

	result, err := f.svc.Analyze(context.Background(), "user-1", AnalyzeRequest{ImageURL: signedURL, S3Key: "uploads/user-1/abc.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "Tacos", result.DishName)
	assert.Equal(t, 1.0, result.ConfidenceScore)
	assert.Equal(t, "image/jpeg", f.vision.lastMIME)

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, "user-1", records[0].OwnerID)
	assert.Equal(t, signedURL, records[0].ImageURL)
	assert.Equal(t, "uploads/user-1/abc.jpg", records[0].ObjectKey)
	assert.Equal(t, *result, records[0].Result)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestAnalyzeNoFoodPersistsNothing(t *testing.T) {
	f := newAnalysisFixture(`{"contains_food": false, "dish_name": "a laptop"}`)

	result, err := f.svc.Analyze(context.Background(), "user-1", AnalyzeRequest{ImageURL: signedURL})
	require.NoError(t, err)
	assert.False(t, result.ContainsFood)
	assert.Equal(t, 0.1, result.ConfidenceScore)
	assert.Empty(t, f.sink.all())
}

func TestAnalyzeMinimalReplyIsNormalized(t *testing.T) {
	f := newAnalysisFixture(`{"contains_food": true, "total_calories": 450}`)

	result, err := f.svc.Analyze(context.Background(), "user-1", AnalyzeRequest{ImageURL: signedURL})
	require.NoError(t, err)
	assert.Equal(t, "Unknown Dish", result.DishName)
	assert.Equal(t, "Unknown", result.Cuisine)
	assert.Empty(t, result.Ingredients)
	assert.NotNil(t, result.Ingredients)
	assert.Empty(t, result.Allergens)
	assert.Equal(t, 0.7, result.ConfidenceScore)
}

func TestAnalyzeValidationOrder(t *testing.T) {
	t.Run("unauthorized first", func(t *testing.T) {
		f := newAnalysisFixture(`{"contains_food": true}`)
		f.vision.available = false
		_, err := f.svc.Analyze(context.Background(), "", AnalyzeRequest{ImageURL: "not a url"})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("bad url before availability", func(t *testing.T) {
		f := newAnalysisFixture(`{"contains_food": true}`)
		f.vision.available = false
		for _, bad := range []string{"", "   ", "ftp://host/x.jpg", "file:///etc/passwd", "https://"} {
			_, err := f.svc.Analyze(context.Background(), "user-1", AnalyzeRequest{ImageURL: bad})
			assert.ErrorIs(t, err, ErrInvalidImageURL, bad)
		}
		assert.Zero(t, f.fetcher.calls)
	})

	t.Run("unavailable before fetch", func(t *testing.T) {
		f := newAnalysisFixture(`{"contains_food": true}`)
		f.vision.available = false
		_, err := f.svc.Analyze(context.Background(), "user-1", AnalyzeRequest{ImageURL: signedURL})
		assert.ErrorIs(t, err, ErrVisionUnavailable)
		assert.Zero(t, f.fetcher.calls)
	})
}

func TestAnalyzeFetchFailureIsReturned(t *testing.T) {
	f := newAnalysisFixture(`{"contains_food": true}`)
	f.fetcher.err = &ImageFetchError{Reason: "404 Not Found", StatusCode: 404}

	_, err := f.svc.Analyze(context.Background(), "user-1", AnalyzeRequest{ImageURL: signedURL})
	var fetchErr *ImageFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Zero(t, f.vision.calls)
	assert.Empty(t, f.sink.all())
}

func TestAnalyzeModelFailures(t *testing.T) {
	t.Run("invalid reply", func(t *testing.T) {
		f := newAnalysisFixture(`{"dish_name": "Soup"}`)
		_, err := f.svc.Analyze(context.Background(), "user-1", AnalyzeRequest{ImageURL: signedURL})
		var failed *AnalysisFailedError
		require.ErrorAs(t, err, &failed)
		assert.Contains(t, failed.Reason, "contains_food")
		assert.Empty(t, f.sink.all())
	})

	t.Run("call error", func(t *testing.T) {
		f := newAnalysisFixture("")
		f.vision.err = &vision.CallError{Err: errors.New("rpc error: code = PermissionDenied")}
		_, err := f.svc.Analyze(context.Background(), "user-1", AnalyzeRequest{ImageURL: signedURL})
		var failed *AnalysisFailedError
		require.ErrorAs(t, err, &failed)
		assert.NotContains(t, failed.Reason, "PermissionDenied")
	})

	t.Run("client reports unavailable", func(t *testing.T) {
		f := newAnalysisFixture("")
		f.vision.err = vision.ErrUnavailable
		_, err := f.svc.Analyze(context.Background(), "user-1", AnalyzeRequest{ImageURL: signedURL})
		assert.ErrorIs(t, err, ErrVisionUnavailable)
	})
}

func TestOwnedObjectKey(t *testing.T) {
	assert.Equal(t, "uploads/u1/a.jpg", ownedObjectKey("u1", "uploads/u1/a.jpg"))
	assert.Empty(t, ownedObjectKey("u1", "uploads/u2/a.jpg"))
	assert.Empty(t, ownedObjectKey("u1", "uploads/u1/../u2/a.jpg"))
	assert.Empty(t, ownedObjectKey("u1", "uploads/u10/a.jpg"))
	assert.Empty(t, ownedObjectKey("u1", ""))
}

func TestListHistorySignsViewURLs(t *testing.T) {
	f := newAnalysisFixture("")
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	_, _ = f.repo.Insert(ctx, &domain.AnalysisRecord{OwnerID: "user-1", ImageURL: "https://old", ObjectKey: "uploads/user-1/old.jpg", CreatedAt: base})
	_, _ = f.repo.Insert(ctx, &domain.AnalysisRecord{OwnerID: "user-1", ImageURL: "https://new", CreatedAt: base.Add(time.Minute)})
	_, _ = f.repo.Insert(ctx, &domain.AnalysisRecord{OwnerID: "user-2", ImageURL: "https://other", CreatedAt: base})

	entries, err := f.svc.ListHistory(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://new", entries[0].ImageURL)
	assert.Empty(t, entries[0].ViewURL)
	assert.Contains(t, entries[1].ViewURL, "uploads/user-1/old.jpg")
	assert.Contains(t, entries[1].ViewURL, "X-Amz-Signature")

	f.store.signErr = errors.New("signing down")
	entries, err = f.svc.ListHistory(ctx, "user-1", 500)
	require.NoError(t, err)
	assert.Empty(t, entries[1].ViewURL)
}

func TestDeleteAnalysis(t *testing.T) {
	f := newAnalysisFixture("")
	ctx := context.Background()
	id, err := f.repo.Insert(ctx, &domain.AnalysisRecord{OwnerID: "user-1", ImageURL: "https://x"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteAnalysis(ctx, "user-2", id), ErrAnalysisNotFound)
	assert.NoError(t, f.svc.DeleteAnalysis(ctx, "user-1", id))
	assert.ErrorIs(t, f.svc.DeleteAnalysis(ctx, "user-1", id), ErrAnalysisNotFound)
	assert.ErrorIs(t, f.svc.DeleteAnalysis(ctx, "", id), ErrUnauthorized)
}

func TestAnalyzeWithRealPersister(t *testing.T) {
	repo := &memAnalysisRepo{}
	persister := NewAnalysisPersister(repo, 1, 8, time.Second, nil)
	visionFake := &fakeVision{available: true, reply: `{"contains_food": true, "confidence_score": 0.5}`}
	fetcher := &fakeFetcher{image: &FetchedImage{Data: []byte{1}, ContentType: "image/png"}}
	svc := NewAnalysisService(visionFake, fetcher, persister, repo, newFakeStore(), time.Hour, nil)

	_, err := svc.Analyze(context.Background(), "user-1", AnalyzeRequest{ImageURL: signedURL})
	require.NoError(t, err)
	require.NoError(t, persister.Shutdown(context.Background()))
	assert.Equal(t, 1, repo.count())
}
