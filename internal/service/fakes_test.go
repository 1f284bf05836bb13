package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"alcyxob/nutrition-app/internal/storage"
	"alcyxob/nutrition-app/internal/vision"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// fakeStore is an in-memory storage.ObjectStore.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	puts     int
	seekable bool // last Put body could seek
	putErr   error
	signErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	_, f.seekable = body.(io.Seeker)
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeStore) SignGet(_ context.Context, key string, expires time.Duration) (storage.SignedURL, error) {
	if f.signErr != nil {
		return storage.SignedURL{}, f.signErr
	}
	return storage.SignedURL{
		URL:       fmt.Sprintf("https://photos.example/%s?X-Amz-Signature=sig&X-Amz-Expires=%d", key, int(expires.Seconds())),
		Key:       key,
		ExpiresAt: time.Now().Add(expires),
	}, nil
}

func (f *fakeStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

// fakeVision returns a canned reply.
type fakeVision struct {
	available bool
	reply     string
	err       error
	calls     int
	lastMIME  string
}

func (f *fakeVision) Available() bool { return f.available }

func (f *fakeVision) Analyze(_ context.Context, _ []byte, mimeType string) (*vision.RawAnalysis, error) {
	f.calls++
	f.lastMIME = mimeType
	if f.err != nil {
		return nil, f.err
	}
	return vision.ParseReply(f.reply)
}

// fakeFetcher returns canned bytes.
type fakeFetcher struct {
	image *FetchedImage
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) (*FetchedImage, error) {
	f.calls++
	return f.image, f.err
}

// recordingSink captures enqueued records synchronously.
type recordingSink struct {
	mu      sync.Mutex
	records []domain.AnalysisRecord
}

func (s *recordingSink) Enqueue(record domain.AnalysisRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return true
}

func (s *recordingSink) all() []domain.AnalysisRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AnalysisRecord(nil), s.records...)
}

// memAnalysisRepo is an in-memory repository.AnalysisRepository.
type memAnalysisRepo struct {
	mu        sync.Mutex
	records   []domain.AnalysisRecord
	insertErr error
	block     chan struct{} // when set, Insert waits for it to close
	nextID    int
}

func (r *memAnalysisRepo) Insert(ctx context.Context, record *domain.AnalysisRecord) (string, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return "", r.insertErr
	}
	r.nextID++
	record.ID = fmt.Sprintf("a-%d", r.nextID)
	r.records = append(r.records, *record)
	return record.ID, nil
}

func (r *memAnalysisRepo) ListByOwner(_ context.Context, ownerID string, limit int) ([]domain.AnalysisRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AnalysisRecord
	for _, rec := range r.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memAnalysisRepo) Delete(_ context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rec.ID == id && rec.OwnerID == ownerID {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memAnalysisRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// memProfileRepo is an in-memory repository.UserProfileRepository.
type memProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.UserProfile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: map[string]*domain.UserProfile{}}
}

func (r *memProfileRepo) Create(_ context.Context, p *domain.UserProfile) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.profiles {
		if existing.Email == strings.ToLower(p.Email) {
			return "", repository.ErrAlreadyExists
		}
	}
	p.ID = fmt.Sprintf("u-%d", len(r.profiles)+1)
	p.Email = strings.ToLower(p.Email)
	cp := *p
	r.profiles[p.ID] = &cp
	return p.ID, nil
}

func (r *memProfileRepo) GetByEmail(_ context.Context, email string) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Email == strings.ToLower(email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memProfileRepo) GetByID(_ context.Context, id string) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProfileRepo) UpdateSettings(_ context.Context, id string, s domain.ProfileSettings) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if s.Name != nil {
		p.Name = *s.Name
	}
	if s.DailyCalorieGoal != nil {
		p.DailyCalorieGoal = *s.DailyCalorieGoal
	}
	if s.DietaryPreferences != nil {
		p.DietaryPreferences = s.DietaryPreferences
	}
	cp := *p
	return &cp, nil
}
