package api

import (
	"alcyxob/nutrition-app/internal/config"
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"alcyxob/nutrition-app/internal/repository/sqlite"
	"alcyxob/nutrition-app/internal/service"
	"alcyxob/nutrition-app/internal/session"
	"alcyxob/nutrition-app/internal/storage"
	"alcyxob/nutrition-app/internal/vision"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func (s *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.objects[key] = data
	return nil
}

func (s *memStore) SignGet(_ context.Context, key string, expires time.Duration) (storage.SignedURL, error) {
	return storage.SignedURL{
		URL:       fmt.Sprintf("https://bucket.example/%s?X-Amz-Expires=%d&X-Amz-Signature=abc123", key, int(expires.Seconds())),
		Key:       key,
		ExpiresAt: time.Now().Add(expires),
	}, nil
}

func (s *memStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// stubVision answers every analysis with a fixed model reply.
type stubVision struct {
	available bool
	reply     string
	err       error
	calls     int
}

func (v *stubVision) Available() bool { return v.available }

func (v *stubVision) Analyze(_ context.Context, _ []byte, _ string) (*vision.RawAnalysis, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	return vision.ParseReply(v.reply)
}

type testServer struct {
	router    *gin.Engine
	sessions  *session.Manager
	store     *memStore
	vision    *stubVision
	analyses  repository.AnalysisRepository
	profiles  repository.UserProfileRepository
	persister *service.AnalysisPersister
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := &memStore{objects: map[string][]byte{}}
	ts := newTestServerWithStore(t, store)
	ts.store = store
	return ts
}

// newTestServerWithStore wires the router to objectStore for uploads and history links.
func newTestServerWithStore(t *testing.T, objectStore storage.ObjectStore) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessions, err := session.NewManager("test-secret", time.Hour, "nutrition_session", false)
	require.NoError(t, err)

	ts := &testServer{
		sessions: sessions,
		vision:   &stubVision{available: true, reply: `{"contains_food": false}`},
		analyses: sqlite.NewSQLiteAnalysisRepository(db),
		profiles: sqlite.NewSQLiteUserProfileRepository(db),
	}
	ts.persister = service.NewAnalysisPersister(ts.analyses, 1, 8, 5*time.Second, nil)
	t.Cleanup(func() { _ = ts.persister.Shutdown(context.Background()) })

	fetcher := service.NewHTTPImageFetcher(nil, 5*time.Second, service.MaxUploadBytes)
	ts.router = NewRouter(config.ServerConfig{})
	SetupRoutes(
		ts.router,
		sessions,
		service.NewAuthService(ts.profiles, sessions),
		service.NewUploadService(objectStore, time.Hour, nil),
		service.NewAnalysisService(ts.vision, fetcher, ts.persister, ts.analyses, objectStore, time.Hour, nil),
		service.NewProfileService(ts.profiles),
		nil,
	)
	return ts
}

// flush waits until every queued analysis record has been written.
func (ts *testServer) flush(t *testing.T) {
	t.Helper()
	require.NoError(t, ts.persister.Shutdown(context.Background()))
}

func (ts *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := ts.sessions.Issue(domain.Identity{UserID: userID, Email: userID + "@example.com"})
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, target string, body any, token string) *http.Request {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

// imageServer serves a small JPEG at /photo.jpg and 404s everything else.
func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photo.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10})
	}))
	t.Cleanup(srv.Close)
	return srv
}
