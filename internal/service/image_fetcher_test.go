package service

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReturnsImageBytes(t *testing.T) {
	payload := jpegPayload(4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/JPEG")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	img, err := NewHTTPImageFetcher(srv.Client(), time.Second, 1<<20).Fetch(context.Background(), srv.URL+"/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, payload, img.Data)
	assert.Equal(t, "image/jpeg", img.ContentType)
}

func TestFetchFailures(t *testing.T) {
	cases := []struct {
		name       string
		handler    http.HandlerFunc
		maxBytes   int64
		wantStatus int
	}{
		{
			name:       "not found",
			handler:    func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "expired signature",
			handler:    func(w http.ResponseWriter, r *http.Request) { http.Error(w, "AccessDenied", http.StatusForbidden) },
			wantStatus: http.StatusForbidden,
		},
		{
			name: "html page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html></html>"))
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "too large",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/png")
				_, _ = w.Write(bytes.Repeat([]byte{1}, 2048))
			},
			maxBytes:   1024,
			wantStatus: http.StatusOK,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/png")
			},
			wantStatus: http.StatusOK,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			maxBytes := tc.maxBytes
			if maxBytes == 0 {
				maxBytes = 1 << 20
			}
			_, err := NewHTTPImageFetcher(srv.Client(), time.Second, maxBytes).Fetch(context.Background(), srv.URL)

			var fetchErr *ImageFetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tc.wantStatus, fetchErr.StatusCode)
			assert.Contains(t, err.Error(), "failed to fetch image")
		})
	}
}

func TestFetchIsCancelledOnTimeout(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(released)
	}))
	defer srv.Close()

	started := time.Now()
	_, err := NewHTTPImageFetcher(srv.Client(), 100*time.Millisecond, 1<<20).Fetch(context.Background(), srv.URL)

	var fetchErr *ImageFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Reason, "timed out")
	assert.Less(t, time.Since(started), 5*time.Second)

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream request was not cancelled")
	}
}
