// Package s3test provides an in-process S3-compatible endpoint for tests.
package s3test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Object is a stored object as the endpoint received it.
type Object struct {
	Body        []byte
	ContentType string
	ACL         string
}

// Server is a tiny path-style S3 endpoint: PUT stores, GET returns.
// Signatures are not verified.
type Server struct {
	*httptest.Server

	bucket  string
	mu      sync.Mutex
	objects map[string]Object
	puts    int
}

// NewServer starts an endpoint serving a single bucket. Call Close when done.
func NewServer(bucket string) *Server {
	s := &Server{bucket: bucket, objects: map[string]Object{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	prefix := "/" + s.bucket + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, "no such bucket", http.StatusNotFound)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, prefix)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.puts++
		s.objects[key] = Object{
			Body:        body,
			ContentType: r.Header.Get("Content-Type"),
			ACL:         r.Header.Get("X-Amz-Acl"),
		}
		w.Header().Set("ETag", `"fake-etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		obj, ok := s.objects[key]
		if !ok {
			http.Error(w, "no such key", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", obj.ContentType)
		_, _ = w.Write(obj.Body)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Object returns the stored object under key.
func (s *Server) Object(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Puts reports how many PUT requests were stored.
func (s *Server) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
