package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// DefaultSignedURLExpiry is the lifetime of links handed out for uploaded photos.
const DefaultSignedURLExpiry = time.Hour

// SignedURL is a capability link minted by an ObjectStore. Holding one is the
// only way the rest of the service learns that a URL is pre-signed.
type SignedURL struct {
	URL       string
	Key       string
	ExpiresAt time.Time
}

// ObjectStore defines the object storage operations the pipelines rely on.
// Objects are always written private; reads go through signed links.
type ObjectStore interface {
	// Put writes body under key, preserving contentType.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// SignGet creates a temporary URL that allows GET requests for the object.
	SignGet(ctx context.Context, key string, expires time.Duration) (SignedURL, error)
}

var (
	ErrEmptyKey = errors.New("object key must not be empty")
)
