package storage

import (
	"alcyxob/nutrition-app/internal/config"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore implements ObjectStore on Google Cloud Storage with V4 signed URLs.
type GCSStore struct {
	client       *gcs.Client
	bucket       string
	signingEmail string
	privateKey   []byte
}

// NewGCSStore creates a GCS-backed object store. When no signing key is
// configured, URLs are signed with the client's own credentials.
func NewGCSStore(ctx context.Context, cfg config.GCSConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		log.Printf("ERROR: Failed to create GCS client: %v", err)
		return nil, err
	}

	log.Printf("INFO: GCS object store initialized for bucket: %s", cfg.Bucket)

	return &GCSStore{
		client:       client,
		bucket:       cfg.Bucket,
		signingEmail: cfg.SigningEmail,
		privateKey:   normalizePEM(cfg.SigningPrivateKey),
	}, nil
}

// Put streams body into a new object. Objects inherit the bucket's (private) IAM policy.
func (s *GCSStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if key == "" {
		return ErrEmptyKey
	}

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		log.Printf("ERROR: Failed to write object '%s' to bucket '%s': %v", key, s.bucket, err)
		return fmt.Errorf("write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		log.Printf("ERROR: Failed to finalize object '%s' in bucket '%s': %v", key, s.bucket, err)
		return fmt.Errorf("finalize object %q: %w", key, err)
	}
	return nil
}

// SignGet creates a V4 signed URL for downloading the object.
func (s *GCSStore) SignGet(ctx context.Context, key string, expires time.Duration) (SignedURL, error) {
	if key == "" {
		return SignedURL{}, ErrEmptyKey
	}
	if expires <= 0 {
		expires = DefaultSignedURLExpiry
	}
	expiresAt := time.Now().Add(expires)

	var (
		url string
		err error
	)
	if len(s.privateKey) > 0 {
		url, err = signedDownloadURL(s.bucket, key, s.signingEmail, s.privateKey, expiresAt)
	} else {
		url, err = s.client.Bucket(s.bucket).SignedURL(key, &gcs.SignedURLOptions{
			Scheme:  gcs.SigningSchemeV4,
			Method:  http.MethodGet,
			Expires: expiresAt,
		})
	}
	if err != nil {
		log.Printf("ERROR: Failed to sign GCS URL for key '%s': %v", key, err)
		return SignedURL{}, fmt.Errorf("sign get %q: %w", key, err)
	}
	return SignedURL{URL: url, Key: key, ExpiresAt: expiresAt}, nil
}

// Close releases the underlying GCS client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func signedDownloadURL(bucket, key, email string, privateKey []byte, expiresAt time.Time) (string, error) {
	return gcs.SignedURL(bucket, key, &gcs.SignedURLOptions{
		Scheme:         gcs.SigningSchemeV4,
		Method:         http.MethodGet,
		Expires:        expiresAt,
		GoogleAccessID: email,
		PrivateKey:     privateKey,
	})
}

// normalizePEM converts literal \n sequences back into real newlines.
func normalizePEM(key string) []byte {
	if key == "" {
		return nil
	}
	return []byte(strings.ReplaceAll(key, `\n`, "\n"))
}
