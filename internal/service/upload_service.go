package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/metrics"
	"alcyxob/nutrition-app/internal/storage"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxUploadBytes is the largest photo accepted for upload (5 MiB).
const MaxUploadBytes int64 = 5 << 20

// allowedImageTypes maps accepted media types to the object key extension.
var allowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// UploadRequest is one photo submitted by a client. Size is the declared
// length, or -1 when unknown.
type UploadRequest struct {
	Body        io.Reader
	Size        int64
	ContentType string
	FileName    string
}

type UploadService interface {
	Upload(ctx context.Context, ownerID string, req UploadRequest) (*domain.StoredObject, error)
}

// uploadService implements the UploadService interface.
type uploadService struct {
	store   storage.ObjectStore
	signTTL time.Duration
	metrics *metrics.Metrics
}

// NewUploadService creates an upload pipeline writing to store and returning
// links valid for signTTL.
func NewUploadService(store storage.ObjectStore, signTTL time.Duration, m *metrics.Metrics) UploadService {
	if signTTL <= 0 {
		signTTL = storage.DefaultSignedURLExpiry
	}
	return &uploadService{store: store, signTTL: signTTL, metrics: m}
}

// Upload validates the photo, stores it under a fresh key owned by ownerID
// and returns a signed link to read it back. All validation happens before
// any storage I/O.
func (s *uploadService) Upload(ctx context.Context, ownerID string, req UploadRequest) (*domain.StoredObject, error) {
	obj, err := s.upload(ctx, ownerID, req)
	s.metrics.RecordUpload(req.Size, err)
	return obj, err
}

func (s *uploadService) upload(ctx context.Context, ownerID string, req UploadRequest) (*domain.StoredObject, error) {
	// 1. Validate inputs
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	if req.Body == nil || req.Size == 0 {
		return nil, ErrNoFile
	}
	if req.Size > MaxUploadBytes {
		return nil, ErrPayloadTooLarge
	}
	mediaType, ext, ok := imageType(req.ContentType)
	if !ok {
		return nil, ErrUnsupportedMediaType
	}

	// The body handed to the store is always seekable
	var body io.ReadSeeker
	size := req.Size
	if rs, ok := req.Body.(io.ReadSeeker); ok && size >= 0 {
		body = rs
	} else {
		limit := MaxUploadBytes
		if size >= 0 {
			limit = size
		}
		data, err := io.ReadAll(io.LimitReader(req.Body, limit+1))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoFile, err)
		}
		if int64(len(data)) > MaxUploadBytes {
			return nil, ErrPayloadTooLarge
		}
		if size >= 0 && int64(len(data)) > size {
			data = data[:size]
		}
		if len(data) == 0 {
			return nil, ErrNoFile
		}
		body, size = bytes.NewReader(data), int64(len(data))
	}

	// 2. Generate a unique object key under the owner's prefix
	objectKey := path.Join("uploads", ownerID, fmt.Sprintf("%s.%s", uuid.NewString(), ext))

	// 3. Store the object
	if err := s.store.Put(ctx, objectKey, body, size, mediaType); err != nil {
		log.Printf("ERROR: Upload of '%s' for user %s failed: %v", req.FileName, ownerID, err)
		return nil, fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	// 4. Sign a read link
	signed, err := s.store.SignGet(ctx, objectKey, s.signTTL)
	if err != nil {
		log.Printf("ERROR: Signing stored object '%s' failed: %v", objectKey, err)
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	log.Printf("INFO: Stored upload %s (%d bytes, %s) for user %s", objectKey, size, mediaType, ownerID)

	return &domain.StoredObject{
		Key:         objectKey,
		URL:         signed.URL,
		ExpiresAt:   signed.ExpiresAt,
		ContentType: mediaType,
		Size:        size,
	}, nil
}

// imageType normalizes a declared content type and reports whether it is an
// accepted photo format.
func imageType(contentType string) (mediaType, ext string, ok bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", "", false
	}
	mediaType = strings.ToLower(mediaType)
	ext, ok = allowedImageTypes[mediaType]
	if mediaType == "image/jpg" {
		mediaType = "image/jpeg"
	}
	return mediaType, ext, ok
}
