package service

import (
	"errors"
	"fmt"
)

// --- Error Definitions ---
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNoFile               = errors.New("no file provided")
	ErrPayloadTooLarge      = errors.New("file too large, maximum size is 5MB")
	ErrUnsupportedMediaType = errors.New("unsupported file type, allowed types are JPEG, PNG, WebP and GIF")
	ErrStorageWrite         = errors.New("failed to store file")
	ErrSigning              = errors.New("failed to generate signed URL")
	ErrInvalidImageURL      = errors.New("invalid image URL")
	ErrVisionUnavailable    = errors.New("food analysis is not available: vision model is not configured")
	ErrAnalysisNotFound     = errors.New("analysis not found")
)

// ImageFetchError reports why the image behind an analysis URL could not be retrieved.
type ImageFetchError struct {
	Reason     string
	StatusCode int // upstream HTTP status, 0 when no response was received
	Err        error
}

func (e *ImageFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch image: %s: %v", e.Reason, e.Err)
	}
	return "failed to fetch image: " + e.Reason
}

func (e *ImageFetchError) Unwrap() error { return e.Err }

// AnalysisFailedError is a per-request failure of the vision model call or of
// its reply validation. Reason is safe to show to the caller.
type AnalysisFailedError struct {
	Reason string
	Err    error
}

func (e *AnalysisFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis failed: %s: %v", e.Reason, e.Err)
	}
	return "analysis failed: " + e.Reason
}

func (e *AnalysisFailedError) Unwrap() error { return e.Err }
