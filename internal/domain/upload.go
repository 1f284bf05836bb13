package domain

import "time"

// StoredObject describes an uploaded photo: its key in the object store and a
// time-limited signed link for reading it back. The link is never persisted
// by the upload flow.
type StoredObject struct {
	Key         string    `json:"s3_key"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
}
