package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds the whole outbound image download.
const DefaultFetchTimeout = 20 * time.Second

// FetchedImage is the downloaded photo and its media type.
type FetchedImage struct {
	Data        []byte
	ContentType string
}

// ImageFetcher downloads the photo behind a (signed) URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (*FetchedImage, error)
}

// httpImageFetcher implements ImageFetcher over plain HTTP(S).
type httpImageFetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewHTTPImageFetcher creates a fetcher whose requests are cancelled after
// timeout and whose bodies are capped at maxBytes.
func NewHTTPImageFetcher(client *http.Client, timeout time.Duration, maxBytes int64) ImageFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if maxBytes <= 0 {
		maxBytes = MaxUploadBytes
	}
	return &httpImageFetcher{client: client, timeout: timeout, maxBytes: maxBytes}
}

// Fetch downloads the image. Every failure is an *ImageFetchError.
func (f *httpImageFetcher) Fetch(ctx context.Context, imageURL string) (*FetchedImage, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &ImageFetchError{Reason: "invalid request", Err: err}
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &ImageFetchError{Reason: fmt.Sprintf("timed out after %s", f.timeout), Err: err}
		}
		return nil, &ImageFetchError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ImageFetchError{
			Reason:     fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			StatusCode: resp.StatusCode,
		}
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(strings.ToLower(mediaType), "image/") {
		return nil, &ImageFetchError{
			Reason:     fmt.Sprintf("URL did not return an image (content type %q)", resp.Header.Get("Content-Type")),
			StatusCode: resp.StatusCode,
		}
	}

	data, err := readAllWithLimit(resp.Body, f.maxBytes)
	if err != nil {
		switch {
		case errors.Is(err, errImageTooLarge):
			return nil, &ImageFetchError{Reason: fmt.Sprintf("image is larger than %d bytes", f.maxBytes), StatusCode: resp.StatusCode}
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, &ImageFetchError{Reason: fmt.Sprintf("timed out after %s", f.timeout), Err: err}
		}
		return nil, &ImageFetchError{Reason: "reading image failed", Err: err}
	}
	if len(data) == 0 {
		return nil, &ImageFetchError{Reason: "image is empty", StatusCode: resp.StatusCode}
	}

	return &FetchedImage{Data: data, ContentType: strings.ToLower(mediaType)}, nil
}

var errImageTooLarge = errors.New("image exceeds the size limit")

// readAllWithLimit reads at most limit bytes and fails if r holds more.
func readAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(&io.LimitedReader{R: r, N: limit + 1})
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", errImageTooLarge, limit)
	}
	return data, nil
}
