package cache

import (
	"errors"
	"fmt"

	"github.com/opd-ai/beak/limits"
	"github.com/opd-ai/beak/sample"
)

var (
	// ErrMalformedURI indicates a URI that cannot be parsed or has an
	// unsupported scheme.
	ErrMalformedURI = errors.New("malformed uri")

	// ErrUnsupportedFormat indicates an asset extension with no decoder.
	ErrUnsupportedFormat = sample.ErrUnsupportedFormat

	// ErrDurationExceeded indicates a decoded asset longer than the limit.
	ErrDurationExceeded = limits.ErrDurationExceeded

	// ErrOutsideSampleRoot indicates a local path that resolves outside the
	// sample root.
	ErrOutsideSampleRoot = errors.New("path outside sample root")

	// ErrDownload indicates a failed remote fetch.
	ErrDownload = errors.New("download failed")

	// ErrDecode indicates an asset that could not be decoded.
	ErrDecode = errors.New("decode failed")

	// ErrNotFound indicates a missing local asset or cache entry.
	ErrNotFound = errors.New("asset not found")

	// ErrNotConfigured indicates use before Configure succeeded.
	ErrNotConfigured = errors.New("cache not configured")
)

// DownloadError carries the HTTP status of a failed download. Status is 0
// when no response was received.
type DownloadError struct {
	URI    string
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("%s: %s: status %d: %v", ErrDownload, e.URI, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", ErrDownload, e.URI, e.Err)
	default:
		return fmt.Sprintf("%s: %s: status %d", ErrDownload, e.URI, e.Status)
	}
}

// Is matches ErrDownload.
func (e *DownloadError) Is(target error) bool {
	return target == ErrDownload
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
