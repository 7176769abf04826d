package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

type downloadResult struct {
	notModified bool
	etag        string
}

func (c *Cache) fetch(ctx context.Context, loc location, checkVersion bool) error {
	c.fetches.Add(1)
	var err error
	if loc.remote {
		err = c.fetchRemote(ctx, loc, checkVersion)
	} else {
		err = c.fetchLocal(loc)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Cache.fetch",
			"uri":      loc.key,
			"error":    err.Error(),
		}).Warn("Failed to cache asset")
	}
	return err
}

func (c *Cache) fetchLocal(loc location) error {
	path, err := c.resolve(loc)
	if err != nil {
		return err
	}
	buf, err := decodeAsset(path)
	if err != nil {
		return err
	}
	c.store(&Entry{URI: loc.key, Buffer: buf, Path: path, Updated: time.Now(), loc: loc})
	c.watchPath(path)
	return nil
}

func (c *Cache) fetchRemote(ctx context.Context, loc location, checkVersion bool) error {
	staging := filepath.Join(c.cfg.Dir, stagingName(loc.key, loc.ext))

	etag := ""
	existing, cached := c.lookup(loc.key)
	if checkVersion && cached {
		etag = existing.ETag
	}

	res, err := c.breaker.Execute(func() (any, error) {
		return c.download(ctx, loc, staging, etag)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &DownloadError{URI: loc.key, Err: err}
	}
	if err != nil {
		return err
	}

	result := res.(downloadResult)
	if result.notModified {
		if !cached {
			return &DownloadError{URI: loc.key, Status: http.StatusNotModified}
		}
		c.notModified.Add(1)
		logrus.WithFields(logrus.Fields{
			"function": "Cache.fetchRemote",
			"uri":      loc.key,
			"etag":     etag,
		}).Debug("Cached asset is current")
		return nil
	}

	buf, err := decodeAsset(staging)
	if err != nil {
		os.Remove(staging)
		return err
	}
	c.store(&Entry{
		URI:     loc.key,
		Buffer:  buf,
		ETag:    result.etag,
		Path:    staging,
		Remote:  true,
		Updated: time.Now(),
		loc:     loc,
	})
	return nil
}

// download fetches loc into staging. A partial file never replaces an
// existing staging file.
func (c *Cache) download(ctx context.Context, loc location, staging, etag string) (downloadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.url.String(), nil)
	if err != nil {
		return downloadResult{}, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	logrus.WithFields(logrus.Fields{
		"function":      "Cache.download",
		"uri":           loc.key,
		"staging":       staging,
		"if_none_match": etag,
	}).Debug("Downloading asset")

	resp, err := c.client.Do(req)
	if err != nil {
		return downloadResult{}, &DownloadError{URI: loc.key, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		return downloadResult{notModified: true, etag: etag}, nil
	default:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return downloadResult{}, &DownloadError{URI: loc.key, Status: resp.StatusCode}
	}

	part := staging + ".part"
	f, err := os.Create(part)
	if err != nil {
		return downloadResult{}, fmt.Errorf("cache: create staging file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(resp.Body, MaxDownloadSize+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		os.Remove(part)
		return downloadResult{}, &DownloadError{URI: loc.key, Status: resp.StatusCode, Err: err}
	case n > MaxDownloadSize:
		os.Remove(part)
		return downloadResult{}, &DownloadError{
			URI: loc.key, Status: resp.StatusCode,
			Err: fmt.Errorf("body exceeds %d bytes", MaxDownloadSize),
		}
	case closeErr != nil:
		os.Remove(part)
		return downloadResult{}, fmt.Errorf("cache: write staging file: %w", closeErr)
	}
	if err := os.Rename(part, staging); err != nil {
		os.Remove(part)
		return downloadResult{}, fmt.Errorf("cache: move staging file: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Cache.download",
		"uri":      loc.key,
		"bytes":    n,
		"etag":     resp.Header.Get("ETag"),
	}).Debug("Downloaded asset")

	return downloadResult{etag: resp.Header.Get("ETag")}, nil
}
