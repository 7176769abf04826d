package cache

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/opd-ai/beak/limits"
	"github.com/opd-ai/beak/sample"
)

// location is a parsed asset URI. Building one performs no I/O.
type location struct {
	key    string
	ext    string
	remote bool
	url    *url.URL
	// path is the lexical absolute path of a local asset
	path string
}

func (c *Cache) locate(raw string) (location, error) {
	if err := limits.ValidateURI(raw); err != nil {
		return location{}, fmt.Errorf("%w: %w", ErrMalformedURI, err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return location{}, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}

	var loc location
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return location{}, fmt.Errorf("%w: %q has no host", ErrMalformedURI, raw)
		}
		u.Fragment = ""
		u.Scheme = strings.ToLower(u.Scheme)
		loc = location{key: u.String(), ext: sample.Ext(path.Base(u.Path)), remote: true, url: u}
	case "file":
		if u.Host != "" && u.Host != "localhost" {
			return location{}, fmt.Errorf("%w: remote file host %q", ErrMalformedURI, u.Host)
		}
		p := u.Path
		if u.Opaque != "" {
			p = u.Opaque
		}
		loc = c.localLocation(p)
	case "":
		loc = c.localLocation(raw)
	default:
		return location{}, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURI, u.Scheme)
	}

	if !sample.Supported(loc.ext) {
		return location{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
	return loc, nil
}

func (c *Cache) localLocation(p string) location {
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.rootAbs, p)
	}
	p = filepath.Clean(p)
	return location{key: "file://" + filepath.ToSlash(p), ext: sample.Ext(p), path: p}
}

// resolve evaluates symlinks and checks the result stays under the sample
// root.
func (c *Cache) resolve(loc location) (string, error) {
	if !within(c.rootAbs, loc.path) {
		return "", fmt.Errorf("%w: %s", ErrOutsideSampleRoot, loc.path)
	}
	resolved, err := filepath.EvalSymlinks(loc.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, loc.path)
		}
		return "", err
	}
	if !within(c.root, resolved) {
		return "", fmt.Errorf("%w: %s resolves to %s", ErrOutsideSampleRoot, loc.path, resolved)
	}
	return resolved, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// stagingName derives a collision-free file name for a remote asset.
func stagingName(key, ext string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + ext
}
