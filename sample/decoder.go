package sample

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Decoder turns an encoded stream into a Buffer.
type Decoder interface {
	Decode(r io.ReadSeeker) (*Buffer, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(r io.ReadSeeker) (*Buffer, error)

// Decode calls f(r).
func (f DecoderFunc) Decode(r io.ReadSeeker) (*Buffer, error) { return f(r) }

var decoders = map[string]Decoder{
	".wav":  DecoderFunc(decodeWAV),
	".wave": DecoderFunc(decodeWAV),
	".mp3":  DecoderFunc(decodeMP3),
	".opus": DecoderFunc(decodeOpus),
	".ogg":  DecoderFunc(decodeOpus),
}

// Ext returns the lowercase extension of a path or URI path.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Supported reports whether ext (with or without the leading dot) has a
// registered decoder.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	_, ok := decoders[ext]
	return ok
}

// Extensions lists the supported extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(decoders))
	for ext := range decoders {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Decode reads and decodes the file at path, choosing the decoder by
// extension.
func Decode(path string) (*Buffer, error) {
	ext := Ext(path)
	dec, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := dec.Decode(f)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "sample.Decode",
			"path":     path,
			"error":    err.Error(),
		}).Warn("Failed to decode audio file")
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "sample.Decode",
		"path":        path,
		"channels":    buf.Channels(),
		"sample_rate": buf.SampleRate(),
		"frames":      buf.Frames(),
		"duration":    buf.Duration().String(),
	}).Debug("Decoded audio file")

	return buf, nil
}

// DecodeReader decodes r using the decoder registered for ext.
func DecodeReader(ext string, r io.ReadSeeker) (*Buffer, error) {
	if !Supported(ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return decoders[ext].Decode(r)
}
