// Package imageref validates image references carried in multimodal
// message content: inline data URIs and remote http(s) URLs.
package imageref

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/starford/masque/internal/apperr"
	"github.com/starford/masque/internal/models"
)

// DefaultMaxBytes caps the decoded size of an inline image.
const DefaultMaxBytes = 10 << 20 // 10 MB

var mimeToExt = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// Checker validates image references.
type Checker struct {
	MaxBytes    int
	AllowRemote bool
}

// New returns a checker with the default size cap that accepts remote URLs.
func New() *Checker {
	return &Checker{MaxBytes: DefaultMaxBytes, AllowRemote: true}
}

// Check validates one reference. Failures wrap apperr.ErrInvalid.
func (c *Checker) Check(ref string) error {
	if strings.HasPrefix(ref, "data:") {
		return c.checkDataURI(ref)
	}
	return c.checkRemote(ref)
}

// CheckMessages validates every image in msgs.
func (c *Checker) CheckMessages(msgs []models.ChatMessage) error {
	for i, m := range msgs {
		for _, ref := range m.Content.Images() {
			if err := c.Check(ref); err != nil {
				return fmt.Errorf("context %d: %w", i, err)
			}
		}
	}
	return nil
}

func (c *Checker) checkDataURI(uri string) error {
	data, mime, err := decodeDataURI(uri)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	if c.MaxBytes > 0 && len(data) > c.MaxBytes {
		return fmt.Errorf("%w: image too large: %d bytes (max %d)", apperr.ErrInvalid, len(data), c.MaxBytes)
	}
	if err := validateMagicBytes(data, mime); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return nil
}

func (c *Checker) checkRemote(raw string) error {
	if !c.AllowRemote {
		return fmt.Errorf("%w: remote images are disabled", apperr.ErrInvalid)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: invalid image URL: %v", apperr.ErrInvalid, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported image URL scheme %q", apperr.ErrInvalid, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: image URL has no host", apperr.ErrInvalid)
	}
	if err := checkBlockedHost(u.Hostname()); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return nil
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}
	meta, encoded := rest[:comma], rest[comma+1:]
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	if mimeToExt[mime] == "" {
		return nil, "", fmt.Errorf("unsupported image type: %s", mime)
	}
	return data, mime, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses. Names are
// not resolved.
func checkBlockedHost(host string) error {
	if host == "localhost" || host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil
	}
	if ip.IsLoopback() || ip.IsUnspecified() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// validateMagicBytes checks that data looks like the declared MIME type.
func validateMagicBytes(data []byte, mime string) error {
	if mime == "image/svg+xml" {
		prefix := data
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !bytes.Contains(prefix, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}
	detected := strings.Split(http.DetectContentType(data), ";")[0]
	if detected != mime {
		return fmt.Errorf("content does not match %s (detected: %s)", mime, detected)
	}
	return nil
}
