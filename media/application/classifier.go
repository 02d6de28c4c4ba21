package application

import (
	"net/url"
	"strings"

	"github.com/dfryer1193/agromedia/media/domain"
)

const (
	blobScheme = "blob:"

	// ProxyPath is the same-origin endpoint that serves images needing resolution.
	ProxyPath = "/image-proxy"
)

var objectStorageMarkers = []string{
	".r2.dev",
	".r2.cloudflarestorage.com",
}

// Classifier decides how a stored image reference is served using only prefix and
// substring matching.
type Classifier struct {
	remoteMarkers []string
}

// NewClassifier recognizes the public R2 domains plus the host of publicBaseURL, if any.
func NewClassifier(publicBaseURL string) *Classifier {
	markers := append([]string(nil), objectStorageMarkers...)

	if u, err := url.Parse(strings.TrimSpace(publicBaseURL)); err == nil && u.Host != "" {
		markers = append(markers, strings.ToLower(u.Host))
	}

	return &Classifier{remoteMarkers: markers}
}

func (c *Classifier) Classify(raw string) domain.Disposition {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.DispositionNone
	}

	if strings.HasPrefix(raw, blobScheme) {
		return domain.DispositionPassthroughEphemeral
	}

	lower := strings.ToLower(raw)
	for _, marker := range c.remoteMarkers {
		if strings.Contains(lower, marker) {
			return domain.DispositionPassthroughRemote
		}
	}

	return domain.DispositionNeedsResolution
}

// DisplayURL returns the URL a page should embed for raw.
func (c *Classifier) DisplayURL(raw string) string {
	switch c.Classify(raw) {
	case domain.DispositionNone:
		return ""
	case domain.DispositionPassthroughEphemeral, domain.DispositionPassthroughRemote:
		return strings.TrimSpace(raw)
	default:
		return ProxyPath + "?url=" + url.QueryEscape(strings.TrimSpace(raw))
	}
}
