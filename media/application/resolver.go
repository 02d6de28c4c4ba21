package application

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const uploadsPrefix = "/uploads/"

var apiSuffixRegex = regexp.MustCompile(`(?i)/api(/v\d+)?$`)

// Resolver turns an image reference into an allow-listed upstream URL. It performs no I/O.
type Resolver struct {
	base  *url.URL
	hosts *AllowedHostSet
}

// NewResolver derives the backend origin from backendBaseURL (dropping a trailing /api or
// /api/vN) and allow-lists its host together with allowedHosts.
func NewResolver(backendBaseURL string, allowedHosts []string) (*Resolver, error) {
	base, err := url.Parse(strings.TrimSpace(backendBaseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: backend base url %q: %w", ErrInvalidURL, backendBaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: backend base url %q must be absolute", ErrInvalidURL, backendBaseURL)
	}
	// only the path carries the api suffix; a host named "api" is kept
	base.Path = strings.TrimRight(apiSuffixRegex.ReplaceAllString(strings.TrimRight(base.Path, "/"), ""), "/")
	base.RawPath = ""
	base.RawQuery = ""
	base.Fragment = ""

	hosts := append([]string{base.Host}, allowedHosts...)

	return &Resolver{
		base:  base,
		hosts: NewAllowedHostSet(hosts...),
	}, nil
}

// BaseURL is the normalized backend origin.
func (r *Resolver) BaseURL() string {
	return r.base.String()
}

func (r *Resolver) AllowedHosts() *AllowedHostSet {
	return r.hosts
}

// Resolve builds the upstream URL for raw, which is either an absolute http(s) URL or a
// path relative to the backend origin. Browser-local blob references are never proxied.
func (r *Resolver) Resolve(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingInput
	}
	if strings.HasPrefix(strings.ToLower(raw), blobScheme) {
		return nil, fmt.Errorf("%w: %q is a browser-local reference", ErrInvalidURL, raw)
	}

	var target *url.URL
	if hasHTTPScheme(raw) {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
		}
		target = u
	} else {
		u, err := url.Parse(r.base.String() + "/" + strings.TrimLeft(raw, "/"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
		}
		target = u
	}

	if !r.hosts.Allows(target.Host) {
		return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, target.Host)
	}

	return target, nil
}

// ResolveUpload resolves path segments identifying a file under the backend's upload root.
func (r *Resolver) ResolveUpload(segments []string) (*url.URL, error) {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" {
			continue
		}
		if s == ".." || s == "." {
			return nil, fmt.Errorf("%w: path segment %q", ErrInvalidURL, s)
		}
		parts = append(parts, url.PathEscape(s))
	}
	if len(parts) == 0 {
		return nil, ErrMissingInput
	}

	return r.Resolve(uploadsPrefix + strings.Join(parts, "/"))
}

func hasHTTPScheme(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
