package rest

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dfryer1193/agromedia/api"
	"github.com/dfryer1193/agromedia/internal/metrics"
	"github.com/dfryer1193/agromedia/media/application"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	defaultContentType = "image/jpeg"

	urlCacheControl  = "public, max-age=86400, s-maxage=86400"
	pathCacheControl = "public, max-age=31536000"

	formQuery = "query"
	formPath  = "path"
)

// Fetcher performs the upstream request; *http.Client satisfies it.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// ImageProxyHandler streams allow-listed upstream images through the service origin.
type ImageProxyHandler struct {
	resolver *application.Resolver
	fetcher  Fetcher
	metrics  *metrics.Metrics
}

// NewImageProxyHandler builds the handler; m may be nil.
func NewImageProxyHandler(resolver *application.Resolver, fetcher Fetcher, m *metrics.Metrics) *ImageProxyHandler {
	if fetcher == nil {
		fetcher = NewUpstreamClient(resolver.AllowedHosts())
	}
	return &ImageProxyHandler{
		resolver: resolver,
		fetcher:  fetcher,
		metrics:  m,
	}
}

// ProxyByURL serves GET /image-proxy?url=<target>. Failures are JSON error bodies.
func (h *ImageProxyHandler) ProxyByURL(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, api.NewErrorResponse("Missing url parameter"))
		return
	}

	target, err := h.resolver.Resolve(raw)
	if err != nil {
		h.rejectJSON(c, raw, err)
		return
	}

	resp, err := h.fetch(c, target)
	if errors.Is(err, application.ErrHostNotAllowed) {
		h.metrics.RecordUpstream(formQuery, "refused")
		h.rejectJSON(c, raw, err)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("target", target.String()).Msg("Image proxy fetch failed")
		h.metrics.RecordUpstream(formQuery, "error")
		c.JSON(http.StatusInternalServerError, api.NewErrorResponse("Failed to fetch image"))
		return
	}
	defer resp.Body.Close()

	if upstreamErr := checkUpstream(resp); upstreamErr != nil {
		log.Warn().Err(upstreamErr).Str("target", target.String()).Msg("Image proxy upstream rejected request")
		h.metrics.RecordUpstream(formQuery, "upstream_error")
		c.JSON(upstreamErr.ResponseStatus(), api.NewErrorResponse(upstreamErr.Error()))
		return
	}

	h.metrics.RecordUpstream(formQuery, "ok")
	stream(c, resp, urlCacheControl)
}

// ProxyByPath serves GET /image-proxy/{...path} from the backend's upload root.
// Upstream failures answer in plain text.
func (h *ImageProxyHandler) ProxyByPath(c *gin.Context) {
	segments := strings.Split(strings.Trim(c.Param("path"), "/"), "/")

	target, err := h.resolver.ResolveUpload(segments)
	if err != nil {
		if errors.Is(err, application.ErrMissingInput) {
			c.JSON(http.StatusBadRequest, api.NewErrorResponse("Missing image path"))
			return
		}
		h.rejectJSON(c, c.Param("path"), err)
		return
	}

	resp, err := h.fetch(c, target)
	if errors.Is(err, application.ErrHostNotAllowed) {
		h.metrics.RecordUpstream(formPath, "refused")
		h.rejectJSON(c, c.Param("path"), err)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("target", target.String()).Msg("Image proxy fetch failed")
		h.metrics.RecordUpstream(formPath, "error")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	defer resp.Body.Close()

	if upstreamErr := checkUpstream(resp); upstreamErr != nil {
		log.Warn().Err(upstreamErr).Str("target", target.String()).Msg("Image not found upstream")
		h.metrics.RecordUpstream(formPath, "upstream_error")
		c.String(http.StatusNotFound, "Image not found")
		return
	}

	h.metrics.RecordUpstream(formPath, "ok")
	stream(c, resp, pathCacheControl)
}

func (h *ImageProxyHandler) rejectJSON(c *gin.Context, raw string, err error) {
	switch {
	case errors.Is(err, application.ErrHostNotAllowed):
		log.Warn().Err(err).Str("input", raw).Msg("Image proxy refused host")
		c.JSON(http.StatusForbidden, api.NewErrorResponse("Host not allowed"))
	case errors.Is(err, application.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, api.NewErrorResponse("Invalid url"))
	case errors.Is(err, application.ErrMissingInput):
		c.JSON(http.StatusBadRequest, api.NewErrorResponse("Missing url parameter"))
	default:
		log.Error().Err(err).Str("input", raw).Msg("Image proxy resolution failed")
		c.JSON(http.StatusInternalServerError, api.NewErrorResponse("Failed to fetch image"))
	}
}

// fetch issues the single upstream request; there is no retry. Redirect policy belongs to
// the Fetcher (see NewUpstreamClient).
func (h *ImageProxyHandler) fetch(c *gin.Context, target *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("Cache-Control", "no-cache")

	return h.fetcher.Do(req)
}

func checkUpstream(resp *http.Response) *application.UpstreamError {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &application.UpstreamError{Status: resp.StatusCode}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return &application.UpstreamError{}
	}
	return nil
}

func stream(c *gin.Context, resp *http.Response, cacheControl string) {
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", cacheControl)
	if resp.ContentLength >= 0 {
		c.Header("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		// headers are already sent; the client sees a truncated body
		log.Error().Err(err).Msg("Image proxy stream interrupted")
		c.Error(err)
	}
}
