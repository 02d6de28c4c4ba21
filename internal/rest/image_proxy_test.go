package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dfryer1193/agromedia/api"
	"github.com/dfryer1193/agromedia/internal/metrics"
	"github.com/dfryer1193/agromedia/internal/middleware"
	"github.com/dfryer1193/agromedia/media/application"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recordingFetcher answers every request with respond and remembers what was asked.
type recordingFetcher struct {
	requests []*http.Request
	respond  func(req *http.Request) (*http.Response, error)
}

func (f *recordingFetcher) Do(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	return f.respond(req)
}

func imageResponse(status int, contentType string, body string) func(*http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		header := http.Header{}
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}
		return &http.Response{
			StatusCode:    status,
			Header:        header,
			Body:          io.NopCloser(strings.NewReader(body)),
			ContentLength: int64(len(body)),
			Request:       req,
		}, nil
	}
}

type testServer struct {
	router  *gin.Engine
	fetcher *recordingFetcher
	metrics *metrics.Metrics
	reg     *prometheus.Registry
}

func newTestServer(t *testing.T, backend string, respond func(*http.Request) (*http.Response, error)) *testServer {
	t.Helper()

	resolver, err := application.NewResolver(backend, []string{"localhost", "127.0.0.1"})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	fetcher := &recordingFetcher{respond: respond}

	router := gin.New()
	router.Use(gin.CustomRecovery(middleware.HandlePanics()))
	NewApi(router, NewImageProxyHandler(resolver, fetcher, m), reg)

	return &testServer{router: router, fetcher: fetcher, metrics: m, reg: reg}
}

func (s *testServer) get(target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	assert.False(t, body.Success)
	return body
}

func TestProxyByURL_RelativePath(t *testing.T) {
	s := newTestServer(t, "http://localhost:3003/api/v1", imageResponse(http.StatusOK, "image/svg+xml", "<svg/>"))

	w := s.get("/image-proxy?url=" + url.QueryEscape("/uploads/icons/cat1.svg"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<svg/>", w.Body.String())
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400, s-maxage=86400", w.Header().Get("Cache-Control"))

	require.Len(t, s.fetcher.requests, 1)
	req := s.fetcher.requests[0]
	assert.Equal(t, "http://localhost:3003/uploads/icons/cat1.svg", req.URL.String())
	assert.Equal(t, "image/*", req.Header.Get("Accept"))
	assert.Equal(t, "no-cache", req.Header.Get("Cache-Control"))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.UpstreamFetches.WithLabelValues("query", "ok")))
}

func TestProxyByURL_DefaultContentType(t *testing.T) {
	s := newTestServer(t, "http://localhost:3003", imageResponse(http.StatusOK, "", "jpegbytes"))

	w := s.get("/image-proxy?url=" + url.QueryEscape("http://127.0.0.1:3001/uploads/a.jpg"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "9", w.Header().Get("Content-Length"))
}

func TestProxyByURL_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantError  string
	}{
		{name: "missing", target: "/image-proxy", wantStatus: http.StatusBadRequest, wantError: "Missing url parameter"},
		{name: "blank", target: "/image-proxy?url=%20%20", wantStatus: http.StatusBadRequest, wantError: "Missing url parameter"},
		{name: "foreign host", target: "/image-proxy?url=" + url.QueryEscape("https://evil.example.com/a.jpg"), wantStatus: http.StatusForbidden, wantError: "Host not allowed"},
		{name: "metadata endpoint", target: "/image-proxy?url=" + url.QueryEscape("http://169.254.169.254/latest/meta-data"), wantStatus: http.StatusForbidden, wantError: "Host not allowed"},
		{name: "invalid", target: "/image-proxy?url=" + url.QueryEscape("http://%zz/a.jpg"), wantStatus: http.StatusBadRequest, wantError: "Invalid url"},
		{name: "blob reference", target: "/image-proxy?url=" + url.QueryEscape("blob:http://localhost:3000/3f2a9c"), wantStatus: http.StatusBadRequest, wantError: "Invalid url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, "http://localhost:3003", imageResponse(http.StatusOK, "image/png", "png"))

			w := s.get(tt.target)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decodeError(t, w).Error)
			assert.Empty(t, s.fetcher.requests, "no upstream fetch may happen")
		})
	}
}

func TestProxyByURL_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name       string
		respond    func(*http.Request) (*http.Response, error)
		wantStatus int
	}{
		{name: "not found", respond: imageResponse(http.StatusNotFound, "text/plain", "nope"), wantStatus: http.StatusNotFound},
		{name: "server error", respond: imageResponse(http.StatusServiceUnavailable, "", ""), wantStatus: http.StatusServiceUnavailable},
		{name: "not modified", respond: imageResponse(http.StatusNotModified, "", ""), wantStatus: http.StatusBadGateway},
		{
			name: "no body",
			respond: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: http.NoBody, Request: req}, nil
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "transport error",
			respond: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, "http://localhost:3003", tt.respond)

			w := s.get("/image-proxy?url=" + url.QueryEscape("/uploads/a.jpg"))

			assert.Equal(t, tt.wantStatus, w.Code)
			decodeError(t, w)
			assert.Len(t, s.fetcher.requests, 1, "exactly one upstream attempt")
		})
	}
}

func TestProxyByPath(t *testing.T) {
	s := newTestServer(t, "http://localhost:3001", imageResponse(http.StatusOK, "image/png", "avatar"))

	w := s.get("/image-proxy/avatars/a1.jpg")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "avatar", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000", w.Header().Get("Cache-Control"))

	require.Len(t, s.fetcher.requests, 1)
	assert.Equal(t, "http://localhost:3001/uploads/avatars/a1.jpg", s.fetcher.requests[0].URL.String())
	assert.Equal(t, "image/*", s.fetcher.requests[0].Header.Get("Accept"))
}

func TestProxyByPath_UpstreamNotFound(t *testing.T) {
	s := newTestServer(t, "http://localhost:3001", imageResponse(http.StatusInternalServerError, "", "boom"))

	w := s.get("/image-proxy/services/tractor.png")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Image not found", w.Body.String())
}

func TestProxyByPath_FetchError(t *testing.T) {
	s := newTestServer(t, "http://localhost:3001", func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: i/o timeout")
	})

	w := s.get("/image-proxy/services/tractor.png")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", w.Body.String())
}

func TestProxyByPath_BadInput(t *testing.T) {
	s := newTestServer(t, "http://localhost:3001", imageResponse(http.StatusOK, "image/png", "x"))

	w := s.get("/image-proxy/")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing image path", decodeError(t, w).Error)

	w = s.get("/image-proxy/avatars/../../etc/passwd")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid url", decodeError(t, w).Error)

	assert.Empty(t, s.fetcher.requests)
}

func TestProxy_PanicIsRecovered(t *testing.T) {
	s := newTestServer(t, "http://localhost:3001", func(*http.Request) (*http.Response, error) {
		panic("fetcher bug")
	})

	w := s.get("/image-proxy?url=" + url.QueryEscape("/uploads/a.jpg"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	decodeError(t, w)

	// the server keeps serving after the panic
	assert.Equal(t, http.StatusOK, s.get("/healthz").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, "http://localhost:3001", imageResponse(http.StatusOK, "image/png", "x"))

	w := s.get("/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	s.get("/image-proxy/a.png")
	w = s.get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "agromedia_image_proxy_upstream_fetches_total")
}
