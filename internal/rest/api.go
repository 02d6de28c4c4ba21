package rest

import (
	"net/http"

	"github.com/dfryer1193/agromedia/api"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApi registers every route of the media service on router.
func NewApi(router *gin.Engine, proxy *ImageProxyHandler, gatherer prometheus.Gatherer) {
	router.GET("/healthz", Health)

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// the query form must be registered before the catch-all
	router.GET("/image-proxy", proxy.ProxyByURL)
	router.GET("/image-proxy/*path", proxy.ProxyByPath)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}
