package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfryer1193/agromedia/internal/metrics"
	"github.com/dfryer1193/agromedia/internal/middleware"
	"github.com/dfryer1193/agromedia/internal/rest"
	"github.com/dfryer1193/agromedia/media/application"
	"github.com/dfryer1193/agromedia/shared/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	config.ConfigureLogging(cfg.Logging)

	allowed := append(append([]string{}, cfg.ImageProxy.DevHosts...), cfg.ImageProxy.AllowedHosts...)
	resolver, err := application.NewResolver(cfg.BackendAPIURL, allowed)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid backend URL")
	}
	log.Info().
		Str("backend", resolver.BaseURL()).
		Strs("allowed_hosts", resolver.AllowedHosts().Hosts()).
		Msg("Image proxy configured")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	proxy := rest.NewImageProxyHandler(resolver, rest.NewUpstreamClient(resolver.AllowedHosts()), m)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.LoggingMiddleware("/healthz", "/metrics"))
	r.Use(gin.CustomRecovery(middleware.HandlePanics()))
	r.Use(middleware.MetricsMiddleware(m))
	rest.NewApi(r, proxy, reg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to shutdown server")
	}

	log.Info().Msg("Server stopped")
}
