package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cropsim-platform/internal/config"
	"cropsim-platform/internal/handlers"
	"cropsim-platform/pkg/logging"
	"cropsim-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("cropsim-proxy", version, logging.ParseLevel(cfg.Logging.Level))
	metricsCollector := metrics.NewCollector("cropsim_proxy")

	proxyHandler := handlers.NewProxyHandler(handlers.ProxyConfig{
		UpstreamURL: cfg.Proxy.UpstreamURL,
		Timeout:     cfg.Proxy.Timeout,
		StaticDir:   cfg.Proxy.StaticDir,
	}, logger, metricsCollector)

	// /metrics goes first: the static file route catches every other GET
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	proxyHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Proxy.Host, cfg.Proxy.Port),
		Handler: handlers.RequestIDMiddleware(handlers.CORSMiddleware(router)),
	}

	ctx := context.Background()
	go func() {
		logger.Info(ctx, "[PROXY_START] CORS proxy listening", logging.Fields{
			"address":    server.Addr,
			"upstream":   cfg.Proxy.UpstreamURL,
			"static_dir": cfg.Proxy.StaticDir,
			"timeout":    cfg.Proxy.Timeout.String(),
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[PROXY_ERROR] Proxy failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Proxy forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Proxy stopped", logging.Fields{})
}
