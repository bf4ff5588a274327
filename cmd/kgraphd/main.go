// Command kgraphd runs the knowledge-graph memory store as a long-lived
// daemon. It exposes the same nine store operations over one of two
// transports: an HTTP mux (POST /v1/rpc, GET /healthz, GET /metrics,
// GET /v1/ws) when -http is set, otherwise a newline-framed JSON-RPC stream
// on stdio. Both transports dispatch through the identical
// transport/jsonrpc.Server, so their behavior can never drift.
//
// Usage:
//
//	go run ./cmd/kgraphd -config kgraphd.yaml
//	go run ./cmd/kgraphd -stdio
//
// With an HTTP port:
//
//	go run ./cmd/kgraphd -http :8088
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kgraph-ai/kgraph/internal/broadcast"
	"github.com/kgraph-ai/kgraph/internal/config"
	"github.com/kgraph-ai/kgraph/internal/persistence"
	"github.com/kgraph-ai/kgraph/internal/store"
	"github.com/kgraph-ai/kgraph/internal/telemetry"
	"github.com/kgraph-ai/kgraph/transport/jsonrpc"
)

func main() {
	configPath := flag.String("config", "kgraphd.yaml", "path to the YAML config file")
	httpAddr := flag.String("http", "", "address to serve HTTP on (empty disables the HTTP mux)")
	stdio := flag.Bool("stdio", true, "serve newline-framed JSON-RPC on stdin/stdout")
	debug := flag.Bool("debug", false, "enable debug logging and Gin debug mode")
	traceExporter := flag.String("trace-exporter", "stdout", "otel trace exporter: stdout or none")
	metricsExporter := flag.String("metrics-exporter", "prometheus", "otel metrics exporter: prometheus, stdout, or none")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:     "kgraphd",
		ServiceVersion:  "dev",
		TraceExporter:   *traceExporter,
		MetricsExporter: *metricsExporter,
	})
	if err != nil {
		logger.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	meter := providers.MeterProvider.Meter("github.com/kgraph-ai/kgraph")
	metrics, err := telemetry.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	hub := broadcast.NewHub(logger, broadcast.DefaultHubOptions())

	var uploader persistence.OffsiteUploader
	if cfg.GCSBucket != "" {
		gcs, err := persistence.NewGCSUploader(ctx, cfg.GCSBucket)
		if err != nil {
			logger.Warn("failed to create GCS uploader, offsite backup disabled", "error", err)
		} else {
			uploader = gcs
		}
	}

	st, err := store.New(cfg, store.Options{
		Logger:   logger,
		Tracer:   providers.Tracer,
		Metrics:  metrics,
		Hook:     hub,
		Uploader: uploader,
	})
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	maintenanceDone := make(chan struct{})
	go func() {
		defer close(maintenanceDone)
		st.Run(ctx)
	}()

	rpc := jsonrpc.NewServer(st, logger)

	var serveErr error
	if *httpAddr != "" {
		serveErr = runHTTP(ctx, *httpAddr, *debug, st, rpc, hub, providers, logger)
	} else if *stdio {
		serveErr = rpc.Serve(ctx, os.Stdin, os.Stdout)
	} else {
		<-ctx.Done()
	}
	if serveErr != nil && ctx.Err() == nil {
		logger.Error("transport stopped unexpectedly", "error", serveErr)
	}

	stop()
	<-maintenanceDone

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Close(closeCtx); err != nil {
		logger.Error("failed to close store cleanly", "error", err)
		os.Exit(1)
	}
}

// runHTTP serves the Gin mux until ctx is canceled, then shuts it down
// gracefully. Grounded on cmd/trace's router.Run + signal.Notify pattern,
// adapted to the package-wide signal.NotifyContext already driving the
// maintenance loop's shutdown.
func runHTTP(ctx context.Context, addr string, debug bool, st *store.Store, rpc *jsonrpc.Server, hub *broadcast.Hub, providers *telemetry.Providers, logger *slog.Logger) error {
	router := buildRouter(debug, st, rpc, hub, providers.PrometheusReader != nil)
	srv := &http.Server{Addr: addr, Handler: router}

	serveErrCh := make(chan error, 1)
	go func() {
		logger.Info("kgraphd HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrCh <- err
			return
		}
		serveErrCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down HTTP server: %w", err)
		}
		return nil
	case err := <-serveErrCh:
		return err
	}
}

// buildRouter assembles the kgraphd HTTP mux. Split out from runHTTP so
// tests can drive the handlers directly with httptest rather than binding
// a real listener.
func buildRouter(debug bool, st *store.Store, rpc *jsonrpc.Server, hub *broadcast.Hub, exposeMetrics bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("kgraphd"))
	if debug {
		router.Use(gin.Logger())
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, st.Ping(c.Request.Context()))
	})

	if exposeMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.POST("/v1/rpc", func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		resp := rpc.Handle(c.Request.Context(), body)
		c.Data(http.StatusOK, "application/json", resp)
	})

	router.GET("/v1/ws", hub.ServeWS)

	return router
}
