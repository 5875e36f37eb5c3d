// LessonForge HTTP Server
// Hierarchical lesson-content editing backend with media upload
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/edukit/lessonforge/internal/logger"
	"github.com/edukit/lessonforge/internal/metrics"
	"github.com/edukit/lessonforge/internal/objectstore"
	"github.com/edukit/lessonforge/internal/server"
	"github.com/edukit/lessonforge/pkg/gateway"
	"github.com/edukit/lessonforge/pkg/media"
)

var (
	port     = flag.Int("port", 8080, "The server port")
	dataDir  = flag.String("data", "lessonforge-data", "Content storage directory")
	logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	pretty   = flag.Bool("pretty", false, "Pretty-print logs for development")
)

func main() {
	flag.Parse()

	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	logger.InitGlobalLogger(logger.Config{Level: *logLevel, Pretty: *pretty})
	log := logger.GetGlobalLogger()
	met := metrics.NewMetrics()

	log.LogServerStart(*port, *dataDir)

	gw, err := gateway.NewFileGateway(*dataDir)
	if err != nil {
		log.Fatal("Failed to open content storage").Err(err).Send()
	}

	store, err := buildObjectStore(log, met)
	if err != nil {
		log.Fatal("Failed to configure object storage").Err(err).Send()
	}

	uploads := media.NewOrchestrator(store, media.Options{
		DisplayWindow: 3 * time.Second,
		MaxConcurrent: 4,
	})

	api := server.NewServer(gw, uploads, log, met)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      api.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.LogServerShutdown()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Error("Shutdown failed").Err(err).Send()
		}
	}()

	log.LogServerReady(*port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Server failed").Err(err).Send()
	}
}

// buildObjectStore picks S3 when a bucket is configured, otherwise an
// in-memory store suitable for local development only.
func buildObjectStore(log *logger.Logger, met *metrics.Metrics) (media.ObjectStore, error) {
	bucket := os.Getenv("MEDIA_BUCKET")
	if bucket == "" {
		log.Warn("MEDIA_BUCKET not set, using in-memory object store").Send()
		return media.NewMemoryStore("http://localhost:8080/dev-media"), nil
	}
	return objectstore.NewS3Store(objectstore.S3Config{
		Region:    envOr("MEDIA_REGION", "us-east-1"),
		Bucket:    bucket,
		Endpoint:  os.Getenv("MEDIA_ENDPOINT"),
		CDNDomain: os.Getenv("MEDIA_CDN_DOMAIN"),
	}, log, met)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
