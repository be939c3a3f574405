// Package main serves the leak classifier over HTTP.
//
// Usage:
//
//	inference --model model.json --addr :5000
//	inference --model s3://models/leak/v3.json
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pipeline-guard/internal/inference"
)

func main() {
	// Existing environment wins over .env.
	_ = godotenv.Load()

	modelLocation := flag.String("model", envOr("MODEL_LOCATION", "model.json"), "Model artifact path or s3://bucket/key")
	awsRegion := flag.String("aws-region", os.Getenv("AWS_REGION"), "AWS region for s3:// artifacts")
	addr := flag.String("addr", envOr("INFERENCE_ADDR", ":5000"), "HTTP listen address")
	flag.Parse()

	logger := log.New(os.Stdout, "[inference] ", log.LstdFlags|log.Lshortfile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model, err := inference.LoadArtifact(ctx, *modelLocation, inference.LoadOptions{Region: *awsRegion})
	if err != nil {
		logger.Fatalf("Failed to load model: %v", err)
	}
	logger.Printf("Model loaded from %s", *modelLocation)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           inference.NewServer(inference.NewLocalClient(model), inference.ServerOptions{Logger: logger}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	logger.Printf("Serving POST /predict on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
