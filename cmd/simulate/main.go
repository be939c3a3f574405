// Package main replays a historical sensor recording through the classifier
// and appends every classified sample to the prediction log.
//
// Usage:
//
//	simulate --data water_leak_detection.csv --api-url http://127.0.0.1:5000/predict
//	simulate --local-model model.json --log-backend postgres --postgres-dsn ...
//	simulate --stream --from 0 --to 500
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pipeline-guard/internal/dataset"
	"pipeline-guard/internal/inference"
	"pipeline-guard/internal/observability"
	"pipeline-guard/internal/simulator"
	"pipeline-guard/internal/storage/backend"
)

func main() {
	_ = godotenv.Load()

	dataPath := flag.String("data", envOr("DATA_PATH", "water_leak_detection.csv"), "Historical recording (CSV)")
	from := flag.Int("from", envInt("REPLAY_FROM", simulator.DefaultFrom), "First feature row to replay")
	to := flag.Int("to", envInt("REPLAY_TO", simulator.DefaultTo), "Replay stops before this feature row")
	stream := flag.Bool("stream", os.Getenv("REPLAY_STREAM") == "true", "Compute features sample by sample as the replay advances")
	interval := flag.Duration("interval", envDuration("REPLAY_INTERVAL", simulator.DefaultInterval), "Wait between samples")
	apiURL := flag.String("api-url", envOr("INFERENCE_URL", "http://127.0.0.1:5000/predict"), "Inference service /predict URL")
	timeout := flag.Duration("timeout", inference.DefaultTimeout, "Inference request timeout")
	localModel := flag.String("local-model", os.Getenv("LOCAL_MODEL"), "Classify in-process with this artifact instead of --api-url")
	awsRegion := flag.String("aws-region", os.Getenv("AWS_REGION"), "AWS region for s3:// artifacts")
	logBackend := flag.String("log-backend", envOr("LOG_BACKEND", backend.CSV), "Prediction log backend: csv, postgres, clickhouse, redis")
	logPath := flag.String("log-path", envOr("LOG_PATH", "prediction_log.csv"), "CSV prediction log path")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Redis address")
	redisPassword := flag.String("redis-password", os.Getenv("REDIS_PASSWORD"), "Redis password")
	redisKey := flag.String("redis-key", os.Getenv("REDIS_KEY"), "Redis list key")
	migrate := flag.Bool("migrate", false, "Apply embedded schema migrations before replay")
	metricsAddr := flag.String("metrics-addr", os.Getenv("METRICS_ADDR"), "Prometheus metrics address (disabled when empty)")
	flag.Parse()

	logger := log.New(os.Stdout, "[simulate] ", log.LstdFlags|log.Lshortfile)
	logger.Println("Simulator started...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, simulation stopped by user", sig)
		cancel()
	}()

	samples, err := dataset.LoadFile(*dataPath)
	if err != nil {
		logger.Fatalf("Failed to load recording: %v", err)
	}
	logger.Printf("Original data loaded: %d samples", len(samples))

	var client inference.Client
	if *localModel != "" {
		model, err := inference.LoadArtifact(ctx, *localModel, inference.LoadOptions{Region: *awsRegion})
		if err != nil {
			logger.Fatalf("Failed to load model: %v", err)
		}
		client = inference.NewLocalClient(model)
		logger.Printf("Classifying in-process with %s", *localModel)
	} else {
		client = inference.NewHTTPClient(*apiURL, inference.WithTimeout(*timeout))
		logger.Printf("Classifying via %s", *apiURL)
	}

	sampleLog, closeLog, err := backend.OpenSampleLog(ctx, backend.Config{
		Backend:       *logBackend,
		CSVPath:       *logPath,
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
		RedisAddr:     *redisAddr,
		RedisPassword: *redisPassword,
		RedisKey:      *redisKey,
		Migrate:       *migrate,
	})
	if err != nil {
		logger.Fatalf("Failed to open prediction log: %v", err)
	}
	defer closeLog()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Serving metrics on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	driver := simulator.NewDriver(simulator.Options{
		Client:   client,
		Log:      sampleLog,
		From:     *from,
		To:       *to,
		Stream:   *stream,
		Interval: *interval,
		Logger:   logger,
	})

	stats, err := driver.Run(ctx, samples)
	logger.Printf("Sent=%d Appended=%d Skipped=%d Aborted=%v", stats.Sent, stats.Appended, stats.Skipped, stats.Aborted)

	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, simulator.ErrTransportUnavailable):
		logger.Printf("Error: could not connect to the inference service at %s. Is it running?", *apiURL)
		logger.Printf("Details: %v", err)
		closeLog()
		os.Exit(1)
	default:
		logger.Printf("Simulation failed: %v", err)
		closeLog()
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
