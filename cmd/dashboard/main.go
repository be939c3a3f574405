// Package main runs the operator dashboard: the monitoring loop over the
// prediction log, the operator action API and the live WebSocket view.
//
// Usage:
//
//	dashboard --log-path prediction_log.csv --addr :8501
//	dashboard --log-backend postgres --incident-backend postgres --postgres-dsn ... --amqp-url amqp://...
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
	amqp "github.com/rabbitmq/amqp091-go"

	"pipeline-guard/internal/alert"
	"pipeline-guard/internal/dashboard"
	"pipeline-guard/internal/monitor"
	"pipeline-guard/internal/storage/backend"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("DASHBOARD_ADDR", ":8501"), "HTTP listen address")
	pollInterval := flag.Duration("poll-interval", monitor.DefaultInterval, "Prediction log polling interval")
	logBackend := flag.String("log-backend", envOr("LOG_BACKEND", backend.CSV), "Prediction log backend: csv, postgres, clickhouse, redis")
	logPath := flag.String("log-path", envOr("LOG_PATH", "prediction_log.csv"), "CSV prediction log path")
	incidentBackend := flag.String("incident-backend", envOr("INCIDENT_BACKEND", backend.Memory), "Incident store: memory, postgres")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Redis address")
	redisPassword := flag.String("redis-password", os.Getenv("REDIS_PASSWORD"), "Redis password")
	redisKey := flag.String("redis-key", os.Getenv("REDIS_KEY"), "Redis list key")
	amqpURL := flag.String("amqp-url", os.Getenv("AMQP_URL"), "RabbitMQ URL for mitigation commands (log only when empty)")
	amqpExchange := flag.String("amqp-exchange", envOr("AMQP_EXCHANGE", alert.DefaultExchange), "Exchange for mitigation commands")
	migrate := flag.Bool("migrate", false, "Apply embedded schema migrations on startup")
	flag.Parse()

	logger := log.New(os.Stdout, "[dashboard] ", log.LstdFlags|log.Lshortfile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	incidents, closeIncidents, err := backend.OpenIncidentStore(ctx, backend.Config{
		Backend:     *incidentBackend,
		PostgresDSN: *postgresDSN,
		Migrate:     *migrate,
	})
	if err != nil {
		logger.Fatalf("Failed to open incident store: %v", err)
	}
	defer closeIncidents()

	var actuator alert.Actuator = alert.NewLogActuator(logger)
	if *amqpURL != "" {
		conn, err := amqp.Dial(*amqpURL)
		if err != nil {
			logger.Fatalf("Failed to connect to rabbitmq: %v", err)
		}
		defer conn.Close()

		amqpActuator, err := alert.NewAMQPActuator(conn, *amqpExchange, logger)
		if err != nil {
			logger.Fatalf("Failed to set up mitigation exchange: %v", err)
		}
		actuator = amqpActuator
		logger.Printf("Mitigation commands published to exchange %s", *amqpExchange)
	}

	machine := alert.NewMachine(alert.Options{
		Actuator:  actuator,
		Incidents: incidents,
		Logger:    logger,
	})

	hub := dashboard.NewHub(logger)
	loop := monitor.NewLoop(monitor.Options{
		Log:       sampleLog,
		Machine:   machine,
		Publisher: hub,
		Interval:  *pollInterval,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr: *addr,
		Handler: dashboard.NewServer(dashboard.ServerOptions{
			Loop:      loop,
			Incidents: incidents,
			Hub:       hub,
			Logger:    logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	}()

	go func() {
		logger.Printf("Starting HTTP server on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	err = loop.Run(ctx)

	hub.Close()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Printf("Shutdown error: %v", shutdownErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("Monitoring loop error: %v", err)
	}
	logger.Println("Shutdown complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
