package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/agromind/agromind-backend/internal/history"
	"github.com/agromind/agromind-backend/internal/recorder"
	"github.com/agromind/agromind-backend/internal/services/api"
	"github.com/agromind/agromind-backend/internal/store"
	"github.com/agromind/agromind-backend/pkg/metrics"
	"github.com/agromind/agromind-backend/pkg/rabbitmq"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- PostgreSQL ---
	pool, err := store.NewPool(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("api: database connect failed: %v", err)
	}
	defer pool.Close()
	if err := store.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("api: schema setup failed: %v", err)
	}
	zones := store.NewZonesRepo(pool)
	events := store.NewEventsRepo(pool)

	// --- broker fan-out (opzionale) ---
	var publisher rabbitmq.IPublisher
	topicTmpl := env("EVENT_TOPIC_TMPL", "event/zone/{zone}")
	if host := os.Getenv("BROKER_HOST"); host != "" {
		mqCfg := &rabbitmq.RabbitMQConfig{
			Host:     host,
			Port:     envInt("BROKER_PORT", 1883),
			User:     env("BROKER_USER", "guest"),
			Password: env("BROKER_PASSWORD", "guest"),
			ClientID: env("BROKER_CLIENT_ID", "agromind-api"),
		}
		client, err := rabbitmq.NewRabbitMQConn(mqCfg, ctx)
		if err != nil {
			log.Fatalf("api: broker connect failed: %v", err)
		}
		publisher = rabbitmq.NewPublisher(client, topicTmpl)
	}
	rec := recorder.New(events, publisher)

	// --- InfluxDB mirror (opzionale, nil = no-op) ---
	hist := history.NewWriter(history.Config{
		URL:         env("INFLUX_URL", ""),
		Token:       env("INFLUX_TOKEN", ""),
		Org:         env("INFLUX_ORG", ""),
		Bucket:      env("INFLUX_BUCKET", ""),
		Measurement: env("INFLUX_MEASUREMENT", "zone_sensors"),
	})
	if hist == nil {
		log.Println("api: history mirror disabled (incomplete INFLUX_* config)")
	}

	metrics.Register()

	// --- retention: cancella gli eventi più vecchi di N giorni ---
	retentionDays := envInt("EVENT_RETENTION_DAYS", 90)
	c := cron.New()
	if retentionDays > 0 {
		_, err := c.AddFunc("13 3 * * *", func() {
			cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
			deleted, err := events.DeleteEventsBefore(context.Background(), nil, cutoff)
			if err != nil {
				log.Printf("api: event retention failed: %v", err)
				return
			}
			if deleted > 0 {
				log.Printf("api: event retention removed %d rows older than %d days", deleted, retentionDays)
			}
		})
		if err != nil {
			log.Fatalf("api: retention schedule failed: %v", err)
		}
		c.Start()
		defer c.Stop()
	}

	handlers := api.NewHandlers(zones, events, rec, hist)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", envInt("PORT", 8080)),
		Handler:      api.NewRouter(handlers),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("api: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api: server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("api: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("api: shutdown: %v", err)
	}
}
