package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/agromind/agromind-backend/internal/services/simulator"
)

// parseZoneIDs parses a comma-separated id list ("1,2,7").
func parseZoneIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, &strconv.NumError{Func: "ParseInt", Num: part, Err: strconv.ErrSyntax}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api-url", env("API_URL", "http://localhost:8080"), "backend base URL")
	zonesRaw := flag.String("zones", env("SIM_ZONE_IDS", "1"), "comma-separated zone ids to simulate")
	interval := flag.Duration("interval", 0, "tick interval (default 2s)")
	flag.Parse()

	if *interval == 0 {
		if raw := os.Getenv("SIM_INTERVAL"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				log.Fatalf("simulator: invalid SIM_INTERVAL %q: %v", raw, err)
			}
			*interval = d
		}
	}

	ids, err := parseZoneIDs(*zonesRaw)
	if err != nil {
		log.Fatalf("simulator: invalid zone list %q: %v", *zonesRaw, err)
	}
	if len(ids) == 0 {
		log.Fatal("simulator: no zones to simulate")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sup := simulator.NewSupervisor(simulator.NewClient(*apiURL), *interval)
	for _, id := range ids {
		if err := sup.StartZone(ctx, id); err != nil {
			log.Printf("simulator: zone %d not started: %v", id, err)
		}
	}

	<-ctx.Done()
	sup.StopAll()
	log.Println("simulator: stopped")
}
