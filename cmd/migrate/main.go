package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"aland-weather/internal/config"
	"aland-weather/internal/repository"
	"aland-weather/pkg/database"
	"aland-weather/pkg/logging"
	"aland-weather/pkg/metrics"
)

func main() {
	counts := flag.Bool("counts", false, "Print the row count of every table after migrating")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("weather-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	metricsCollector := metrics.NewCollector("aland_weather_migrate", prometheus.NewRegistry())
	ctx := context.Background()

	db, err := database.Open(cfg.Database.ToDatabaseConfig(), logger, metricsCollector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := repository.NewWeatherRepository(db, logger, metricsCollector)
	if err := repo.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create schema: %v\n", err)
		db.Close()
		os.Exit(1)
	}

	fmt.Printf("Schema is up to date (%s)\n", db.Dialect())

	if *counts {
		tables, err := repo.GetTableCounts(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to count rows: %v\n", err)
			db.Close()
			os.Exit(1)
		}
		for _, t := range tables {
			fmt.Printf("%-16s %d\n", t.Table, t.Rows)
		}
	}
}
