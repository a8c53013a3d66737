package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"aland-weather/internal/config"
	"aland-weather/internal/repository"
	"aland-weather/internal/services"
	"aland-weather/pkg/database"
	"aland-weather/pkg/logging"
	"aland-weather/pkg/metrics"
)

const version = "1.0.0"

func main() {
	file := flag.String("file", "aland_weather_data.csv", "CSV file with daily observations")
	showStats := flag.Bool("show-stats", false, "Print aggregate statistics after ingestion")
	verbose := flag.Bool("verbose", false, "Log every saved record and query at debug level")
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

	logger := logging.NewStructuredLogger("weather-ingester", version, logging.ParseLevel(cfg.Logging.Level))
	if *verbose {
		logger.SetLevel(logging.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[INGESTER_START] Starting weather data ingestion", logging.Fields{
		"version":    version,
		"file":       *file,
		"db_driver":  cfg.Database.Driver,
		"show_stats": *showStats,
	})

	metricsCollector := metrics.NewCollector("aland_weather_ingester", prometheus.NewRegistry())

	db, err := database.Open(cfg.Database.ToDatabaseConfig(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	weatherRepo := repository.NewWeatherRepository(db, logger, metricsCollector)
	if err := weatherRepo.EnsureSchema(ctx); err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to create schema", logging.Fields{}, err)
	}

	ingestionService := services.NewIngestionService(weatherRepo, logger, metricsCollector, clockwork.NewRealClock(),
		services.IngestionOptions{
			ProgressEvery:    cfg.Ingestion.ProgressEvery,
			MaxErrorMessages: cfg.Ingestion.MaxErrorMessages,
		})
	statsService := services.NewStatisticsService(weatherRepo, logger, metricsCollector)

	result, ingestErr := ingestionService.IngestFile(ctx, *file)
	if result != nil {
		printResult(result)
	}
	if ingestErr != nil {
		logger.Error(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{"file": *file}, ingestErr)
		db.Close()
		os.Exit(1)
	}

	if *showStats {
		summary, err := statsService.GetSummary(ctx)
		if err != nil {
			logger.Error(ctx, "[STATS_ERROR] Statistics calculation failed", logging.Fields{}, err)
			db.Close()
			os.Exit(1)
		}
		printSummary(summary)
	} else {
		counts, err := statsService.GetTableCounts(ctx)
		if err != nil {
			logger.Error(ctx, "[STATS_ERROR] Failed to count table rows", logging.Fields{}, err)
			db.Close()
			os.Exit(1)
		}
		printHeading("TABLE ROW COUNTS")
		for _, c := range counts {
			fmt.Printf("%-16s %d\n", c.Table, c.Rows)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed successfully", logging.Fields{
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
	})
}

func printHeading(title string) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", 80))
}

func printResult(result *services.IngestionResult) {
	if result.Aborted {
		printHeading("INGESTION ABORTED")
	} else {
		printHeading("INGESTION COMPLETE")
	}
	fmt.Printf("Source:             %s\n", result.Source)
	fmt.Printf("Total Records:      %d\n", result.TotalRecords)
	fmt.Printf("Successful Records: %d\n", result.SuccessfulRecords)
	fmt.Printf("Failed Records:     %d\n", result.FailedRecords)
	fmt.Printf("Locations:          %d\n", result.Locations)
	fmt.Printf("Duration:           %v\n", result.Duration)
	if secs := result.Duration.Seconds(); secs > 0 {
		fmt.Printf("Records/Second:     %.2f\n", float64(result.SuccessfulRecords)/secs)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i == 10 {
				fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
				break
			}
			fmt.Printf("  - %s\n", errMsg)
		}
	}
	fmt.Println()
}

func printSummary(summary *services.Summary) {
	printHeading("TEMPERATURE")
	fmt.Printf("Observations: %d\n", summary.Temperature.Count)
	fmt.Printf("Min / Max:    %s / %s °C\n", formatFloat(summary.Temperature.MinTemp), formatFloat(summary.Temperature.MaxTemp))
	fmt.Printf("Mean:         %s °C\n\n", formatFloat(summary.Temperature.AvgTemp))

	printHeading("SEASONS")
	fmt.Printf("%-8s %8s %10s %10s %10s %12s\n", "Season", "Count", "Avg °C", "Avg RH%", "Avg m/s", "Precip mm")
	for _, s := range summary.Seasonal {
		fmt.Printf("%-8s %8d %10s %10s %10s %12s\n", s.Season, s.ObservationCount,
			formatFloat(s.AvgTemp), formatFloat(s.AvgHumidity), formatFloat(s.AvgWind), formatFloat(s.TotalPrecip))
	}
	fmt.Println()

	printHeading("LOCATIONS")
	fmt.Printf("%-20s %8s %10s %10s %10s %12s\n", "Location", "Count", "Avg °C", "Avg RH%", "Avg m/s", "Precip mm")
	for _, l := range summary.Locations {
		fmt.Printf("%-20s %8d %10s %10s %10s %12s\n", l.Name, l.ObservationCount,
			formatFloat(l.AvgTemp), formatFloat(l.AvgHumidity), formatFloat(l.AvgWind), formatFloat(l.TotalPrecip))
	}
	fmt.Println()

	printHeading("TABLE ROW COUNTS")
	for _, c := range summary.Tables {
		fmt.Printf("%-16s %d\n", c.Table, c.Rows)
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}
