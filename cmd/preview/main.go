package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"aland-weather/internal/models"
	"aland-weather/internal/services"
	"aland-weather/pkg/logging"
)

// locationTally accumulates per-location figures for the summary table
type locationTally struct {
	rows      int
	tempSum   float64
	tempCount int
	precip    float64
	seasons   map[models.Season]int
}

// preview parses a CSV file and prints the derived attributes of its rows
// without touching a database
func main() {
	file := flag.String("file", "aland_weather_data.csv", "CSV file with daily observations")
	rows := flag.Int("rows", 5, "Number of derived rows to print")
	flag.Parse()

	logger := logging.NewStructuredLogger("weather-preview", "1.0.0", logging.InfoLevel)
	ctx := context.Background()

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal(ctx, "[PREVIEW_ERROR] Failed to open file", logging.Fields{"file": *file}, err)
	}
	defer f.Close()

	reader, err := services.NewObservationReader(f)
	if err != nil {
		logger.Fatal(ctx, "[PREVIEW_ERROR] Unusable CSV header", logging.Fields{"file": *file}, err)
	}

	printHeading("ÅLAND WEATHER - DERIVATION PREVIEW")

	total, valid, line := 0, 0, 1
	missing := make(map[string]int)
	tallies := make(map[string]*locationTally)

	for {
		line++
		obs, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		total++

		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			fmt.Printf("  [line %d] skipped: %s\n", line, vErr.Message)
			continue
		}
		if err != nil {
			logger.Fatal(ctx, "[PREVIEW_ERROR] Failed to read CSV", logging.Fields{"line": line}, err)
		}
		if err := obs.Validate(); err != nil {
			fmt.Printf("  [line %d] skipped: %v\n", line, err)
			continue
		}
		valid++

		m := obs.Derive()
		countMissing(missing, m)

		t, ok := tallies[obs.Location]
		if !ok {
			t = &locationTally{seasons: make(map[models.Season]int)}
			tallies[obs.Location] = t
		}
		t.rows++
		t.seasons[models.SeasonForMonth(obs.Date.Month())]++
		if m.Temperature != nil {
			t.tempSum += m.Temperature.TemperatureC
			t.tempCount++
		}
		if m.Precipitation != nil {
			t.precip += m.Precipitation.PrecipitationMm
		}

		if valid <= *rows {
			printDerived(obs, m)
		}
	}

	fmt.Println()
	printHeading("PROCESSING SUMMARY")
	fmt.Printf("Records read:      %d\n", total)
	fmt.Printf("Valid records:     %d\n", valid)
	if total > 0 {
		fmt.Printf("Success rate:      %.2f%%\n", float64(valid)/float64(total)*100)
	}
	for _, family := range []string{"temperature", "humidity", "wind", "precipitation", "pressure", "visibility", "cloudiness"} {
		fmt.Printf("Missing %-13s %d\n", family+":", missing[family])
	}
	fmt.Println()

	printHeading("LOCATIONS")
	names := make([]string, 0, len(tallies))
	for name := range tallies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := tallies[name]
		avg := "-"
		if t.tempCount > 0 {
			avg = fmt.Sprintf("%.2f°C", t.tempSum/float64(t.tempCount))
		}

		seasons := make([]string, 0, len(models.Seasons))
		for _, s := range models.Seasons {
			seasons = append(seasons, fmt.Sprintf("%s=%d", s, t.seasons[s]))
		}

		fmt.Printf("%-20s rows=%-5d avg=%-9s precip=%.1fmm  %s\n",
			name, t.rows, avg, t.precip, strings.Join(seasons, " "))
	}
}

func countMissing(missing map[string]int, m models.Measurements) {
	if m.Temperature == nil {
		missing["temperature"]++
	}
	if m.Humidity == nil {
		missing["humidity"]++
	}
	if m.Wind == nil {
		missing["wind"]++
	}
	if m.Precipitation == nil {
		missing["precipitation"]++
	}
	if m.Pressure == nil {
		missing["pressure"]++
	}
	if m.Visibility == nil {
		missing["visibility"]++
	}
	if m.Cloudiness == nil {
		missing["cloudiness"]++
	}
}

func printDerived(obs *models.RawObservation, m models.Measurements) {
	date := models.NewDatePoint(obs.Date)
	fmt.Printf("─────────────────────────────────────────────────────────────\n")
	fmt.Printf("%s  %s  (day %d, %s)\n", obs.Location, date.Date, date.DayOfYear, date.Season)

	if m.Temperature != nil {
		fmt.Printf("  temperature  %.1f°C / %.1f°F\n", m.Temperature.TemperatureC, m.Temperature.TemperatureF)
	}
	if m.Humidity != nil {
		fmt.Printf("  humidity     %d%%\n", m.Humidity.HumidityPercent)
	}
	if m.Wind != nil {
		fmt.Printf("  wind         %.1f m/s (%.1f km/h) from %s\n",
			m.Wind.WindSpeedMs, m.Wind.WindSpeedKmh, m.Wind.WindDirectionText)
	}
	if m.Precipitation != nil {
		fmt.Printf("  precip       %.1f mm (%.2f in) %s\n",
			m.Precipitation.PrecipitationMm, m.Precipitation.PrecipitationInches, m.Precipitation.PrecipitationType)
	}
	if m.Pressure != nil {
		fmt.Printf("  pressure     %.1f hPa (%.2f inHg)\n", m.Pressure.PressureHpa, m.Pressure.PressureInHg)
	}
	if m.Visibility != nil {
		fmt.Printf("  visibility   %.1f km (%.1f mi) %s\n",
			m.Visibility.VisibilityKm, m.Visibility.VisibilityMiles, m.Visibility.FogDensity)
	}
	if m.Cloudiness != nil {
		fmt.Printf("  cloudiness   %d%% %s\n", m.Cloudiness.CloudinessPercent, m.Cloudiness.CloudType)
	}
}

func printHeading(title string) {
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println(title)
	fmt.Println("════════════════════════════════════════════════════════════════")
}
