package repository

import (
	"context"
	"fmt"
	"strings"

	"aland-weather/internal/models"
	"aland-weather/pkg/database"
	"aland-weather/pkg/logging"
)

type column struct {
	name    string
	sqlType string
}

// measurementTable describes one per-family table keyed by (date_id, location_id)
type measurementTable struct {
	name    string
	alias   string
	columns []column
	values  func(m models.Measurements) []interface{}
}

func (t measurementTable) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// measurementTables lists the seven families in reconstruction order. values
// returns nil when the family was not observed.
var measurementTables = []measurementTable{
	{
		name:  "temperatures",
		alias: "t",
		columns: []column{
			{"temperature_c", "DOUBLE PRECISION NOT NULL"},
			{"temperature_f", "DOUBLE PRECISION NOT NULL"},
		},
		values: func(m models.Measurements) []interface{} {
			if m.Temperature == nil {
				return nil
			}
			return []interface{}{m.Temperature.TemperatureC, m.Temperature.TemperatureF}
		},
	},
	{
		name:  "humidity",
		alias: "h",
		columns: []column{
			{"humidity_percent", "INTEGER NOT NULL"},
		},
		values: func(m models.Measurements) []interface{} {
			if m.Humidity == nil {
				return nil
			}
			return []interface{}{m.Humidity.HumidityPercent}
		},
	},
	{
		name:  "wind",
		alias: "w",
		columns: []column{
			{"wind_speed_ms", "DOUBLE PRECISION NOT NULL"},
			{"wind_speed_kmh", "DOUBLE PRECISION NOT NULL"},
			{"wind_direction_degrees", "DOUBLE PRECISION NOT NULL"},
			{"wind_direction_text", "TEXT"},
		},
		values: func(m models.Measurements) []interface{} {
			if m.Wind == nil {
				return nil
			}
			return []interface{}{m.Wind.WindSpeedMs, m.Wind.WindSpeedKmh, m.Wind.WindDirectionDegrees, m.Wind.WindDirectionText}
		},
	},
	{
		name:  "precipitation",
		alias: "p",
		columns: []column{
			{"precipitation_mm", "DOUBLE PRECISION NOT NULL"},
			{"precipitation_inches", "DOUBLE PRECISION NOT NULL"},
			{"precipitation_type", "TEXT"},
		},
		values: func(m models.Measurements) []interface{} {
			if m.Precipitation == nil {
				return nil
			}
			return []interface{}{m.Precipitation.PrecipitationMm, m.Precipitation.PrecipitationInches, m.Precipitation.PrecipitationType}
		},
	},
	{
		name:  "pressure",
		alias: "ps",
		columns: []column{
			{"pressure_hpa", "DOUBLE PRECISION NOT NULL"},
			{"pressure_inhg", "DOUBLE PRECISION NOT NULL"},
		},
		values: func(m models.Measurements) []interface{} {
			if m.Pressure == nil {
				return nil
			}
			return []interface{}{m.Pressure.PressureHpa, m.Pressure.PressureInHg}
		},
	},
	{
		name:  "visibility",
		alias: "v",
		columns: []column{
			{"visibility_km", "DOUBLE PRECISION NOT NULL"},
			{"visibility_miles", "DOUBLE PRECISION NOT NULL"},
			{"fog_density", "TEXT"},
		},
		values: func(m models.Measurements) []interface{} {
			if m.Visibility == nil {
				return nil
			}
			return []interface{}{m.Visibility.VisibilityKm, m.Visibility.VisibilityMiles, m.Visibility.FogDensity}
		},
	},
	{
		name:  "cloudiness",
		alias: "c",
		columns: []column{
			{"cloudiness_percent", "INTEGER NOT NULL"},
			{"cloud_type", "TEXT"},
		},
		values: func(m models.Measurements) []interface{} {
			if m.Cloudiness == nil {
				return nil
			}
			return []interface{}{m.Cloudiness.CloudinessPercent, m.Cloudiness.CloudType}
		},
	},
}

// dimensionTables are created before the measurement tables that reference them
var dimensionTables = []string{"locations", "dates"}

func identityColumn(dialect database.Dialect) string {
	if dialect == database.Postgres {
		return "id SERIAL PRIMARY KEY"
	}
	return "id INTEGER PRIMARY KEY AUTOINCREMENT"
}

// schemaStatements renders the DDL for every table and index in creation order
func schemaStatements(dialect database.Dialect) []string {
	id := identityColumn(dialect)

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS locations (
			` + id + `,
			name TEXT NOT NULL UNIQUE,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS dates (
			` + id + `,
			date TEXT NOT NULL UNIQUE,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			day INTEGER NOT NULL,
			day_of_year INTEGER NOT NULL,
			season TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, t := range measurementTables {
		var b strings.Builder
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n\t\t\t%s,\n", t.name, id)
		b.WriteString("\t\t\tdate_id INTEGER NOT NULL REFERENCES dates (id),\n")
		b.WriteString("\t\t\tlocation_id INTEGER NOT NULL REFERENCES locations (id),\n")
		for _, c := range t.columns {
			fmt.Fprintf(&b, "\t\t\t%s %s,\n", c.name, c.sqlType)
		}
		b.WriteString("\t\t\tcreated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,\n")
		b.WriteString("\t\t\tUNIQUE (date_id, location_id)\n\t\t)")
		stmts = append(stmts, b.String())
	}

	stmts = append(stmts,
		"CREATE INDEX IF NOT EXISTS idx_dates_year ON dates (year)",
		"CREATE INDEX IF NOT EXISTS idx_dates_season ON dates (season)",
	)
	for _, t := range measurementTables {
		// the UNIQUE constraint already indexes (date_id, location_id)
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_location ON %s (location_id)", t.name, t.name,
		))
	}

	return stmts
}

// EnsureSchema creates all tables and indexes that do not exist yet.
// Existing tables and their data are left untouched.
func (r *weatherRepository) EnsureSchema(ctx context.Context) error {
	stmts := schemaStatements(r.db.Dialect())

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, "ensure_schema", stmt); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info(ctx, "[REPO_SCHEMA] Normalized schema ensured", logging.Fields{
		"dialect":    string(r.db.Dialect()),
		"tables":     len(dimensionTables) + len(measurementTables),
		"statements": len(stmts),
	})

	return nil
}
