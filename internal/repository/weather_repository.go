package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"aland-weather/internal/models"
	"aland-weather/pkg/database"
	"aland-weather/pkg/logging"
	"aland-weather/pkg/metrics"
)

// DefaultObservationLimit caps reconstruction results when no limit is given
const DefaultObservationLimit = 1000

// WeatherRepository provides data access for the normalized weather store
type WeatherRepository interface {
	// Schema operations
	EnsureSchema(ctx context.Context) error

	// Dimension operations
	ResolveLocation(ctx context.Context, name string, latitude, longitude float64) (int64, error)
	ResolveDate(ctx context.Context, date time.Time) (int64, error)
	GetLocationByName(ctx context.Context, name string) (*models.Location, error)
	ListLocations(ctx context.Context) ([]*models.Location, error)
	ListDates(ctx context.Context) ([]*models.DatePoint, error)

	// Observation operations
	UpsertObservation(ctx context.Context, dateID, locationID int64, measurements models.Measurements) error
	SaveObservation(ctx context.Context, obs *models.RawObservation) (models.ObservationKey, error)
	QueryObservations(ctx context.Context, filter ObservationFilter) ([]*models.ObservationView, error)

	// Statistics operations
	GetTemperatureStats(ctx context.Context) (*models.TemperatureStats, error)
	GetSeasonalStats(ctx context.Context) ([]*models.SeasonalStats, error)
	GetLocationStats(ctx context.Context) ([]*models.LocationStats, error)
	GetTableCounts(ctx context.Context) ([]models.TableCount, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// ObservationFilter defines filters for the reconstruction join.
// All set fields are combined with AND.
type ObservationFilter struct {
	Location          *string
	Date              *time.Time
	StartDate         *time.Time
	EndDate           *time.Time
	Season            *models.Season
	MinTemperature    *float64
	MaxTemperature    *float64
	PrecipitationType *string
	FogDensity        *string
	CloudType         *string
	WindDirection     *string
	Limit             int
}

// querier is satisfied by both database.DB and database.Tx
type querier interface {
	ExecContext(ctx context.Context, queryType, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error
}

// weatherRepository implements WeatherRepository
type weatherRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWeatherRepository creates a new weather repository
func NewWeatherRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) WeatherRepository {
	return &weatherRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ResolveLocation returns the identity of the named location, creating it on
// first sight. Coordinates of an existing location are never overwritten.
func (r *weatherRepository) ResolveLocation(ctx context.Context, name string, latitude, longitude float64) (int64, error) {
	return resolveLocation(ctx, r.db, name, latitude, longitude)
}

func resolveLocation(ctx context.Context, q querier, name string, latitude, longitude float64) (int64, error) {
	_, err := q.ExecContext(ctx, "insert_location", `
		INSERT INTO locations (name, latitude, longitude)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO NOTHING
	`, name, latitude, longitude)
	if err != nil {
		return 0, fmt.Errorf("failed to create location: %w", err)
	}

	var id int64
	if err := q.GetContext(ctx, "get_location_id", &id, "SELECT id FROM locations WHERE name = ?", name); err != nil {
		return 0, fmt.Errorf("failed to resolve location: %w", err)
	}

	return id, nil
}

// ResolveDate returns the identity of the calendar date of t, creating it with
// its derived attributes on first sight
func (r *weatherRepository) ResolveDate(ctx context.Context, date time.Time) (int64, error) {
	return resolveDate(ctx, r.db, date)
}

func resolveDate(ctx context.Context, q querier, date time.Time) (int64, error) {
	dp := models.NewDatePoint(date)

	_, err := q.ExecContext(ctx, "insert_date", `
		INSERT INTO dates (date, year, month, day, day_of_year, season)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (date) DO NOTHING
	`, dp.Date, dp.Year, dp.Month, dp.Day, dp.DayOfYear, string(dp.Season))
	if err != nil {
		return 0, fmt.Errorf("failed to create date: %w", err)
	}

	var id int64
	if err := q.GetContext(ctx, "get_date_id", &id, "SELECT id FROM dates WHERE date = ?", dp.Date); err != nil {
		return 0, fmt.Errorf("failed to resolve date: %w", err)
	}

	return id, nil
}

// UpsertObservation replaces the stored observation for (dateID, locationID)
// in a single transaction
func (r *weatherRepository) UpsertObservation(ctx context.Context, dateID, locationID int64, measurements models.Measurements) error {
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		return upsertMeasurements(ctx, tx, dateID, locationID, measurements)
	})
	if err != nil {
		return err
	}

	r.logger.Debug(ctx, "[REPO_UPSERT_OBSERVATION] Observation upserted", logging.Fields{
		"date_id":     dateID,
		"location_id": locationID,
	})

	return nil
}

// upsertMeasurements writes every observed family with full-row replacement
// and removes rows for families the observation does not carry
func upsertMeasurements(ctx context.Context, q querier, dateID, locationID int64, m models.Measurements) error {
	for _, t := range measurementTables {
		values := t.values(m)

		if values == nil {
			query := fmt.Sprintf("DELETE FROM %s WHERE date_id = ? AND location_id = ?", t.name)
			if _, err := q.ExecContext(ctx, "delete_"+t.name, query, dateID, locationID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", t.name, err)
			}
			continue
		}

		args := append([]interface{}{dateID, locationID}, values...)
		if _, err := q.ExecContext(ctx, "upsert_"+t.name, upsertQuery(t), args...); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", t.name, err)
		}
	}

	return nil
}

func upsertQuery(t measurementTable) string {
	cols := t.columnNames()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+2), ", ")
	updates := make([]string, len(cols))
	for i, c := range cols {
		updates[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (date_id, location_id, %s) VALUES (%s) ON CONFLICT (date_id, location_id) DO UPDATE SET %s",
		t.name, strings.Join(cols, ", "), placeholders, strings.Join(updates, ", "),
	)
}

// SaveObservation resolves both dimensions and upserts the derived
// measurements of obs as one transaction
func (r *weatherRepository) SaveObservation(ctx context.Context, obs *models.RawObservation) (models.ObservationKey, error) {
	if err := obs.Validate(); err != nil {
		return models.ObservationKey{}, err
	}

	var key models.ObservationKey
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		locationID, err := resolveLocation(ctx, tx, strings.TrimSpace(obs.Location), obs.Latitude, obs.Longitude)
		if err != nil {
			return err
		}

		dateID, err := resolveDate(ctx, tx, obs.Date)
		if err != nil {
			return err
		}

		if err := upsertMeasurements(ctx, tx, dateID, locationID, obs.Derive()); err != nil {
			return err
		}

		key = models.ObservationKey{DateID: dateID, LocationID: locationID}
		return nil
	})
	if err != nil {
		return models.ObservationKey{}, err
	}

	r.logger.Debug(ctx, "[REPO_SAVE_OBSERVATION] Observation saved", logging.Fields{
		"location":    obs.Location,
		"date":        obs.Date.Format(models.DateLayout),
		"date_id":     key.DateID,
		"location_id": key.LocationID,
	})

	return key, nil
}

// GetLocationByName retrieves a location by its unique name
func (r *weatherRepository) GetLocationByName(ctx context.Context, name string) (*models.Location, error) {
	query := `
		SELECT id, name, latitude, longitude
		FROM locations
		WHERE name = ?
	`

	var location models.Location
	err := r.db.GetContext(ctx, "get_location", &location, query, name)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{
			Resource: "location",
			ID:       name,
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	return &location, nil
}

// ListLocations retrieves all locations ordered by name
func (r *weatherRepository) ListLocations(ctx context.Context) ([]*models.Location, error) {
	query := `
		SELECT id, name, latitude, longitude
		FROM locations
		ORDER BY name
	`

	locations := []*models.Location{}
	if err := r.db.SelectContext(ctx, "list_locations", &locations, query); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	return locations, nil
}

// ListDates retrieves all calendar dates ordered chronologically
func (r *weatherRepository) ListDates(ctx context.Context) ([]*models.DatePoint, error) {
	query := `
		SELECT id, date, year, month, day, day_of_year, season
		FROM dates
		ORDER BY date
	`

	dates := []*models.DatePoint{}
	if err := r.db.SelectContext(ctx, "list_dates", &dates, query); err != nil {
		return nil, fmt.Errorf("failed to list dates: %w", err)
	}

	return dates, nil
}

// observationKeysCTE is the set of (date_id, location_id) pairs that have at
// least one measurement row; it anchors every join so families never multiply
func observationKeysCTE() string {
	parts := make([]string, len(measurementTables))
	for i, t := range measurementTables {
		parts[i] = "SELECT date_id, location_id FROM " + t.name
	}
	return "WITH k AS (\n\t\t" + strings.Join(parts, "\n\t\tUNION ") + "\n\t)"
}

// observationJoins joins the dimensions and left-joins every family onto k
func observationJoins() string {
	var b strings.Builder
	b.WriteString("FROM k\n")
	b.WriteString("\tJOIN dates d ON d.id = k.date_id\n")
	b.WriteString("\tJOIN locations l ON l.id = k.location_id\n")
	for _, t := range measurementTables {
		fmt.Fprintf(&b, "\tLEFT JOIN %[1]s %[2]s ON %[2]s.date_id = k.date_id AND %[2]s.location_id = k.location_id\n", t.name, t.alias)
	}
	return b.String()
}

func observationColumns() string {
	cols := []string{
		"d.date AS date",
		"d.season AS season",
		"l.name AS location_name",
		"l.latitude AS latitude",
		"l.longitude AS longitude",
	}
	for _, t := range measurementTables {
		for _, c := range t.columnNames() {
			cols = append(cols, t.alias+"."+c+" AS "+c)
		}
	}
	return strings.Join(cols, ",\n\t\t")
}

// QueryObservations reconstructs one denormalized row per (date, location)
// pair. Families missing for a pair come back as nil fields.
func (r *weatherRepository) QueryObservations(ctx context.Context, filter ObservationFilter) ([]*models.ObservationView, error) {
	where, args := filter.conditions()

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultObservationLimit
	}
	args = append(args, limit)

	query := observationKeysCTE() + "\n\tSELECT\n\t\t" + observationColumns() + "\n\t" +
		observationJoins() +
		"\tWHERE 1=1" + where + "\n" +
		"\tORDER BY d.date DESC, l.name ASC\n" +
		"\tLIMIT ?"

	observations := []*models.ObservationView{}
	if err := r.db.SelectContext(ctx, "query_observations", &observations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}

	r.metrics.ObservationRows.Observe(float64(len(observations)))

	return observations, nil
}

func (f ObservationFilter) conditions() (string, []interface{}) {
	var b strings.Builder
	args := []interface{}{}

	add := func(cond string, arg interface{}) {
		b.WriteString(" AND " + cond)
		args = append(args, arg)
	}

	if f.Location != nil {
		add("l.name = ?", *f.Location)
	}
	if f.Date != nil {
		add("d.date = ?", f.Date.Format(models.DateLayout))
	}
	if f.StartDate != nil {
		add("d.date >= ?", f.StartDate.Format(models.DateLayout))
	}
	if f.EndDate != nil {
		add("d.date <= ?", f.EndDate.Format(models.DateLayout))
	}
	if f.Season != nil {
		add("d.season = ?", string(*f.Season))
	}
	if f.MinTemperature != nil {
		add("t.temperature_c >= ?", *f.MinTemperature)
	}
	if f.MaxTemperature != nil {
		add("t.temperature_c <= ?", *f.MaxTemperature)
	}
	if f.PrecipitationType != nil {
		add("p.precipitation_type = ?", *f.PrecipitationType)
	}
	if f.FogDensity != nil {
		add("v.fog_density = ?", *f.FogDensity)
	}
	if f.CloudType != nil {
		add("c.cloud_type = ?", *f.CloudType)
	}
	if f.WindDirection != nil {
		add("w.wind_direction_text = ?", *f.WindDirection)
	}

	return b.String(), args
}

// GetTemperatureStats computes global min/max/avg over all temperature rows
func (r *weatherRepository) GetTemperatureStats(ctx context.Context) (*models.TemperatureStats, error) {
	query := `
		SELECT
			COUNT(temperature_c) AS count,
			MIN(temperature_c) AS min_temp,
			MAX(temperature_c) AS max_temp,
			AVG(temperature_c) AS avg_temp
		FROM temperatures
	`

	var stats models.TemperatureStats
	if err := r.db.GetContext(ctx, "temperature_stats", &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get temperature statistics: %w", err)
	}

	return &stats, nil
}

const groupedAggregates = `COUNT(*) AS observation_count,
		AVG(t.temperature_c) AS avg_temp,
		AVG(h.humidity_percent) AS avg_humidity,
		AVG(w.wind_speed_ms) AS avg_wind,
		SUM(p.precipitation_mm) AS total_precip`

// GetSeasonalStats aggregates observations per season, ordered by season name
func (r *weatherRepository) GetSeasonalStats(ctx context.Context) ([]*models.SeasonalStats, error) {
	query := observationKeysCTE() + `
	SELECT
		d.season AS season,
		` + groupedAggregates + `
	` + observationJoins() + `
	GROUP BY d.season
	ORDER BY d.season
	`

	stats := []*models.SeasonalStats{}
	if err := r.db.SelectContext(ctx, "seasonal_stats", &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get seasonal statistics: %w", err)
	}

	return stats, nil
}

// GetLocationStats aggregates observations per location, ordered by name
func (r *weatherRepository) GetLocationStats(ctx context.Context) ([]*models.LocationStats, error) {
	query := observationKeysCTE() + `
	SELECT
		l.name AS name,
		` + groupedAggregates + `
	` + observationJoins() + `
	GROUP BY l.name
	ORDER BY l.name
	`

	stats := []*models.LocationStats{}
	if err := r.db.SelectContext(ctx, "location_stats", &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get location statistics: %w", err)
	}

	return stats, nil
}

// GetTableCounts returns the row count of every table in the schema
func (r *weatherRepository) GetTableCounts(ctx context.Context) ([]models.TableCount, error) {
	tables := append([]string{}, dimensionTables...)
	for _, t := range measurementTables {
		tables = append(tables, t.name)
	}

	counts := make([]models.TableCount, 0, len(tables))
	for _, table := range tables {
		var rows int64
		if err := r.db.GetContext(ctx, "count_"+table, &rows, "SELECT COUNT(*) FROM "+table); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts = append(counts, models.TableCount{Table: table, Rows: rows})
	}

	return counts, nil
}

// HealthCheck performs a health check on the repository
func (r *weatherRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
