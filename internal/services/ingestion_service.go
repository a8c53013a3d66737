package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"aland-weather/internal/models"
	"aland-weather/internal/repository"
	"aland-weather/pkg/logging"
	"aland-weather/pkg/metrics"
)

// IngestionService loads raw observations into the normalized store
type IngestionService struct {
	repo             repository.WeatherRepository
	logger           *logging.StructuredLogger
	metrics          *metrics.Collector
	clock            clockwork.Clock
	progressEvery    int
	maxErrorMessages int
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	Source            string
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	Locations         int
	Aborted           bool
	Duration          time.Duration
	Errors            []string
}

// IngestionOptions tunes progress logging and error reporting
type IngestionOptions struct {
	ProgressEvery    int
	MaxErrorMessages int
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, clock clockwork.Clock, opts IngestionOptions) *IngestionService {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 500
	}
	if opts.MaxErrorMessages <= 0 {
		opts.MaxErrorMessages = 100
	}

	return &IngestionService{
		repo:             repo,
		logger:           logger,
		metrics:          metricsCollector,
		clock:            clock,
		progressEvery:    opts.ProgressEvery,
		maxErrorMessages: opts.MaxErrorMessages,
	}
}

// observationSource yields raw observations in order. Next returns io.EOF
// when exhausted; a *models.ValidationError marks a record that is skipped.
type observationSource interface {
	Next() (*models.RawObservation, error)
}

type sliceSource struct {
	records []*models.RawObservation
	pos     int
}

func (s *sliceSource) Next() (*models.RawObservation, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	if rec == nil {
		return nil, &models.ValidationError{Message: "empty record"}
	}
	return rec, nil
}

// IngestRecords saves an in-memory sequence of observations
func (s *IngestionService) IngestRecords(ctx context.Context, records []*models.RawObservation) (*IngestionResult, error) {
	return s.ingest(ctx, "records", &sliceSource{records: records})
}

// IngestFile saves every row of a CSV file
func (s *IngestionService) IngestFile(ctx context.Context, path string) (*IngestionResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return s.IngestReader(ctx, file, path)
}

// IngestReader saves every row of CSV data read from r. The header row may
// use English or Swedish column names.
func (s *IngestionService) IngestReader(ctx context.Context, r io.Reader, source string) (*IngestionResult, error) {
	src, err := NewObservationReader(r)
	if err != nil {
		s.metrics.RecordIngestionError("header_error")
		return nil, err
	}

	return s.ingest(ctx, source, src)
}

// ingest saves records one by one. Records that fail parsing or validation
// are counted and skipped; a storage failure or cancellation stops the run
// and is returned together with the partial result. Records saved before
// the failure stay committed.
func (s *IngestionService) ingest(ctx context.Context, source string, src observationSource) (*IngestionResult, error) {
	start := s.clock.Now()
	log := s.logger.WithFields(logging.Fields{"source": source})

	log.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"progress_every": s.progressEvery,
		"stage":          "INITIALIZATION",
	})

	result := &IngestionResult{
		Source: source,
		Errors: make([]string, 0),
	}
	locations := make(map[string]struct{})

	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("ingestion cancelled: %w", err)
			break
		}

		obs, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		result.TotalRecords++

		var vErr *models.ValidationError
		if err != nil && !errors.As(err, &vErr) {
			s.metrics.RecordIngestionError("read_error")
			runErr = fmt.Errorf("failed to read record %d: %w", result.TotalRecords, err)
			break
		}

		if err == nil {
			_, err = s.repo.SaveObservation(ctx, obs)
			if err != nil && !errors.As(err, &vErr) {
				s.metrics.RecordIngestionError("storage_error")
				runErr = fmt.Errorf("failed to save record %d: %w", result.TotalRecords, err)
				break
			}
		}

		if err != nil {
			result.FailedRecords++
			s.metrics.RecordIngestionError("validation_error")
			s.addError(result, fmt.Sprintf("record %d: %v", result.TotalRecords, err))
		} else {
			result.SuccessfulRecords++
			locations[strings.TrimSpace(obs.Location)] = struct{}{}
			s.metrics.IngestionRecordsTotal.Inc()
		}

		if result.TotalRecords%s.progressEvery == 0 {
			log.Info(ctx, "[INGEST_PROGRESS] Processing records", logging.Fields{
				"processed":          result.TotalRecords,
				"successful_records": result.SuccessfulRecords,
				"failed_records":     result.FailedRecords,
				"stage":              "PROCESSING",
			})
		}
	}

	result.Locations = len(locations)
	result.Duration = s.clock.Since(start)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	if runErr != nil {
		result.Aborted = true
		s.addError(result, runErr.Error())
		log.Error(ctx, "[INGEST_ABORTED] Data ingestion aborted", logging.Fields{
			"total_records":      result.TotalRecords,
			"successful_records": result.SuccessfulRecords,
			"failed_records":     result.FailedRecords,
			"stage":              "ABORTED",
		}, runErr)
		return result, runErr
	}

	fields := logging.Fields{
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"locations":          result.Locations,
		"duration_seconds":   result.Duration.Seconds(),
		"error_count":        len(result.Errors),
		"stage":              "COMPLETE",
	}
	if result.Duration > 0 {
		fields["records_per_second"] = float64(result.SuccessfulRecords) / result.Duration.Seconds()
	}
	log.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", fields)

	return result, nil
}

func (s *IngestionService) addError(result *IngestionResult, msg string) {
	if len(result.Errors) < s.maxErrorMessages {
		result.Errors = append(result.Errors, msg)
	}
}

// Canonical CSV fields
const (
	fieldLocation      = "location"
	fieldLatitude      = "latitude"
	fieldLongitude     = "longitude"
	fieldDate          = "date"
	fieldTemperature   = "temperature_c"
	fieldHumidity      = "humidity_percent"
	fieldWindSpeed     = "wind_speed_ms"
	fieldWindDirection = "wind_direction_degrees"
	fieldPrecipitation = "precipitation_mm"
	fieldPressure      = "pressure_hpa"
	fieldVisibility    = "visibility_km"
	fieldCloudiness    = "cloudiness_percent"
)

// headerAliases maps accepted header names onto canonical fields
var headerAliases = map[string]string{
	"location":               fieldLocation,
	"plats":                  fieldLocation,
	"latitude":               fieldLatitude,
	"latitud":                fieldLatitude,
	"longitude":              fieldLongitude,
	"longitud":               fieldLongitude,
	"date":                   fieldDate,
	"datum":                  fieldDate,
	"temperature_c":          fieldTemperature,
	"temperatur_c":           fieldTemperature,
	"humidity_percent":       fieldHumidity,
	"luftfuktighet_procent":  fieldHumidity,
	"wind_speed_ms":          fieldWindSpeed,
	"vindhastighet_ms":       fieldWindSpeed,
	"wind_direction_degrees": fieldWindDirection,
	"vindriktning_grader":    fieldWindDirection,
	"precipitation_mm":       fieldPrecipitation,
	"nederbord_mm":           fieldPrecipitation,
	"pressure_hpa":           fieldPressure,
	"lufttryck_hpa":          fieldPressure,
	"visibility_km":          fieldVisibility,
	"sikt_km":                fieldVisibility,
	"cloudiness_percent":     fieldCloudiness,
	"molnighet_procent":      fieldCloudiness,
}

var requiredFields = []string{fieldLocation, fieldLatitude, fieldLongitude, fieldDate}

// ObservationReader parses CSV rows into raw observations. Next returns
// io.EOF at the end of input and a *models.ValidationError for a row that
// cannot be parsed.
type ObservationReader struct {
	reader  *csv.Reader
	columns map[string]int
}

// NewObservationReader reads and maps the header row of r
func NewObservationReader(r io.Reader) (*ObservationReader, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if field, ok := headerAliases[name]; ok {
			columns[field] = i
		}
	}

	for _, field := range requiredFields {
		if _, ok := columns[field]; !ok {
			return nil, &models.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("CSV header is missing required column %q", field),
			}
		}
	}

	return &ObservationReader{reader: reader, columns: columns}, nil
}

func (c *ObservationReader) Next() (*models.RawObservation, error) {
	row, err := c.reader.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, &models.ValidationError{Message: parseErr.Error()}
		}
		return nil, err
	}

	return c.parseRow(row)
}

func (c *ObservationReader) cell(row []string, field string) string {
	i, ok := c.columns[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseRow converts one CSV row. Blank measurement cells mean the family was
// not observed.
func (c *ObservationReader) parseRow(row []string) (*models.RawObservation, error) {
	obs := &models.RawObservation{Location: c.cell(row, fieldLocation)}

	date := c.cell(row, fieldDate)
	if date == "" {
		return nil, &models.ValidationError{Field: fieldDate, Message: "date is required"}
	}
	t, err := models.ParseDate(fieldDate, date)
	if err != nil {
		return nil, err
	}
	obs.Date = t

	for _, coord := range []struct {
		field string
		dest  *float64
	}{
		{fieldLatitude, &obs.Latitude},
		{fieldLongitude, &obs.Longitude},
	} {
		v, err := c.float(row, coord.field)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, &models.ValidationError{Field: coord.field, Message: coord.field + " is required"}
		}
		*coord.dest = *v
	}

	for _, m := range []struct {
		field string
		dest  **float64
	}{
		{fieldTemperature, &obs.TemperatureC},
		{fieldWindSpeed, &obs.WindSpeedMs},
		{fieldWindDirection, &obs.WindDirectionDegrees},
		{fieldPrecipitation, &obs.PrecipitationMm},
		{fieldPressure, &obs.PressureHpa},
		{fieldVisibility, &obs.VisibilityKm},
	} {
		v, err := c.float(row, m.field)
		if err != nil {
			return nil, err
		}
		*m.dest = v
	}

	for _, m := range []struct {
		field string
		dest  **int
	}{
		{fieldHumidity, &obs.HumidityPercent},
		{fieldCloudiness, &obs.CloudinessPercent},
	} {
		v, err := c.float(row, m.field)
		if err != nil {
			return nil, err
		}
		if v != nil {
			if math.Abs(*v) > math.MaxInt32 {
				return nil, &models.ValidationError{
					Field:   m.field,
					Value:   c.cell(row, m.field),
					Message: fmt.Sprintf("%s is out of range", m.field),
				}
			}
			pct := int(math.Round(*v))
			*m.dest = &pct
		}
	}

	if err := obs.Validate(); err != nil {
		return nil, err
	}

	return obs, nil
}

func (c *ObservationReader) float(row []string, field string) (*float64, error) {
	raw := c.cell(row, field)
	if raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &models.ValidationError{
			Field:   field,
			Value:   raw,
			Message: fmt.Sprintf("invalid %s %q", field, raw),
		}
	}
	if math.IsNaN(v) {
		return nil, nil
	}
	if math.IsInf(v, 0) {
		return nil, &models.ValidationError{
			Field:   field,
			Value:   raw,
			Message: fmt.Sprintf("%s must be a finite number, got %q", field, raw),
		}
	}

	return &v, nil
}
