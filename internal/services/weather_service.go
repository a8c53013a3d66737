package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"aland-weather/internal/models"
	"aland-weather/internal/repository"
	"aland-weather/pkg/logging"
	"aland-weather/pkg/metrics"
)

// ObservationQuery holds the raw query-string filters of an observation
// request before they are parsed into a repository filter
type ObservationQuery struct {
	Location          string `query:"location" validate:"omitempty,max=200"`
	Date              string `query:"date"`
	StartDate         string `query:"start_date"`
	EndDate           string `query:"end_date"`
	Season            string `query:"season" validate:"omitempty,oneof=Winter Spring Summer Autumn"`
	MinTemperature    string `query:"min_temperature" validate:"omitempty,numeric"`
	MaxTemperature    string `query:"max_temperature" validate:"omitempty,numeric"`
	PrecipitationType string `query:"precipitation_type" validate:"omitempty,oneof=None Light Moderate Heavy"`
	FogDensity        string `query:"fog_density" validate:"omitempty,oneof=Dense Moderate Light Clear"`
	CloudType         string `query:"cloud_type" validate:"omitempty,oneof='Clear' 'Partly Cloudy' 'Mostly Cloudy' 'Overcast'"`
	WindDirection     string `query:"wind_direction" validate:"omitempty,oneof=N NNE NE ENE E ESE SE SSE S SSW SW WSW W WNW NW NNW"`
	Limit             string `query:"limit" validate:"omitempty,number"`
}

// WeatherService handles weather data operations
type WeatherService struct {
	repo         repository.WeatherRepository
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
	validate     *validator.Validate
	defaultLimit int
	maxLimit     int
}

// NewWeatherService creates a new weather service. Reconstruction queries
// default to defaultLimit rows and never return more than maxLimit.
func NewWeatherService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, defaultLimit, maxLimit int) *WeatherService {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})

	return &WeatherService{
		repo:         repo,
		logger:       logger,
		metrics:      metricsCollector,
		validate:     validate,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// BuildFilter validates q and converts it into a repository filter.
// Malformed input yields a *models.ValidationError.
func (s *WeatherService) BuildFilter(q ObservationQuery) (repository.ObservationFilter, error) {
	filter := repository.ObservationFilter{Limit: s.defaultLimit}

	if err := s.validate.Struct(q); err != nil {
		return filter, toValidationError(err)
	}

	if q.Location != "" {
		filter.Location = &q.Location
	}

	if q.Date != "" {
		t, err := models.ParseDate("date", q.Date)
		if err != nil {
			return filter, err
		}
		filter.Date = &t
	}
	if q.StartDate != "" {
		t, err := models.ParseDate("start_date", q.StartDate)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &t
	}
	if q.EndDate != "" {
		t, err := models.ParseDate("end_date", q.EndDate)
		if err != nil {
			return filter, err
		}
		filter.EndDate = &t
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return filter, &models.ValidationError{
			Field:   "end_date",
			Value:   q.EndDate,
			Message: "end_date must not be before start_date",
		}
	}

	if q.Season != "" {
		season := models.Season(q.Season)
		filter.Season = &season
	}

	if q.MinTemperature != "" {
		v, _ := strconv.ParseFloat(q.MinTemperature, 64)
		filter.MinTemperature = &v
	}
	if q.MaxTemperature != "" {
		v, _ := strconv.ParseFloat(q.MaxTemperature, 64)
		filter.MaxTemperature = &v
	}

	if q.PrecipitationType != "" {
		filter.PrecipitationType = &q.PrecipitationType
	}
	if q.FogDensity != "" {
		filter.FogDensity = &q.FogDensity
	}
	if q.CloudType != "" {
		filter.CloudType = &q.CloudType
	}
	if q.WindDirection != "" {
		filter.WindDirection = &q.WindDirection
	}

	if q.Limit != "" {
		limit, err := strconv.Atoi(q.Limit)
		if err != nil || limit < 1 || limit > s.maxLimit {
			return filter, &models.ValidationError{
				Field:   "limit",
				Value:   q.Limit,
				Message: fmt.Sprintf("limit must be between 1 and %d", s.maxLimit),
			}
		}
		filter.Limit = limit
	}

	return filter, nil
}

// QueryObservations validates the query and returns the reconstructed rows
func (s *WeatherService) QueryObservations(ctx context.Context, q ObservationQuery) ([]*models.ObservationView, error) {
	filter, err := s.BuildFilter(q)
	if err != nil {
		return nil, err
	}

	return s.repo.QueryObservations(ctx, filter)
}

// GetLocations retrieves all locations
func (s *WeatherService) GetLocations(ctx context.Context) ([]*models.Location, error) {
	return s.repo.ListLocations(ctx)
}

// GetLocation retrieves a single location by name
func (s *WeatherService) GetLocation(ctx context.Context, name string) (*models.Location, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &models.ValidationError{
			Field:   "name",
			Value:   name,
			Message: "location name is required",
		}
	}
	return s.repo.GetLocationByName(ctx, name)
}

// GetDates retrieves all calendar dates
func (s *WeatherService) GetDates(ctx context.Context) ([]*models.DatePoint, error) {
	return s.repo.ListDates(ctx)
}

// HealthCheck reports whether the store is reachable
func (s *WeatherService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

// toValidationError reports the first failing field of a validator error
func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &models.ValidationError{Message: err.Error()}
	}

	fe := fieldErrs[0]
	value := fmt.Sprintf("%v", fe.Value())

	var message string
	switch fe.Tag() {
	case "oneof":
		message = fmt.Sprintf("invalid %s %q, expected one of: %s", fe.Field(), value, fe.Param())
	case "numeric", "number":
		message = fmt.Sprintf("invalid %s %q, expected a number", fe.Field(), value)
	case "max":
		message = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		message = fmt.Sprintf("invalid %s %q", fe.Field(), value)
	}

	return &models.ValidationError{
		Field:   fe.Field(),
		Value:   value,
		Message: message,
	}
}
