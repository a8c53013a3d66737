package models

import (
	"math"
	"strings"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used in storage and the API
const DateLayout = "2006-01-02"

// Location is a named place observations are recorded for.
// Immutable once created; identity is resolved by name.
type Location struct {
	ID        int64   `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// DatePoint is a calendar date with its derived attributes.
// Immutable once created; identity is resolved by date value.
type DatePoint struct {
	ID        int64  `json:"id" db:"id"`
	Date      string `json:"date" db:"date"`
	Year      int    `json:"year" db:"year"`
	Month     int    `json:"month" db:"month"`
	Day       int    `json:"day" db:"day"`
	DayOfYear int    `json:"day_of_year" db:"day_of_year"`
	Season    Season `json:"season" db:"season"`
}

// Temperature is the temperature family of an observation
type Temperature struct {
	TemperatureC float64 `json:"temperature_c" db:"temperature_c"`
	TemperatureF float64 `json:"temperature_f" db:"temperature_f"`
}

// Humidity is the relative humidity family of an observation
type Humidity struct {
	HumidityPercent int `json:"humidity_percent" db:"humidity_percent"`
}

// Wind is the wind family of an observation
type Wind struct {
	WindSpeedMs          float64 `json:"wind_speed_ms" db:"wind_speed_ms"`
	WindSpeedKmh         float64 `json:"wind_speed_kmh" db:"wind_speed_kmh"`
	WindDirectionDegrees float64 `json:"wind_direction_degrees" db:"wind_direction_degrees"`
	WindDirectionText    string  `json:"wind_direction_text" db:"wind_direction_text"`
}

// Precipitation is the precipitation family of an observation
type Precipitation struct {
	PrecipitationMm     float64 `json:"precipitation_mm" db:"precipitation_mm"`
	PrecipitationInches float64 `json:"precipitation_inches" db:"precipitation_inches"`
	PrecipitationType   string  `json:"precipitation_type" db:"precipitation_type"`
}

// Pressure is the air pressure family of an observation
type Pressure struct {
	PressureHpa  float64 `json:"pressure_hpa" db:"pressure_hpa"`
	PressureInHg float64 `json:"pressure_inhg" db:"pressure_inhg"`
}

// Visibility is the visibility family of an observation
type Visibility struct {
	VisibilityKm    float64 `json:"visibility_km" db:"visibility_km"`
	VisibilityMiles float64 `json:"visibility_miles" db:"visibility_miles"`
	FogDensity      string  `json:"fog_density" db:"fog_density"`
}

// Cloudiness is the cloud cover family of an observation
type Cloudiness struct {
	CloudinessPercent int    `json:"cloudiness_percent" db:"cloudiness_percent"`
	CloudType         string `json:"cloud_type" db:"cloud_type"`
}

// Measurements holds the derived rows of one observation, one per family.
// A nil family was not observed.
type Measurements struct {
	Temperature   *Temperature
	Humidity      *Humidity
	Wind          *Wind
	Precipitation *Precipitation
	Pressure      *Pressure
	Visibility    *Visibility
	Cloudiness    *Cloudiness
}

// RawObservation is one measurement tuple for a date and location as handed
// to ingestion. Nil measurement fields mean the value was not reported.
type RawObservation struct {
	Location             string    `json:"location"`
	Latitude             float64   `json:"latitude"`
	Longitude            float64   `json:"longitude"`
	Date                 time.Time `json:"date"`
	TemperatureC         *float64  `json:"temperature_c,omitempty"`
	HumidityPercent      *int      `json:"humidity_percent,omitempty"`
	WindSpeedMs          *float64  `json:"wind_speed_ms,omitempty"`
	WindDirectionDegrees *float64  `json:"wind_direction_degrees,omitempty"`
	PrecipitationMm      *float64  `json:"precipitation_mm,omitempty"`
	PressureHpa          *float64  `json:"pressure_hpa,omitempty"`
	VisibilityKm         *float64  `json:"visibility_km,omitempty"`
	CloudinessPercent    *int      `json:"cloudiness_percent,omitempty"`
}

// Validate checks the fields the store needs to key an observation.
// Measurements must be finite; their ranges are not checked.
func (o *RawObservation) Validate() error {
	if strings.TrimSpace(o.Location) == "" {
		return &ValidationError{
			Field:   "location",
			Value:   o.Location,
			Message: "location name is required",
		}
	}

	if o.Date.IsZero() {
		return &ValidationError{
			Field:   "date",
			Message: "observation date is required",
		}
	}

	for _, f := range []struct {
		field string
		value *float64
	}{
		{"latitude", &o.Latitude},
		{"longitude", &o.Longitude},
		{"temperature_c", o.TemperatureC},
		{"wind_speed_ms", o.WindSpeedMs},
		{"wind_direction_degrees", o.WindDirectionDegrees},
		{"precipitation_mm", o.PrecipitationMm},
		{"pressure_hpa", o.PressureHpa},
		{"visibility_km", o.VisibilityKm},
	} {
		if f.value != nil && (math.IsNaN(*f.value) || math.IsInf(*f.value, 0)) {
			return &ValidationError{
				Field:   f.field,
				Message: f.field + " must be a finite number",
			}
		}
	}

	// wind is stored as one row, so speed and direction come as a pair
	if (o.WindSpeedMs == nil) != (o.WindDirectionDegrees == nil) {
		field := "wind_direction_degrees"
		if o.WindSpeedMs == nil {
			field = "wind_speed_ms"
		}
		return &ValidationError{
			Field:   field,
			Message: "wind speed and wind direction must be given together",
		}
	}

	return nil
}

// ParseDate parses an ISO 8601 date, also accepting a full RFC 3339 timestamp
// whose date part is used
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, &ValidationError{
		Field:   field,
		Value:   value,
		Message: "invalid " + field + " format, expected YYYY-MM-DD",
	}
}

// ObservationKey identifies a stored observation
type ObservationKey struct {
	DateID     int64 `json:"date_id"`
	LocationID int64 `json:"location_id"`
}

// ObservationView is one (date, location) row of the reconstruction join.
// Measurement fields are nil when that family has no row for the pair.
type ObservationView struct {
	Date         string  `json:"date" db:"date"`
	Season       Season  `json:"season" db:"season"`
	LocationName string  `json:"location_name" db:"location_name"`
	Latitude     float64 `json:"latitude" db:"latitude"`
	Longitude    float64 `json:"longitude" db:"longitude"`

	TemperatureC *float64 `json:"temperature_c" db:"temperature_c"`
	TemperatureF *float64 `json:"temperature_f" db:"temperature_f"`

	HumidityPercent *int `json:"humidity_percent" db:"humidity_percent"`

	WindSpeedMs          *float64 `json:"wind_speed_ms" db:"wind_speed_ms"`
	WindSpeedKmh         *float64 `json:"wind_speed_kmh" db:"wind_speed_kmh"`
	WindDirectionDegrees *float64 `json:"wind_direction_degrees" db:"wind_direction_degrees"`
	WindDirectionText    *string  `json:"wind_direction_text" db:"wind_direction_text"`

	PrecipitationMm     *float64 `json:"precipitation_mm" db:"precipitation_mm"`
	PrecipitationInches *float64 `json:"precipitation_inches" db:"precipitation_inches"`
	PrecipitationType   *string  `json:"precipitation_type" db:"precipitation_type"`

	PressureHpa  *float64 `json:"pressure_hpa" db:"pressure_hpa"`
	PressureInHg *float64 `json:"pressure_inhg" db:"pressure_inhg"`

	VisibilityKm    *float64 `json:"visibility_km" db:"visibility_km"`
	VisibilityMiles *float64 `json:"visibility_miles" db:"visibility_miles"`
	FogDensity      *string  `json:"fog_density" db:"fog_density"`

	CloudinessPercent *int    `json:"cloudiness_percent" db:"cloudiness_percent"`
	CloudType         *string `json:"cloud_type" db:"cloud_type"`
}

// TemperatureStats are global temperature aggregates; nil on an empty store
type TemperatureStats struct {
	Count   int64    `json:"count" db:"count"`
	MinTemp *float64 `json:"min_temp" db:"min_temp"`
	MaxTemp *float64 `json:"max_temp" db:"max_temp"`
	AvgTemp *float64 `json:"avg_temp" db:"avg_temp"`
}

// SeasonalStats are observation aggregates for one season
type SeasonalStats struct {
	Season           Season   `json:"season" db:"season"`
	ObservationCount int64    `json:"observation_count" db:"observation_count"`
	AvgTemp          *float64 `json:"avg_temp" db:"avg_temp"`
	AvgHumidity      *float64 `json:"avg_humidity" db:"avg_humidity"`
	AvgWind          *float64 `json:"avg_wind" db:"avg_wind"`
	TotalPrecip      *float64 `json:"total_precip" db:"total_precip"`
}

// LocationStats are observation aggregates for one location
type LocationStats struct {
	Name             string   `json:"name" db:"name"`
	ObservationCount int64    `json:"observation_count" db:"observation_count"`
	AvgTemp          *float64 `json:"avg_temp" db:"avg_temp"`
	AvgHumidity      *float64 `json:"avg_humidity" db:"avg_humidity"`
	AvgWind          *float64 `json:"avg_wind" db:"avg_wind"`
	TotalPrecip      *float64 `json:"total_precip" db:"total_precip"`
}

// TableCount is the number of rows stored in one table
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
