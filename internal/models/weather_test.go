package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawObservation_Validate(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		obs       RawObservation
		wantField string
	}{
		{
			name: "valid observation",
			obs:  RawObservation{Location: "Mariehamn", Date: date},
		},
		{
			name: "valid with only coordinates and no measurements",
			obs:  RawObservation{Location: "Eckerö", Latitude: 60.22, Longitude: 19.53, Date: date},
		},
		{
			name:      "blank location",
			obs:       RawObservation{Location: "   ", Date: date},
			wantField: "location",
		},
		{
			name:      "missing date",
			obs:       RawObservation{Location: "Mariehamn"},
			wantField: "date",
		},
		{
			name:      "infinite temperature",
			obs:       RawObservation{Location: "Mariehamn", Date: date, TemperatureC: floatPtr(math.Inf(1))},
			wantField: "temperature_c",
		},
		{
			name:      "negative infinite pressure",
			obs:       RawObservation{Location: "Mariehamn", Date: date, PressureHpa: floatPtr(math.Inf(-1))},
			wantField: "pressure_hpa",
		},
		{
			name:      "NaN latitude",
			obs:       RawObservation{Location: "Mariehamn", Date: date, Latitude: math.NaN()},
			wantField: "latitude",
		},
		{
			name:      "wind speed without direction",
			obs:       RawObservation{Location: "Mariehamn", Date: date, WindSpeedMs: floatPtr(4)},
			wantField: "wind_direction_degrees",
		},
		{
			name:      "wind direction without speed",
			obs:       RawObservation{Location: "Mariehamn", Date: date, WindDirectionDegrees: floatPtr(270)},
			wantField: "wind_speed_ms",
		},
		{
			name: "wind pair",
			obs:  RawObservation{Location: "Mariehamn", Date: date, WindSpeedMs: floatPtr(4), WindDirectionDegrees: floatPtr(270)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.obs.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestRawObservation_ValidateAcceptsOutOfRangeMeasurements(t *testing.T) {
	humidity, clouds := 140, -5
	obs := RawObservation{
		Location:          "Mariehamn",
		Date:              time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		HumidityPercent:   &humidity,
		CloudinessPercent: &clouds,
	}
	assert.NoError(t, obs.Validate())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"iso date", "2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"surrounding whitespace", " 2024-07-01 ", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339 timestamp keeps the date", "2024-03-10T18:45:00+02:00", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), false},
		{"leap day", "2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), false},
		{"not a leap year", "2023-02-29", time.Time{}, true},
		{"compact format", "20240115", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate("start_date", tt.input)
			if tt.wantErr {
				var vErr *ValidationError
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, "start_date", vErr.Field)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

// TestValidationError tests error handling
func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "date",
		Value:   "invalid",
		Message: "invalid date format",
	}

	assert.Equal(t, "invalid date format", err.Error())
	assert.False(t, err.IsTransient(), "ValidationError should not be transient")
}
