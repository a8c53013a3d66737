package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func TestCelsiusToFahrenheit(t *testing.T) {
	tests := []struct {
		c, f float64
	}{
		{-40, -40},
		{-5, 23},
		{0, 32},
		{21.5, 70.7},
		{100, 212},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.f, CelsiusToFahrenheit(tt.c), epsilon, "c=%v", tt.c)
	}
}

func TestSeasonForMonth(t *testing.T) {
	want := map[time.Month]Season{
		time.January:   Winter,
		time.February:  Winter,
		time.March:     Spring,
		time.April:     Spring,
		time.May:       Spring,
		time.June:      Summer,
		time.July:      Summer,
		time.August:    Summer,
		time.September: Autumn,
		time.October:   Autumn,
		time.November:  Autumn,
		time.December:  Winter,
	}

	counts := map[Season]int{}
	for m := time.January; m <= time.December; m++ {
		got := SeasonForMonth(m)
		assert.Equal(t, want[m], got, "month %s", m)
		counts[got]++
	}

	for _, s := range Seasons {
		assert.Equal(t, 3, counts[s], "season %s", s)
	}
}

func TestDayOfYear(t *testing.T) {
	assert.Equal(t, 1, DayOfYear(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 15, DayOfYear(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 60, DayOfYear(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 366, DayOfYear(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 365, DayOfYear(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestUnitConversions(t *testing.T) {
	assert.InDelta(t, 18.0, MsToKmh(5), epsilon)
	assert.InDelta(t, 1.0, MmToInches(25.4), epsilon)
	assert.InDelta(t, 29.91389, HpaToInHg(1013), epsilon)
	assert.InDelta(t, 9.320565, KmToMiles(15), epsilon)
}

func TestCompassDirection(t *testing.T) {
	tests := []struct {
		degrees float64
		want    string
	}{
		{0, "N"},
		{11.24, "N"},
		{11.25, "NNE"},
		{22.5, "NNE"},
		{45, "NE"},
		{90, "E"},
		{135, "SE"},
		{180, "S"},
		{202.5, "SSW"},
		{270, "W"},
		{315, "NW"},
		{337.5, "NNW"},
		{348.74, "NNW"},
		{348.75, "N"},
		{359.99, "N"},
		{360, "N"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CompassDirection(tt.degrees), "degrees=%v", tt.degrees)
	}
}

func TestCompassDirection_CoversEveryPointInOrder(t *testing.T) {
	for i, point := range CompassPoints {
		assert.Equal(t, point, CompassDirection(float64(i)*22.5), "bearing of %s", point)
	}
}

func TestClassifyPrecipitation(t *testing.T) {
	tests := []struct {
		mm   float64
		want string
	}{
		{0, PrecipitationNone},
		{0.1, PrecipitationLight},
		{0.99, PrecipitationLight},
		{1, PrecipitationModerate},
		{4.99, PrecipitationModerate},
		{5, PrecipitationHeavy},
		{42, PrecipitationHeavy},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyPrecipitation(tt.mm), "mm=%v", tt.mm)
	}
}

func TestClassifyFog(t *testing.T) {
	tests := []struct {
		km   float64
		want string
	}{
		{0, FogDense},
		{0.99, FogDense},
		{1, FogModerate},
		{4.99, FogModerate},
		{5, FogLight},
		{9.99, FogLight},
		{10, FogClear},
		{50, FogClear},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyFog(tt.km), "km=%v", tt.km)
	}
}

func TestClassifyCloud(t *testing.T) {
	tests := []struct {
		percent int
		want    string
	}{
		{0, CloudClear},
		{24, CloudClear},
		{25, CloudPartlyCloudy},
		{49, CloudPartlyCloudy},
		{50, CloudMostlyCloudy},
		{74, CloudMostlyCloudy},
		{75, CloudOvercast},
		{100, CloudOvercast},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyCloud(tt.percent), "percent=%v", tt.percent)
	}
}

func TestNewDatePoint(t *testing.T) {
	dp := NewDatePoint(time.Date(2024, 7, 4, 13, 30, 0, 0, time.UTC))

	assert.Equal(t, "2024-07-04", dp.Date)
	assert.Equal(t, 2024, dp.Year)
	assert.Equal(t, 7, dp.Month)
	assert.Equal(t, 4, dp.Day)
	assert.Equal(t, 186, dp.DayOfYear)
	assert.Equal(t, Summer, dp.Season)
	assert.Zero(t, dp.ID)
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func mariehamnObservation() RawObservation {
	return RawObservation{
		Location:             "Mariehamn",
		Latitude:             60.0971,
		Longitude:            19.9348,
		Date:                 time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		TemperatureC:         floatPtr(-5.0),
		HumidityPercent:      intPtr(80),
		WindSpeedMs:          floatPtr(5.0),
		WindDirectionDegrees: floatPtr(90),
		PrecipitationMm:      floatPtr(0),
		PressureHpa:          floatPtr(1013.0),
		VisibilityKm:         floatPtr(15.0),
		CloudinessPercent:    intPtr(10),
	}
}

func TestRawObservation_Derive(t *testing.T) {
	obs := mariehamnObservation()
	m := obs.Derive()

	assert.Equal(t, Winter, NewDatePoint(obs.Date).Season)

	require.NotNil(t, m.Temperature)
	assert.InDelta(t, 23.0, m.Temperature.TemperatureF, epsilon)

	require.NotNil(t, m.Humidity)
	assert.Equal(t, 80, m.Humidity.HumidityPercent)

	require.NotNil(t, m.Wind)
	assert.InDelta(t, 18.0, m.Wind.WindSpeedKmh, epsilon)
	assert.Equal(t, "E", m.Wind.WindDirectionText)

	require.NotNil(t, m.Precipitation)
	assert.Equal(t, PrecipitationNone, m.Precipitation.PrecipitationType)
	assert.Zero(t, m.Precipitation.PrecipitationInches)

	require.NotNil(t, m.Pressure)
	assert.InDelta(t, 29.91389, m.Pressure.PressureInHg, epsilon)

	require.NotNil(t, m.Visibility)
	assert.Equal(t, FogClear, m.Visibility.FogDensity)

	require.NotNil(t, m.Cloudiness)
	assert.Equal(t, CloudClear, m.Cloudiness.CloudType)
}

func TestRawObservation_DeriveMissingFamilies(t *testing.T) {
	obs := RawObservation{
		Location:     "Mariehamn",
		Date:         time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		TemperatureC: floatPtr(2.5),
		WindSpeedMs:  floatPtr(4.0),
	}

	m := obs.Derive()

	require.NotNil(t, m.Temperature)
	assert.Nil(t, m.Humidity)
	assert.Nil(t, m.Wind, "wind needs both speed and direction")
	assert.Nil(t, m.Precipitation)
	assert.Nil(t, m.Pressure)
	assert.Nil(t, m.Visibility)
	assert.Nil(t, m.Cloudiness)
}
