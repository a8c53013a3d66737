package models

import (
	"math"
	"time"
)

// Season is the meteorological season a date falls in
type Season string

const (
	Winter Season = "Winter"
	Spring Season = "Spring"
	Summer Season = "Summer"
	Autumn Season = "Autumn"
)

// Seasons lists every season in calendar order starting with winter
var Seasons = []Season{Winter, Spring, Summer, Autumn}

// Precipitation intensity buckets
const (
	PrecipitationNone     = "None"
	PrecipitationLight    = "Light"
	PrecipitationModerate = "Moderate"
	PrecipitationHeavy    = "Heavy"
)

// Fog density buckets
const (
	FogDense    = "Dense"
	FogModerate = "Moderate"
	FogLight    = "Light"
	FogClear    = "Clear"
)

// Cloud cover buckets
const (
	CloudClear        = "Clear"
	CloudPartlyCloudy = "Partly Cloudy"
	CloudMostlyCloudy = "Mostly Cloudy"
	CloudOvercast     = "Overcast"
)

// CompassPoints is the 16-point compass rose, clockwise from north
var CompassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CelsiusToFahrenheit converts °C to °F
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// SeasonForMonth maps a month onto its season: Dec-Feb winter, Mar-May spring,
// Jun-Aug summer, anything else autumn
func SeasonForMonth(month time.Month) Season {
	switch month {
	case time.December, time.January, time.February:
		return Winter
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	default:
		return Autumn
	}
}

// DayOfYear returns the 1-based ordinal day of t within its year
func DayOfYear(t time.Time) int {
	return t.YearDay()
}

// MsToKmh converts metres per second to kilometres per hour
func MsToKmh(ms float64) float64 {
	return ms * 3.6
}

// CompassDirection maps degrees onto the 16-point compass. Each point covers
// 22.5° centred on its bearing, so N spans [348.75, 360) and [0, 11.25).
func CompassDirection(degrees float64) string {
	idx := int(math.Floor((degrees+11.25)/22.5)) % len(CompassPoints)
	if idx < 0 {
		idx += len(CompassPoints)
	}
	return CompassPoints[idx]
}

// MmToInches converts millimetres to inches
func MmToInches(mm float64) float64 {
	return mm / 25.4
}

// ClassifyPrecipitation buckets a daily precipitation amount
func ClassifyPrecipitation(mm float64) string {
	switch {
	case mm == 0:
		return PrecipitationNone
	case mm < 1:
		return PrecipitationLight
	case mm < 5:
		return PrecipitationModerate
	default:
		return PrecipitationHeavy
	}
}

// HpaToInHg converts hectopascals to inches of mercury
func HpaToInHg(hpa float64) float64 {
	return hpa * 0.02953
}

// KmToMiles converts kilometres to statute miles
func KmToMiles(km float64) float64 {
	return km * 0.621371
}

// ClassifyFog buckets visibility into a fog density
func ClassifyFog(km float64) string {
	switch {
	case km < 1:
		return FogDense
	case km < 5:
		return FogModerate
	case km < 10:
		return FogLight
	default:
		return FogClear
	}
}

// ClassifyCloud buckets cloud cover percentage into a cloud type
func ClassifyCloud(percent int) string {
	switch {
	case percent < 25:
		return CloudClear
	case percent < 50:
		return CloudPartlyCloudy
	case percent < 75:
		return CloudMostlyCloudy
	default:
		return CloudOvercast
	}
}

// NewDatePoint derives the calendar attributes of the date part of t
func NewDatePoint(t time.Time) DatePoint {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return DatePoint{
		Date:      day.Format(DateLayout),
		Year:      day.Year(),
		Month:     int(day.Month()),
		Day:       day.Day(),
		DayOfYear: DayOfYear(day),
		Season:    SeasonForMonth(day.Month()),
	}
}

// Derive computes every measurement family present in the observation.
// Families whose raw value is missing are left nil.
func (o *RawObservation) Derive() Measurements {
	var m Measurements

	if o.TemperatureC != nil {
		c := *o.TemperatureC
		m.Temperature = &Temperature{
			TemperatureC: c,
			TemperatureF: CelsiusToFahrenheit(c),
		}
	}

	if o.HumidityPercent != nil {
		m.Humidity = &Humidity{HumidityPercent: *o.HumidityPercent}
	}

	if o.WindSpeedMs != nil && o.WindDirectionDegrees != nil {
		ms, deg := *o.WindSpeedMs, *o.WindDirectionDegrees
		m.Wind = &Wind{
			WindSpeedMs:          ms,
			WindSpeedKmh:         MsToKmh(ms),
			WindDirectionDegrees: deg,
			WindDirectionText:    CompassDirection(deg),
		}
	}

	if o.PrecipitationMm != nil {
		mm := *o.PrecipitationMm
		m.Precipitation = &Precipitation{
			PrecipitationMm:     mm,
			PrecipitationInches: MmToInches(mm),
			PrecipitationType:   ClassifyPrecipitation(mm),
		}
	}

	if o.PressureHpa != nil {
		hpa := *o.PressureHpa
		m.Pressure = &Pressure{
			PressureHpa:  hpa,
			PressureInHg: HpaToInHg(hpa),
		}
	}

	if o.VisibilityKm != nil {
		km := *o.VisibilityKm
		m.Visibility = &Visibility{
			VisibilityKm:    km,
			VisibilityMiles: KmToMiles(km),
			FogDensity:      ClassifyFog(km),
		}
	}

	if o.CloudinessPercent != nil {
		pct := *o.CloudinessPercent
		m.Cloudiness = &Cloudiness{
			CloudinessPercent: pct,
			CloudType:         ClassifyCloud(pct),
		}
	}

	return m
}
