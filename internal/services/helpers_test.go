package services

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"aland-weather/internal/models"
	"aland-weather/internal/repository"
	"aland-weather/pkg/database"
	"aland-weather/pkg/logging"
	"aland-weather/pkg/metrics"
)

type testEnv struct {
	repo    repository.WeatherRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logging.NewStructuredLogger("services-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("services_test", prometheus.NewRegistry())

	db, err := database.Open(&database.Config{
		Driver: database.SQLite,
		Path:   filepath.Join(t.TempDir(), "weather.db"),
	}, logger, collector)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewWeatherRepository(db, logger, collector)
	require.NoError(t, repo.EnsureSchema(context.Background()))

	return &testEnv{repo: repo, logger: logger, metrics: collector}
}

// tickingRepository advances a fake clock on every save and can be told to
// fail the save of a given record
type tickingRepository struct {
	repository.WeatherRepository
	clock   *clockwork.FakeClock
	failAt  int
	failErr error
	saves   int
}

func (r *tickingRepository) SaveObservation(ctx context.Context, obs *models.RawObservation) (models.ObservationKey, error) {
	r.saves++
	r.clock.Advance(time.Second)
	if r.failAt > 0 && r.saves == r.failAt {
		return models.ObservationKey{}, r.failErr
	}
	return r.WeatherRepository.SaveObservation(ctx, obs)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }

func observation(location string, date time.Time, tempC float64) *models.RawObservation {
	return &models.RawObservation{
		Location:             location,
		Latitude:             60.0971,
		Longitude:            19.9348,
		Date:                 date,
		TemperatureC:         floatPtr(tempC),
		HumidityPercent:      intPtr(80),
		WindSpeedMs:          floatPtr(5.0),
		WindDirectionDegrees: floatPtr(90),
		PrecipitationMm:      floatPtr(0),
		PressureHpa:          floatPtr(1013.0),
		VisibilityKm:         floatPtr(15.0),
		CloudinessPercent:    intPtr(10),
	}
}
