package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aland-weather/internal/models"
	"aland-weather/internal/repository"
	"aland-weather/pkg/logging"
)

const swedishCSV = `plats,latitud,longitud,datum,temperatur_c,luftfuktighet_procent,vindhastighet_ms,vindriktning_grader,nederbord_mm,lufttryck_hpa,sikt_km,molnighet_procent
Mariehamn,60.0971,19.9348,2024-01-15,-5.0,80,5.0,90,0,1013.0,15.0,10
Eckerö,60.2256,19.5367,2024-01-15,-4.2,85.6,7.5,250,1.2,1009.5,8.0,60
Mariehamn,60.0971,19.9348,15/01/2024,-3.0,80,5.0,90,0,1013.0,15.0,10
`

func newIngestionService(env *testEnv, repo repository.WeatherRepository, clock clockwork.Clock) *IngestionService {
	return NewIngestionService(repo, env.logger, env.metrics, clock, IngestionOptions{
		ProgressEvery:    2,
		MaxErrorMessages: 10,
	})
}

func TestIngestReader_SwedishHeaders(t *testing.T) {
	env := newTestEnv(t)
	clock := clockwork.NewFakeClock()
	repo := &tickingRepository{WeatherRepository: env.repo, clock: clock}
	svc := newIngestionService(env, repo, clock)
	ctx := context.Background()

	result, err := svc.IngestReader(ctx, strings.NewReader(swedishCSV), "aland.csv")
	require.NoError(t, err)

	assert.Equal(t, "aland.csv", result.Source)
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 2, result.SuccessfulRecords)
	assert.Equal(t, 1, result.FailedRecords)
	assert.Equal(t, 2, result.Locations)
	assert.False(t, result.Aborted)
	assert.Equal(t, 2*time.Second, result.Duration)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "record 3")

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.IngestionRecordsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.IngestionErrorsTotal.WithLabelValues("validation_error")))

	rows, err := env.repo.QueryObservations(ctx, repository.ObservationFilter{Location: strPtr("Eckerö")})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].HumidityPercent)
	assert.Equal(t, 86, *rows[0].HumidityPercent)
	require.NotNil(t, rows[0].WindDirectionText)
	assert.Equal(t, "WSW", *rows[0].WindDirectionText)
	require.NotNil(t, rows[0].PrecipitationType)
	assert.Equal(t, models.PrecipitationModerate, *rows[0].PrecipitationType)
	require.NotNil(t, rows[0].CloudType)
	assert.Equal(t, models.CloudMostlyCloudy, *rows[0].CloudType)
}

func TestIngestReader_EnglishHeadersAndBlankCells(t *testing.T) {
	env := newTestEnv(t)
	svc := newIngestionService(env, env.repo, clockwork.NewFakeClock())
	ctx := context.Background()

	csv := "\ufefflocation,latitude,longitude,date,temperature_c,humidity_percent,wind_speed_ms,wind_direction_degrees,precipitation_mm,pressure_hpa,visibility_km,cloudiness_percent\n" +
		"Kökar,59.92,20.91,2024-04-02,4.5,,,,,,,\n"

	result, err := svc.IngestReader(ctx, strings.NewReader(csv), "english.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessfulRecords)

	rows, err := env.repo.QueryObservations(ctx, repository.ObservationFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.Spring, rows[0].Season)
	require.NotNil(t, rows[0].TemperatureC)
	assert.Nil(t, rows[0].HumidityPercent)
	assert.Nil(t, rows[0].WindSpeedMs)
	assert.Nil(t, rows[0].CloudinessPercent)
}

func TestIngestReader_RowProblemsAreSkipped(t *testing.T) {
	env := newTestEnv(t)
	svc := newIngestionService(env, env.repo, clockwork.NewFakeClock())

	csv := "plats,latitud,longitud,datum,temperatur_c\n" +
		",60.1,19.9,2024-01-01,1.0\n" +
		"Mariehamn,,19.9,2024-01-01,1.0\n" +
		"Mariehamn,60.1,19.9,2024-01-01,warm\n" +
		"Mariehamn,60.1,19.9,,1.0\n" +
		"Mariehamn,60.1,19.9,2024-01-01,1.0\n"

	result, err := svc.IngestReader(context.Background(), strings.NewReader(csv), "bad.csv")
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalRecords)
	assert.Equal(t, 1, result.SuccessfulRecords)
	assert.Equal(t, 4, result.FailedRecords)
	assert.Len(t, result.Errors, 4)
}

func TestIngestReader_MissingRequiredColumn(t *testing.T) {
	env := newTestEnv(t)
	svc := newIngestionService(env, env.repo, clockwork.NewFakeClock())

	result, err := svc.IngestReader(context.Background(), strings.NewReader("plats,datum\nMariehamn,2024-01-01\n"), "short.csv")
	assert.Nil(t, result)

	var vErr *models.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "latitude", vErr.Field)
}

func TestIngestRecords_StorageErrorAbortsRemainingBatch(t *testing.T) {
	env := newTestEnv(t)
	clock := clockwork.NewFakeClock()
	diskFull := errors.New("disk full")
	repo := &tickingRepository{WeatherRepository: env.repo, clock: clock, failAt: 2, failErr: diskFull}
	svc := newIngestionService(env, repo, clock)
	ctx := context.Background()

	result, err := svc.IngestRecords(ctx, []*models.RawObservation{
		observation("Mariehamn", day(2024, 1, 15), -5),
		observation("Mariehamn", day(2024, 1, 16), -3),
		observation("Mariehamn", day(2024, 1, 17), -1),
	})

	require.ErrorIs(t, err, diskFull)
	require.NotNil(t, result)
	assert.True(t, result.Aborted)
	assert.Equal(t, 2, result.TotalRecords)
	assert.Equal(t, 1, result.SuccessfulRecords)
	assert.Equal(t, 2, repo.saves, "records after the failure are not attempted")

	stats, err := env.repo.GetTemperatureStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Count, "records saved before the failure stay committed")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.IngestionErrorsTotal.WithLabelValues("storage_error")))
}

func TestIngestRecords_SkipsInvalidRecords(t *testing.T) {
	env := newTestEnv(t)
	svc := newIngestionService(env, env.repo, clockwork.NewFakeClock())

	result, err := svc.IngestRecords(context.Background(), []*models.RawObservation{
		nil,
		{Location: "", Date: day(2024, 1, 1)},
		observation("Mariehamn", day(2024, 1, 15), -5),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 1, result.SuccessfulRecords)
	assert.Equal(t, 2, result.FailedRecords)
}

func TestIngestRecords_ErrorMessagesAreCapped(t *testing.T) {
	env := newTestEnv(t)
	svc := NewIngestionService(env.repo, env.logger, env.metrics, clockwork.NewFakeClock(), IngestionOptions{MaxErrorMessages: 2})

	result, err := svc.IngestRecords(context.Background(), []*models.RawObservation{nil, nil, nil, nil})
	require.NoError(t, err)
	assert.Equal(t, 4, result.FailedRecords)
	assert.Len(t, result.Errors, 2)
}

func TestIngestRecords_Cancelled(t *testing.T) {
	env := newTestEnv(t)
	svc := newIngestionService(env, env.repo, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.IngestRecords(ctx, []*models.RawObservation{observation("Mariehamn", day(2024, 1, 15), -5)})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, result.Aborted)
	assert.Zero(t, result.TotalRecords)
}

func TestIngestFile(t *testing.T) {
	env := newTestEnv(t)
	svc := newIngestionService(env, env.repo, clockwork.NewFakeClock())

	path := filepath.Join(t.TempDir(), "aland_weather_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(swedishCSV), 0o600))

	result, err := svc.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessfulRecords)

	_, err = svc.IngestFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestObservationReader(t *testing.T) {
	reader, err := NewObservationReader(strings.NewReader(swedishCSV))
	require.NoError(t, err)

	first, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "Mariehamn", first.Location)
	assert.Equal(t, day(2024, 1, 15), first.Date)
	require.NotNil(t, first.PressureHpa)
	assert.Equal(t, 1013.0, *first.PressureHpa)

	second, err := reader.Next()
	require.NoError(t, err)
	require.NotNil(t, second.HumidityPercent)
	assert.Equal(t, 86, *second.HumidityPercent)

	_, err = reader.Next()
	var vErr *models.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "date", vErr.Field)

	_, err = reader.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestIngestReader_RejectsNonFiniteCells(t *testing.T) {
	env := newTestEnv(t)
	svc := newIngestionService(env, env.repo, clockwork.NewFakeClock())
	ctx := context.Background()

	csv := "location,latitude,longitude,date,temperature_c,humidity_percent\n" +
		"Mariehamn,60.1,19.9,2024-01-15,inf,Inf\n" +
		"Mariehamn,60.1,19.9,2024-01-16,-Inf,80\n" +
		"Mariehamn,60.1,19.9,2024-01-17,1e400,80\n" +
		"Mariehamn,60.1,19.9,2024-01-18,-3,1e12\n" +
		"Mariehamn,60.1,19.9,2024-01-19,-1,80\n"

	result, err := svc.IngestReader(ctx, strings.NewReader(csv), "non-finite.csv")
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalRecords)
	assert.Equal(t, 1, result.SuccessfulRecords)
	assert.Equal(t, 4, result.FailedRecords)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "temperature_c")
	assert.Contains(t, result.Errors[3], "humidity_percent")

	stats, err := env.repo.GetTemperatureStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Count)
	require.NotNil(t, stats.MaxTemp)
	assert.Equal(t, -1.0, *stats.MaxTemp)
}

func TestIngestRecords_RejectsUnpairedWind(t *testing.T) {
	env := newTestEnv(t)
	svc := newIngestionService(env, env.repo, clockwork.NewFakeClock())

	speedOnly := observation("Mariehamn", day(2024, 1, 15), -5)
	speedOnly.WindDirectionDegrees = nil
	directionOnly := observation("Mariehamn", day(2024, 1, 16), -4)
	directionOnly.WindSpeedMs = nil

	result, err := svc.IngestRecords(context.Background(), []*models.RawObservation{
		speedOnly,
		directionOnly,
		observation("Mariehamn", day(2024, 1, 17), -3),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessfulRecords)
	assert.Equal(t, 2, result.FailedRecords)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "wind speed and wind direction")
}

func TestNewIngestionService_DefaultErrorCap(t *testing.T) {
	env := newTestEnv(t)
	svc := NewIngestionService(env.repo, env.logger, env.metrics, clockwork.NewFakeClock(), IngestionOptions{})

	records := make([]*models.RawObservation, 150)
	result, err := svc.IngestRecords(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 150, result.FailedRecords)
	assert.Len(t, result.Errors, 100)

	clock := clockwork.NewFakeClock()
	failing := &tickingRepository{WeatherRepository: env.repo, clock: clock, failAt: 1, failErr: errors.New("disk full")}
	svc = NewIngestionService(failing, env.logger, env.metrics, clock, IngestionOptions{})

	result, err = svc.IngestRecords(context.Background(), []*models.RawObservation{observation("Mariehamn", day(2024, 1, 15), -5)})
	require.Error(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "disk full")
}

func TestIngest_LogsCarrySource(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	env.logger.SetOutput(&buf)
	env.logger.SetLevel(logging.DebugLevel)

	svc := newIngestionService(env, env.repo, clockwork.NewFakeClock())
	_, err := svc.IngestReader(context.Background(), strings.NewReader(
		"location,latitude,longitude,date,temperature_c\nMariehamn,60.1,19.9,2024-01-15,-4\n"), "inline.csv")
	require.NoError(t, err)

	byMessage := make(map[string]map[string]interface{})
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		msg, _ := entry["message"].(string)
		fields, _ := entry["fields"].(map[string]interface{})
		byMessage[msg] = fields
	}

	for _, msg := range []string{"[INGEST_START] Starting data ingestion", "[INGEST_COMPLETE] Data ingestion completed"} {
		require.Contains(t, byMessage, msg)
		assert.Equal(t, "inline.csv", byMessage[msg]["source"], msg)
	}
	assert.Contains(t, byMessage, "[REPO_SAVE_OBSERVATION] Observation saved")
	assert.EqualValues(t, 1, byMessage["[INGEST_COMPLETE] Data ingestion completed"]["successful_records"])
}
