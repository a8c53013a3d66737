package services

import (
	"context"
	"fmt"

	"aland-weather/internal/models"
	"aland-weather/internal/repository"
	"aland-weather/pkg/logging"
	"aland-weather/pkg/metrics"
)

// StatisticsService serves the grouped aggregates of the normalized store
type StatisticsService struct {
	repo    repository.WeatherRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Summary bundles every aggregate, as printed after an ingestion run
type Summary struct {
	Temperature *models.TemperatureStats `json:"temperature"`
	Seasonal    []*models.SeasonalStats  `json:"seasonal"`
	Locations   []*models.LocationStats  `json:"locations"`
	Tables      []models.TableCount      `json:"tables"`
}

// GetTemperatureStats returns global temperature min/max/avg
func (s *StatisticsService) GetTemperatureStats(ctx context.Context) (*models.TemperatureStats, error) {
	timer := s.metrics.NewTimer(s.metrics.AggregateDuration.WithLabelValues("temperature"))
	defer timer.ObserveDuration()

	return s.repo.GetTemperatureStats(ctx)
}

// GetSeasonalStats returns aggregates grouped by season
func (s *StatisticsService) GetSeasonalStats(ctx context.Context) ([]*models.SeasonalStats, error) {
	timer := s.metrics.NewTimer(s.metrics.AggregateDuration.WithLabelValues("seasonal"))
	defer timer.ObserveDuration()

	return s.repo.GetSeasonalStats(ctx)
}

// GetLocationStats returns aggregates grouped by location
func (s *StatisticsService) GetLocationStats(ctx context.Context) ([]*models.LocationStats, error) {
	timer := s.metrics.NewTimer(s.metrics.AggregateDuration.WithLabelValues("location"))
	defer timer.ObserveDuration()

	return s.repo.GetLocationStats(ctx)
}

// GetTableCounts returns the row count of each table
func (s *StatisticsService) GetTableCounts(ctx context.Context) ([]models.TableCount, error) {
	timer := s.metrics.NewTimer(s.metrics.AggregateDuration.WithLabelValues("tables"))
	defer timer.ObserveDuration()

	return s.repo.GetTableCounts(ctx)
}

// GetSummary computes every aggregate in turn
func (s *StatisticsService) GetSummary(ctx context.Context) (*Summary, error) {
	s.logger.Info(ctx, "[STATS_SUMMARY_START] Computing statistics summary", logging.Fields{
		"stage": "INITIALIZATION",
	})

	temperature, err := s.GetTemperatureStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute temperature statistics: %w", err)
	}

	seasonal, err := s.GetSeasonalStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute seasonal statistics: %w", err)
	}

	locations, err := s.GetLocationStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute location statistics: %w", err)
	}

	tables, err := s.GetTableCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tables: %w", err)
	}

	s.logger.Info(ctx, "[STATS_SUMMARY_COMPLETE] Statistics summary computed", logging.Fields{
		"observations": temperature.Count,
		"seasons":      len(seasonal),
		"locations":    len(locations),
		"stage":        "COMPLETE",
	})

	return &Summary{
		Temperature: temperature,
		Seasonal:    seasonal,
		Locations:   locations,
		Tables:      tables,
	}, nil
}
