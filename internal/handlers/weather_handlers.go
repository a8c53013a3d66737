package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"aland-weather/internal/models"
	"aland-weather/internal/repository"
	"aland-weather/internal/services"
	"aland-weather/pkg/logging"
	"aland-weather/pkg/metrics"
)

// WeatherHandler handles weather API endpoints
type WeatherHandler struct {
	weatherService *services.WeatherService
	statsService   *services.StatisticsService
	logger         *logging.StructuredLogger
	metrics        *metrics.Collector
}

// NewWeatherHandler creates a new weather handler
func NewWeatherHandler(
	weatherService *services.WeatherService,
	statsService *services.StatisticsService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *WeatherHandler {
	return &WeatherHandler{
		weatherService: weatherService,
		statsService:   statsService,
		logger:         logger,
		metrics:        metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ObservationsResponse is the envelope of GET /api/weather
type ObservationsResponse struct {
	Data           []*models.ObservationView `json:"data"`
	Count          int                       `json:"count"`
	FiltersApplied map[string]string         `json:"filters_applied"`
}

// LocationsResponse is the envelope of GET /api/locations
type LocationsResponse struct {
	Locations []*models.Location `json:"locations"`
	Count     int                `json:"count"`
}

// DateRange is the first and last stored date
type DateRange struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// DatesResponse is the envelope of GET /api/dates
type DatesResponse struct {
	Dates     []*models.DatePoint `json:"dates"`
	Count     int                 `json:"count"`
	DateRange DateRange           `json:"date_range"`
}

// ListResponse wraps list-shaped statistics
type ListResponse struct {
	Data  interface{} `json:"data"`
	Count int         `json:"count"`
}

// GetObservations handles GET /api/weather
func (h *WeatherHandler) GetObservations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	query := services.ObservationQuery{
		Location:          params.Get("location"),
		Date:              params.Get("date"),
		StartDate:         params.Get("start_date"),
		EndDate:           params.Get("end_date"),
		Season:            params.Get("season"),
		MinTemperature:    params.Get("min_temperature"),
		MaxTemperature:    params.Get("max_temperature"),
		PrecipitationType: params.Get("precipitation_type"),
		FogDensity:        params.Get("fog_density"),
		CloudType:         params.Get("cloud_type"),
		WindDirection:     params.Get("wind_direction"),
		Limit:             params.Get("limit"),
	}

	observations, err := h.weatherService.QueryObservations(ctx, query)
	if err != nil {
		h.handleError(w, r, "/api/weather", err)
		return
	}

	applied := make(map[string]string)
	for key, values := range params {
		if len(values) > 0 && values[0] != "" {
			applied[key] = values[0]
		}
	}

	h.sendJSON(w, ObservationsResponse{
		Data:           observations,
		Count:          len(observations),
		FiltersApplied: applied,
	}, http.StatusOK)
}

// GetLocations handles GET /api/locations
func (h *WeatherHandler) GetLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.weatherService.GetLocations(r.Context())
	if err != nil {
		h.handleError(w, r, "/api/locations", err)
		return
	}

	h.sendJSON(w, LocationsResponse{Locations: locations, Count: len(locations)}, http.StatusOK)
}

// GetLocation handles GET /api/locations/{name}
func (h *WeatherHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	location, err := h.weatherService.GetLocation(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		h.handleError(w, r, "/api/locations/{name}", err)
		return
	}

	h.sendJSON(w, location, http.StatusOK)
}

// GetDates handles GET /api/dates
func (h *WeatherHandler) GetDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.weatherService.GetDates(r.Context())
	if err != nil {
		h.handleError(w, r, "/api/dates", err)
		return
	}

	response := DatesResponse{Dates: dates, Count: len(dates)}
	if len(dates) > 0 {
		response.DateRange = DateRange{Start: &dates[0].Date, End: &dates[len(dates)-1].Date}
	}

	h.sendJSON(w, response, http.StatusOK)
}

// GetTemperatureStats handles GET /api/stats/temperature
func (h *WeatherHandler) GetTemperatureStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.GetTemperatureStats(r.Context())
	if err != nil {
		h.handleError(w, r, "/api/stats/temperature", err)
		return
	}

	h.sendJSON(w, stats, http.StatusOK)
}

// GetSeasonalStats handles GET /api/stats/seasonal
func (h *WeatherHandler) GetSeasonalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.GetSeasonalStats(r.Context())
	if err != nil {
		h.handleError(w, r, "/api/stats/seasonal", err)
		return
	}

	h.sendJSON(w, ListResponse{Data: stats, Count: len(stats)}, http.StatusOK)
}

// GetLocationStats handles GET /api/stats/locations
func (h *WeatherHandler) GetLocationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.GetLocationStats(r.Context())
	if err != nil {
		h.handleError(w, r, "/api/stats/locations", err)
		return
	}

	h.sendJSON(w, ListResponse{Data: stats, Count: len(stats)}, http.StatusOK)
}

// GetTableCounts handles GET /api/stats/tables
func (h *WeatherHandler) GetTableCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.statsService.GetTableCounts(r.Context())
	if err != nil {
		h.handleError(w, r, "/api/stats/tables", err)
		return
	}

	h.sendJSON(w, ListResponse{Data: counts, Count: len(counts)}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *WeatherHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"database":  "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.weatherService.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK_FAILED] Database unreachable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		status["database"] = err.Error()
		h.sendJSON(w, status, http.StatusServiceUnavailable)
		return
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// handleError maps service errors onto HTTP status codes
func (h *WeatherHandler) handleError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var vErr *models.ValidationError
	var notFound *repository.NotFoundError

	switch {
	case errors.As(err, &vErr):
		h.metrics.RecordAPIError("validation_error", endpoint)
		h.sendError(w, vErr.Field, vErr.Message, http.StatusBadRequest)
	case errors.As(err, &notFound):
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, "", notFound.Error(), http.StatusNotFound)
	default:
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint,
			"query":    r.URL.RawQuery,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, "", err.Error(), http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response. The body is encoded before the header is
// written so an unencodable value becomes a 500 instead of an empty 200.
func (h *WeatherHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	body, err := json.Marshal(data)
	if err != nil {
		h.logger.Error(context.Background(), "[API_ENCODE_ERROR] Failed to encode response", logging.Fields{
			"status": statusCode,
		}, err)
		h.metrics.RecordAPIError("encode_error", "response")

		statusCode = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{
			Error:   http.StatusText(statusCode),
			Message: "failed to encode response",
			Code:    statusCode,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.logger.Warn(context.Background(), "[API_WRITE_ERROR] Failed to write response", logging.Fields{
			"error": err.Error(),
		})
	}
}

// sendError sends an error response
func (h *WeatherHandler) sendError(w http.ResponseWriter, field, message string, statusCode int) {
	h.sendJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Field:   field,
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// RegisterRoutes registers all weather API routes
func (h *WeatherHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/weather", h.GetObservations).Methods("GET")
	router.HandleFunc("/api/locations", h.GetLocations).Methods("GET")
	router.HandleFunc("/api/locations/{name}", h.GetLocation).Methods("GET")
	router.HandleFunc("/api/dates", h.GetDates).Methods("GET")
	router.HandleFunc("/api/stats/temperature", h.GetTemperatureStats).Methods("GET")
	router.HandleFunc("/api/stats/seasonal", h.GetSeasonalStats).Methods("GET")
	router.HandleFunc("/api/stats/locations", h.GetLocationStats).Methods("GET")
	router.HandleFunc("/api/stats/tables", h.GetTableCounts).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
