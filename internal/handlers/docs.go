package handlers

import (
	"encoding/json"
	"net/http"

	"aland-weather/internal/models"
)

const apiTitle = "Åland Weather API"

type queryParam struct {
	name        string
	description string
	schema      map[string]interface{}
}

func observationParams() []queryParam {
	str := map[string]interface{}{"type": "string"}
	date := map[string]interface{}{"type": "string", "format": "date"}
	number := map[string]interface{}{"type": "number"}
	enum := func(values ...string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "enum": values}
	}

	seasons := make([]string, 0, len(models.Seasons))
	for _, s := range models.Seasons {
		seasons = append(seasons, string(s))
	}

	return []queryParam{
		{"location", "Exact location name", str},
		{"date", "Single date (YYYY-MM-DD)", date},
		{"start_date", "Inclusive start date (YYYY-MM-DD)", date},
		{"end_date", "Inclusive end date (YYYY-MM-DD)", date},
		{"season", "Season of the observation date", enum(seasons...)},
		{"min_temperature", "Minimum temperature in °C", number},
		{"max_temperature", "Maximum temperature in °C", number},
		{"precipitation_type", "Precipitation class",
			enum(models.PrecipitationNone, models.PrecipitationLight, models.PrecipitationModerate, models.PrecipitationHeavy)},
		{"fog_density", "Fog density class",
			enum(models.FogDense, models.FogModerate, models.FogLight, models.FogClear)},
		{"cloud_type", "Cloud cover class",
			enum(models.CloudClear, models.CloudPartlyCloudy, models.CloudMostlyCloudy, models.CloudOvercast)},
		{"wind_direction", "16-point compass direction", enum(models.CompassPoints[:]...)},
		{"limit", "Maximum number of rows (default 1000)", map[string]interface{}{"type": "integer", "minimum": 1, "default": 1000}},
	}
}

func getOperation(summary, description, tag string, params []queryParam, responses map[string]interface{}) map[string]interface{} {
	op := map[string]interface{}{
		"summary":     summary,
		"description": description,
		"tags":        []string{tag},
		"responses":   responses,
	}

	if len(params) > 0 {
		list := make([]map[string]interface{}, 0, len(params))
		for _, p := range params {
			list = append(list, map[string]interface{}{
				"name":        p.name,
				"in":          "query",
				"description": p.description,
				"required":    false,
				"schema":      p.schema,
			})
		}
		op["parameters"] = list
	}

	return map[string]interface{}{"get": op}
}

func okResponse(description, schema string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"$ref": "#/components/schemas/" + schema},
			},
		},
	}
}

func errorResponse(description string) map[string]interface{} {
	return okResponse(description, "ErrorResponse")
}

func nullable(kind string) map[string]interface{} {
	return map[string]interface{}{"type": kind, "nullable": true}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the weather API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	locationPath := getOperation("Get location", "Look up a single location by exact name", "dimensions", nil,
		map[string]interface{}{
			"200": okResponse("Location", "Location"),
			"404": errorResponse("Unknown location"),
		})
	locationPath["get"].(map[string]interface{})["parameters"] = []map[string]interface{}{
		{"name": "name", "in": "path", "required": true, "schema": map[string]string{"type": "string"}},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       apiTitle,
			"description": "Normalized daily weather observations for the Åland Islands with derived attributes and aggregates",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/weather": getOperation("Query observations",
				"Reconstruct observations from the normalized tables, newest date first",
				"observations", observationParams(),
				map[string]interface{}{
					"200": okResponse("Matching observations", "ObservationsResponse"),
					"400": errorResponse("Invalid filter"),
				}),
			"/api/locations": getOperation("List locations", "All known locations ordered by name", "dimensions", nil,
				map[string]interface{}{"200": okResponse("Locations", "LocationsResponse")}),
			"/api/locations/{name}": locationPath,
			"/api/dates": getOperation("List dates", "All known dates with derived calendar attributes", "dimensions", nil,
				map[string]interface{}{"200": okResponse("Dates", "DatesResponse")}),
			"/api/stats/temperature": getOperation("Temperature statistics", "Count, min, max and mean temperature", "statistics", nil,
				map[string]interface{}{"200": okResponse("Temperature statistics", "TemperatureStats")}),
			"/api/stats/seasonal": getOperation("Seasonal statistics", "Averages and totals grouped by season", "statistics", nil,
				map[string]interface{}{"200": okResponse("Seasonal statistics", "ListResponse")}),
			"/api/stats/locations": getOperation("Location statistics", "Averages and totals grouped by location", "statistics", nil,
				map[string]interface{}{"200": okResponse("Location statistics", "ListResponse")}),
			"/api/stats/tables": getOperation("Table row counts", "Row count of every normalized table", "statistics", nil,
				map[string]interface{}{"200": okResponse("Row counts", "ListResponse")}),
			"/health": getOperation("Health check", "Database connectivity check", "system", nil,
				map[string]interface{}{
					"200": map[string]string{"description": "Healthy"},
					"503": map[string]string{"description": "Database unreachable"},
				}),
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Location": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":        map[string]string{"type": "integer"},
						"name":      map[string]string{"type": "string"},
						"latitude":  map[string]string{"type": "number"},
						"longitude": map[string]string{"type": "number"},
					},
				},
				"DatePoint": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":          map[string]string{"type": "integer"},
						"date":        map[string]string{"type": "string", "format": "date"},
						"year":        map[string]string{"type": "integer"},
						"month":       map[string]string{"type": "integer"},
						"day":         map[string]string{"type": "integer"},
						"day_of_year": map[string]string{"type": "integer"},
						"season":      map[string]string{"type": "string"},
					},
				},
				"Observation": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"date":                   map[string]string{"type": "string", "format": "date"},
						"season":                 map[string]string{"type": "string"},
						"location_name":          map[string]string{"type": "string"},
						"latitude":               map[string]string{"type": "number"},
						"longitude":              map[string]string{"type": "number"},
						"temperature_c":          nullable("number"),
						"temperature_f":          nullable("number"),
						"humidity_percent":       nullable("integer"),
						"wind_speed_ms":          nullable("number"),
						"wind_speed_kmh":         nullable("number"),
						"wind_direction_degrees": nullable("number"),
						"wind_direction_text":    nullable("string"),
						"precipitation_mm":       nullable("number"),
						"precipitation_inches":   nullable("number"),
						"precipitation_type":     nullable("string"),
						"pressure_hpa":           nullable("number"),
						"pressure_inhg":          nullable("number"),
						"visibility_km":          nullable("number"),
						"visibility_miles":       nullable("number"),
						"fog_density":            nullable("string"),
						"cloudiness_percent":     nullable("integer"),
						"cloud_type":             nullable("string"),
					},
				},
				"ObservationsResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"data":            map[string]interface{}{"type": "array", "items": map[string]string{"$ref": "#/components/schemas/Observation"}},
						"count":           map[string]string{"type": "integer"},
						"filters_applied": map[string]interface{}{"type": "object", "additionalProperties": map[string]string{"type": "string"}},
					},
				},
				"LocationsResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"locations": map[string]interface{}{"type": "array", "items": map[string]string{"$ref": "#/components/schemas/Location"}},
						"count":     map[string]string{"type": "integer"},
					},
				},
				"DatesResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"dates": map[string]interface{}{"type": "array", "items": map[string]string{"$ref": "#/components/schemas/DatePoint"}},
						"count": map[string]string{"type": "integer"},
						"date_range": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"start": nullable("string"),
								"end":   nullable("string"),
							},
						},
					},
				},
				"TemperatureStats": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"count":    map[string]string{"type": "integer"},
						"min_temp": nullable("number"),
						"max_temp": nullable("number"),
						"avg_temp": nullable("number"),
					},
				},
				"ListResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"data":  map[string]interface{}{"type": "array", "items": map[string]string{"type": "object"}},
						"count": map[string]string{"type": "integer"},
					},
				},
				"ErrorResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"field":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
