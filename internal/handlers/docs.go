package handlers

import (
	"encoding/json"
	"net/http"

	"cropsim-platform/internal/models"
	"cropsim-platform/pkg/cropmodel"
)

func jsonContent(schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{"schema": schema},
	}
}

var errorSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"error":           map[string]string{"type": "string"},
		"details":         map[string]string{"type": "string"},
		"regioes_validas": map[string]interface{}{"type": "array", "items": map[string]string{"type": "integer"}},
		"formato":         map[string]string{"type": "string"},
	},
	"required": []string{"error"},
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the simulation API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Crop Simulation API",
			"description": "Crop growth and soil water balance simulation driven by NASA POWER daily climate data",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/simulate": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Run a crop simulation",
					"description": "Fetches daily climate data for the region, runs the crop model from planting on dt_i to dt_f and returns growth and soil balance summaries",
					"requestBody": map[string]interface{}{
						"required": true,
						"content": jsonContent(map[string]interface{}{
							"type":     "object",
							"required": []string{"regiao", "dt_i", "dt_f"},
							"properties": map[string]interface{}{
								"regiao": map[string]interface{}{"type": "integer", "enum": models.RegionIDs()},
								"dt_i":   map[string]string{"type": "string", "format": "date"},
								"dt_f":   map[string]string{"type": "string", "format": "date"},
								"daily":  map[string]interface{}{"type": "boolean", "default": true},
								"agua":   map[string]interface{}{"type": "string", "enum": []string{"FC", "WP", "SAT"}, "default": models.DefaultWaterPreset},
								"crop":   map[string]interface{}{"type": "string", "enum": cropmodel.CropNames(), "default": models.DefaultCrop},
							},
						}),
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Simulation result",
							"content": jsonContent(map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"crescimento": map[string]interface{}{
										"type": "array",
										"items": map[string]interface{}{
											"type": "object",
											"properties": map[string]interface{}{
												"alt_cm":  map[string]string{"type": "number", "description": "root depth, cm"},
												"bio_ton": map[string]string{"type": "number", "description": "dry biomass, t/ha"},
											},
										},
									},
									"solo": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"regiao": map[string]string{"type": "string"},
											"infilt": map[string]string{"type": "number", "description": "total infiltration, mm"},
											"escoa":  map[string]string{"type": "number", "description": "total runoff, mm"},
											"percol": map[string]string{"type": "number", "description": "total deep percolation, mm"},
											"stress": map[string]string{"type": "number", "description": "potential minus actual transpiration, mm"},
											"efic":   map[string]string{"type": "number", "description": "yield per transpired water x 100"},
											"prod":   map[string]string{"type": "number", "description": "dry yield, t/ha"},
										},
									},
								},
							}),
						},
						"400": map[string]interface{}{"description": "Invalid request", "content": jsonContent(errorSchema)},
						"502": map[string]interface{}{"description": "Climate API failure", "content": jsonContent(errorSchema)},
						"500": map[string]interface{}{"description": "Internal error", "content": jsonContent(errorSchema)},
					},
				},
			},
			"/api/regions": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "List simulation regions",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Regions ordered by id",
							"content": jsonContent(map[string]interface{}{
								"type": "array",
								"items": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"id":   map[string]string{"type": "integer"},
										"nome": map[string]string{"type": "string"},
										"lat":  map[string]string{"type": "number"},
										"lon":  map[string]string{"type": "number"},
										"solo": map[string]string{"type": "string"},
									},
								},
							}),
						},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API is running",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "API is healthy",
							"content": jsonContent(map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"status": map[string]string{"type": "string"},
								},
							}),
						},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
