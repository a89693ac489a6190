package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Carbon Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Carbon Platform API",
			"description": "Enterprise sustainability platform: emissions tracking, baseline estimation, circular-economy marketplace, and compliance reporting",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Carbon Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/emissions": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List emissions records",
					"description": "Retrieve emissions records with filtering and pagination",
					"parameters": []map[string]interface{}{
						{
							"name":        "company_id",
							"in":          "query",
							"description": "Filter by company ID",
							"required":    false,
							"schema":      map[string]string{"type": "integer"},
						},
						{
							"name":        "start_date",
							"in":          "query",
							"description": "Filter by period start (YYYY-MM-DD)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":        "end_date",
							"in":          "query",
							"description": "Filter by period end (YYYY-MM-DD)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":        "page",
							"in":          "query",
							"description": "Page number (default: 1)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 1},
						},
						{
							"name":        "limit",
							"in":          "query",
							"description": "Records per page (default: 100)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 100},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"data": map[string]interface{}{
												"type": "array",
												"items": map[string]interface{}{
													"type": "object",
													"properties": map[string]interface{}{
														"id":                 map[string]string{"type": "integer"},
														"company_id":         map[string]string{"type": "integer"},
														"period_start":       map[string]string{"type": "string", "format": "date-time"},
														"period_end":         map[string]string{"type": "string", "format": "date-time"},
														"scope1_tons":        map[string]string{"type": "number"},
														"scope2_tons":        map[string]string{"type": "number"},
														"scope3_tons":        map[string]string{"type": "number"},
														"data_quality_score": map[string]string{"type": "integer"},
														"calculation_method": map[string]string{"type": "string"},
													},
												},
											},
											"total":       map[string]string{"type": "integer"},
											"page":        map[string]string{"type": "integer"},
											"limit":       map[string]string{"type": "integer"},
											"total_pages": map[string]string{"type": "integer"},
										},
									},
								},
							},
						},
					},
				},
				"post": map[string]interface{}{
					"summary":     "Record emissions",
					"description": "Persist a computed emissions record for a reporting period",
					"responses": map[string]interface{}{
						"201": map[string]interface{}{"description": "Record created"},
						"400": map[string]interface{}{"description": "Validation failure"},
					},
				},
			},
			"/api/emissions/summary": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Emissions summary",
					"description": "Aggregated scope totals, percentage shares, and derived quality grade for a company and period",
					"parameters": []map[string]interface{}{
						{
							"name":        "company_id",
							"in":          "query",
							"description": "Company ID",
							"required":    true,
							"schema":      map[string]string{"type": "integer"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Summary with scope totals and percentages"},
					},
				},
			},
			"/api/emissions/sources/top": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Top emission sources",
					"description": "Emission sources ranked by contribution, descending, with percent of total",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Ranked source list"},
					},
				},
			},
			"/api/emissions/baseline": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Estimate baseline emissions",
					"description": "Compute and persist a baseline estimate from activity data; missing inputs are treated as zero",
					"responses": map[string]interface{}{
						"201": map[string]interface{}{"description": "Estimate persisted"},
						"400": map[string]interface{}{"description": "Invalid method or period"},
					},
				},
			},
			"/api/compliance": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Compliance evaluation",
					"description": "Evaluate the configured regulatory rule pack against a company's period summary",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Findings with the summary they were evaluated against"},
					},
				},
			},
			"/api/materials": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List material listings",
					"description": "Circular-economy marketplace listings with derived quality grades",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Paginated listing views"},
					},
				},
				"post": map[string]interface{}{
					"summary":     "Create material listing",
					"description": "Create a listing; the quality grade is derived from the score, never stored",
					"responses": map[string]interface{}{
						"201": map[string]interface{}{"description": "Listing created"},
					},
				},
			},
			"/api/offsets": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List offset projects",
					"description": "Carbon offset projects available for credit purchases",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Offset project list"},
					},
				},
			},
			"/api/onboarding/{flow}/start": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Start a wizard flow",
					"description": "Start a multi-step form session (signup, onboarding, or baseline)",
					"responses": map[string]interface{}{
						"201": map[string]interface{}{"description": "Session created at step 0"},
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
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"status": map[string]string{"type": "string"},
										},
									},
								},
							},
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
