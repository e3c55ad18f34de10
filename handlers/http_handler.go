// Package handlers provides HTTP request handlers for the forecast API
// endpoints: forecast retrieval, retraining requests, medicine listing,
// inventory advice and health checks.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/forecasting"
	"github.com/medismart/forecast-api/interfaces"
	"github.com/medismart/forecast-api/inventory"
	"github.com/medismart/forecast-api/logging"
	"github.com/medismart/forecast-api/simulation"
)

var serverStartTime = time.Now()

// HTTPHandlerImpl wires the forecast service and its supporting stores into
// HTTP endpoints.
type HTTPHandlerImpl struct {
	service   interfaces.ForecastService
	catalog   interfaces.Catalog
	validator interfaces.Validator
	models    interfaces.ModelStore
	advisor   *inventory.Advisor
	scheduler interfaces.Scheduler
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(service interfaces.ForecastService, catalog interfaces.Catalog,
	validator interfaces.Validator, models interfaces.ModelStore,
	advisor *inventory.Advisor, scheduler interfaces.Scheduler) *HTTPHandlerImpl {

	return &HTTPHandlerImpl{
		service:   service,
		catalog:   catalog,
		validator: validator,
		models:    models,
		advisor:   advisor,
		scheduler: scheduler,
	}
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]interface{}{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// respondWithDomainError maps pipeline errors onto HTTP status codes.
func (h *HTTPHandlerImpl) respondWithDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, forecasting.ErrModelNotFound):
		h.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, forecasting.ErrInsufficientData):
		h.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, simulation.ErrInvalidProfile):
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, forecasting.ErrTrainingFailed), errors.Is(err, forecasting.ErrPersistence):
		h.RespondWithError(w, http.StatusInternalServerError, err.Error())
	default:
		logging.Error("Unexpected error handling request", "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pairParams validates the medicineID path parameter and region query
// parameter shared by the forecast and advice endpoints.
func (h *HTTPHandlerImpl) pairParams(w http.ResponseWriter, r *http.Request) (uint, entities.Region, bool) {
	medicineID, err := h.validator.ValidateMedicineID(chi.URLParam(r, "medicineID"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return 0, "", false
	}

	region, err := h.validator.ValidateRegion(r.URL.Query().Get("region"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return 0, "", false
	}

	return medicineID, region, true
}

// GetForecast returns the 90-day forecast horizon for one pair
func (h *HTTPHandlerImpl) GetForecast(w http.ResponseWriter, r *http.Request) {
	medicineID, region, ok := h.pairParams(w, r)
	if !ok {
		return
	}

	points, err := h.service.GetForecast(medicineID, region)
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}

	medicine := h.catalog.GetMedicinesMap()[medicineID]

	h.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"medicine": medicine,
		"region":   region,
		"horizon":  len(points),
		"forecast": points,
	})
}

// retrainRequest is the optional JSON body of a retraining request.
type retrainRequest struct {
	MedicineID string `json:"medicine_id"`
	Region     string `json:"region"`
}

// RequestRetrain accepts a retraining request and dispatches it to the
// background. Scope narrows by medicine, region, or both; an empty body
// retrains every pair.
func (h *HTTPHandlerImpl) RequestRetrain(w http.ResponseWriter, r *http.Request) {
	// An empty body is a valid unscoped request.
	var req retrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var medicineID uint
	if req.MedicineID != "" {
		id, err := h.validator.ValidateMedicineID(req.MedicineID)
		if err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		medicineID = id
	}

	var region entities.Region
	if req.Region != "" {
		validRegion, err := h.validator.ValidateRegion(req.Region)
		if err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		region = validRegion
	}

	ack, err := h.service.RequestRetrain(medicineID, region)
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}

	h.RespondWithJSON(w, http.StatusAccepted, ack)
}

// ListMedicines returns the medicine catalog with the configured regions
func (h *HTTPHandlerImpl) ListMedicines(w http.ResponseWriter, r *http.Request) {
	regions := make([]entities.Region, 0)
	for _, cfg := range h.catalog.GetRegionConfigs() {
		regions = append(regions, cfg.Region)
	}

	h.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"medicines": h.catalog.GetMedicines(),
		"regions":   regions,
	})
}

// InventoryAdvice returns the stock position and reorder advice for one pair
func (h *HTTPHandlerImpl) InventoryAdvice(w http.ResponseWriter, r *http.Request) {
	medicineID, region, ok := h.pairParams(w, r)
	if !ok {
		return
	}

	advice, err := h.advisor.Advise(medicineID, region, time.Now())
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}

	h.RespondWithJSON(w, http.StatusOK, advice)
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string                 `json:"status"`
	UptimeSeconds float64                `json:"uptime_seconds"`
	UptimeHuman   string                 `json:"uptime_human"`
	Models        map[string]interface{} `json:"models"`
	System        map[string]interface{} `json:"system"`
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(serverStartTime)

	pairs := h.catalog.GetPairs()
	trained, err := h.models.TrainedPairs()
	if err != nil {
		logging.Warn("Could not list trained models for health check", "error", err)
	}

	// Healthy when every pair has a model, degraded while some are missing,
	// unhealthy when the catalog itself is empty.
	var healthStatus string
	var httpStatus int
	switch {
	case len(pairs) == 0:
		healthStatus = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case len(trained) < len(pairs):
		healthStatus = "degraded"
		httpStatus = http.StatusOK
	default:
		healthStatus = "healthy"
		httpStatus = http.StatusOK
	}

	response := HealthResponse{
		Status:        healthStatus,
		UptimeSeconds: uptime.Seconds(),
		UptimeHuman:   formatUptimeHuman(uptime),
		Models: map[string]interface{}{
			"api_version":    "1.0",
			"catalog_pairs":  len(pairs),
			"trained_pairs":  len(trained),
			"catalog_loaded": h.catalog.GetLastLoaded().Format(time.RFC3339),
			"next_retrain":   h.scheduler.NextRetrain().Format(time.RFC3339),
		},
		System: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}
