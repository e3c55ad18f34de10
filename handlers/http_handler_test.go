package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/forecasting"
	"github.com/medismart/forecast-api/interfaces"
	"github.com/medismart/forecast-api/inventory"
	"github.com/medismart/forecast-api/validation"
)

// Hand-rolled stubs for handler dependencies

type stubService struct {
	points      []entities.ForecastPoint
	forecastErr error
	ack         *entities.RetrainAck
	retrainErr  error

	lastMedicineID uint
	lastRegion     entities.Region
}

func (s *stubService) GetForecast(medicineID uint, region entities.Region) ([]entities.ForecastPoint, error) {
	s.lastMedicineID = medicineID
	s.lastRegion = region
	return s.points, s.forecastErr
}

func (s *stubService) RequestRetrain(medicineID uint, region entities.Region) (*entities.RetrainAck, error) {
	s.lastMedicineID = medicineID
	s.lastRegion = region
	return s.ack, s.retrainErr
}

type stubCatalog struct {
	pairs []interfaces.Pair
}

func (s *stubCatalog) GetMedicines() []entities.Medicine {
	return []entities.Medicine{
		{ID: 1, Name: "Paracetamol", Category: "Pain Relief", Unit: "tablets"},
		{ID: 2, Name: "Ibuprofen", Category: "Pain Relief", Unit: "tablets"},
	}
}

func (s *stubCatalog) GetMedicinesMap() map[uint]entities.Medicine {
	m := make(map[uint]entities.Medicine)
	for _, med := range s.GetMedicines() {
		m[med.ID] = med
	}
	return m
}

func (s *stubCatalog) GetRegionConfigs() []entities.RegionConfig {
	return []entities.RegionConfig{
		{Region: entities.RegionDelhi},
		{Region: entities.RegionKolkata},
	}
}

func (s *stubCatalog) GetPairs() []interfaces.Pair { return s.pairs }
func (s *stubCatalog) GetLastLoaded() time.Time    { return time.Now() }

type stubModelStore struct {
	trained []interfaces.Pair
}

func (s *stubModelStore) Save(*entities.TrainedModel) error { return nil }

func (s *stubModelStore) Load(entities.Region, uint) (*entities.TrainedModel, error) {
	return nil, forecasting.ErrModelNotFound
}

func (s *stubModelStore) Metadata(entities.Region, uint) (*entities.ModelMetadata, error) {
	return nil, forecasting.ErrModelNotFound
}

func (s *stubModelStore) TrainedPairs() ([]interfaces.Pair, error) {
	return s.trained, nil
}

type stubUsageStore struct {
	points []entities.UsagePoint
}

func (s *stubUsageStore) AppendUsage([]entities.UsagePoint) error { return nil }

func (s *stubUsageStore) UsageSeries(uint, entities.Region) ([]entities.UsagePoint, error) {
	return s.points, nil
}

func (s *stubUsageStore) HasUsage(uint, entities.Region) (bool, error) {
	return len(s.points) > 0, nil
}

type stubBatchStore struct {
	batches []entities.Batch
}

func (s *stubBatchStore) SaveBatches([]entities.Batch) error { return nil }

func (s *stubBatchStore) BatchesFor(uint, entities.Region) ([]entities.Batch, error) {
	return s.batches, nil
}

type stubScheduler struct {
	next time.Time
}

func (s *stubScheduler) Start() error           { return nil }
func (s *stubScheduler) Stop()                  {}
func (s *stubScheduler) NextRetrain() time.Time { return s.next }

type handlerFixture struct {
	service *stubService
	catalog *stubCatalog
	models  *stubModelStore
	usage   *stubUsageStore
	batches *stubBatchStore
	sched   *stubScheduler
	router  chi.Router
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		service: &stubService{},
		catalog: &stubCatalog{pairs: []interfaces.Pair{
			{MedicineID: 1, Region: entities.RegionDelhi},
			{MedicineID: 2, Region: entities.RegionDelhi},
		}},
		models:  &stubModelStore{},
		usage:   &stubUsageStore{},
		batches: &stubBatchStore{},
		sched:   &stubScheduler{next: time.Date(2026, time.September, 6, 2, 0, 0, 0, time.UTC)},
	}

	advisor := inventory.NewAdvisor(f.usage, f.batches)
	h := NewHTTPHandler(f.service, f.catalog, validation.NewValidator(f.catalog), f.models, advisor, f.sched)

	r := chi.NewRouter()
	r.Get("/medicines", h.ListMedicines)
	r.Get("/medicines/{medicineID}/advice", h.InventoryAdvice)
	r.Get("/forecasts/{medicineID}", h.GetForecast)
	r.Post("/retrain", h.RequestRetrain)
	r.Get("/health", h.HealthCheck)
	f.router = r

	return f
}

func (f *handlerFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not valid JSON: %v\n%s", err, rec.Body.String())
	}
	return payload
}

func TestGetForecastReturnsHorizon(t *testing.T) {
	f := newHandlerFixture()
	now := time.Now()
	f.service.points = []entities.ForecastPoint{
		{MedicineID: 1, Region: entities.RegionDelhi, Date: now, PredictedDemand: 120, ConfidenceWidth: 14.2},
		{MedicineID: 1, Region: entities.RegionDelhi, Date: now.AddDate(0, 0, 1), PredictedDemand: 118, ConfidenceWidth: 14.4},
	}

	rec := f.do(t, http.MethodGet, "/forecasts/1?region=delhi", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("got content type %q", ct)
	}

	payload := decodeBody(t, rec)
	if payload["horizon"].(float64) != 2 {
		t.Errorf("got horizon %v, want 2", payload["horizon"])
	}
	if payload["region"] != "delhi" {
		t.Errorf("got region %v, want delhi", payload["region"])
	}
	medicine := payload["medicine"].(map[string]interface{})
	if medicine["name"] != "Paracetamol" {
		t.Errorf("got medicine %v, want Paracetamol", medicine["name"])
	}

	if f.service.lastMedicineID != 1 || f.service.lastRegion != entities.RegionDelhi {
		t.Errorf("service called with (%d, %s)", f.service.lastMedicineID, f.service.lastRegion)
	}
}

func TestGetForecastRejectsBadInput(t *testing.T) {
	f := newHandlerFixture()

	cases := map[string]string{
		"bad medicine id": "/forecasts/abc?region=delhi",
		"unknown id":      "/forecasts/99?region=delhi",
		"missing region":  "/forecasts/1",
		"unknown region":  "/forecasts/1?region=mumbai",
	}

	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, target, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("got status %d, want 400", rec.Code)
			}
		})
	}
}

func TestGetForecastMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"model missing", forecasting.ErrModelNotFound, http.StatusNotFound},
		{"too little history", forecasting.ErrInsufficientData, http.StatusUnprocessableEntity},
		{"training failed", forecasting.ErrTrainingFailed, http.StatusInternalServerError},
		{"persistence failed", forecasting.ErrPersistence, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newHandlerFixture()
			f.service.forecastErr = tc.err

			rec := f.do(t, http.MethodGet, "/forecasts/1?region=delhi", "")
			if rec.Code != tc.want {
				t.Errorf("got status %d, want %d", rec.Code, tc.want)
			}

			payload := decodeBody(t, rec)
			if payload["code"].(float64) != float64(tc.want) {
				t.Errorf("body code %v, want %d", payload["code"], tc.want)
			}
		})
	}
}

func TestRequestRetrainAcceptsEmptyBody(t *testing.T) {
	f := newHandlerFixture()
	f.service.ack = &entities.RetrainAck{JobID: "job-1", Pairs: 2, RequestedAt: time.Now()}

	rec := f.do(t, http.MethodPost, "/retrain", "")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want 202: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["job_id"] != "job-1" {
		t.Errorf("got job id %v, want job-1", payload["job_id"])
	}
	if payload["pairs"].(float64) != 2 {
		t.Errorf("got pairs %v, want 2", payload["pairs"])
	}
	if f.service.lastMedicineID != 0 || f.service.lastRegion != "" {
		t.Errorf("empty body did not stay unscoped: (%d, %q)", f.service.lastMedicineID, f.service.lastRegion)
	}
}

func TestRequestRetrainScopesByBody(t *testing.T) {
	f := newHandlerFixture()
	f.service.ack = &entities.RetrainAck{JobID: "job-2", Pairs: 1, RequestedAt: time.Now()}

	rec := f.do(t, http.MethodPost, "/retrain", `{"medicine_id": "2", "region": "kolkata"}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if f.service.lastMedicineID != 2 || f.service.lastRegion != entities.RegionKolkata {
		t.Errorf("scope not forwarded: (%d, %q)", f.service.lastMedicineID, f.service.lastRegion)
	}
}

func TestRequestRetrainRejectsBadBodies(t *testing.T) {
	f := newHandlerFixture()
	f.service.ack = &entities.RetrainAck{}

	cases := map[string]string{
		"malformed json":   `{"medicine_id":`,
		"unknown medicine": `{"medicine_id": "99"}`,
		"unknown region":   `{"region": "mumbai"}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/retrain", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("got status %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListMedicines(t *testing.T) {
	f := newHandlerFixture()

	rec := f.do(t, http.MethodGet, "/medicines", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	payload := decodeBody(t, rec)

	medicines := payload["medicines"].([]interface{})
	if len(medicines) != 2 {
		t.Errorf("got %d medicines, want 2", len(medicines))
	}
	regions := payload["regions"].([]interface{})
	if len(regions) != 2 {
		t.Errorf("got %d regions, want 2", len(regions))
	}
}

func TestInventoryAdvice(t *testing.T) {
	f := newHandlerFixture()
	now := time.Now()
	for i := 0; i < 90; i++ {
		f.usage.points = append(f.usage.points, entities.UsagePoint{
			MedicineID:   1,
			Region:       entities.RegionDelhi,
			Date:         now.AddDate(0, 0, i-90),
			QuantityUsed: 100,
		})
	}
	f.batches.batches = []entities.Batch{
		{ID: "b1", MedicineID: 1, Region: entities.RegionDelhi, Quantity: 5000, ExpiryDate: now.AddDate(1, 0, 0)},
	}

	rec := f.do(t, http.MethodGet, "/medicines/1/advice?region=delhi", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["stock_on_hand"].(float64) != 5000 {
		t.Errorf("got stock %v, want 5000", payload["stock_on_hand"])
	}
	if _, ok := payload["reorder_point"]; !ok {
		t.Error("reorder_point missing from advice")
	}
}

func TestInventoryAdviceRequiresHistory(t *testing.T) {
	f := newHandlerFixture()

	rec := f.do(t, http.MethodGet, "/medicines/1/advice?region=delhi", "")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("got status %d, want 422", rec.Code)
	}
}

func TestHealthCheckStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		pairs      []interfaces.Pair
		trained    []interfaces.Pair
		wantStatus string
		wantCode   int
	}{
		{
			name:       "empty catalog is unhealthy",
			wantStatus: "unhealthy",
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name:       "missing models degrade",
			pairs:      []interfaces.Pair{{MedicineID: 1, Region: entities.RegionDelhi}, {MedicineID: 2, Region: entities.RegionDelhi}},
			trained:    []interfaces.Pair{{MedicineID: 1, Region: entities.RegionDelhi}},
			wantStatus: "degraded",
			wantCode:   http.StatusOK,
		},
		{
			name:       "fully trained is healthy",
			pairs:      []interfaces.Pair{{MedicineID: 1, Region: entities.RegionDelhi}},
			trained:    []interfaces.Pair{{MedicineID: 1, Region: entities.RegionDelhi}},
			wantStatus: "healthy",
			wantCode:   http.StatusOK,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newHandlerFixture()
			f.catalog.pairs = tc.pairs
			f.models.trained = tc.trained

			rec := f.do(t, http.MethodGet, "/health", "")

			if rec.Code != tc.wantCode {
				t.Errorf("got status %d, want %d", rec.Code, tc.wantCode)
			}
			payload := decodeBody(t, rec)
			if payload["status"] != tc.wantStatus {
				t.Errorf("got status %v, want %s", payload["status"], tc.wantStatus)
			}

			models := payload["models"].(map[string]interface{})
			if models["catalog_pairs"].(float64) != float64(len(tc.pairs)) {
				t.Errorf("got catalog_pairs %v, want %d", models["catalog_pairs"], len(tc.pairs))
			}

			// The next run comes from the scheduler, not a parallel estimate.
			if got := models["next_retrain"]; got != f.sched.next.Format(time.RFC3339) {
				t.Errorf("got next_retrain %v, want %s", got, f.sched.next.Format(time.RFC3339))
			}
		})
	}
}

func TestFormatUptimeHuman(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m 30s"},
		{time.Hour + 5*time.Minute, "1h 5m 0s"},
		{25*time.Hour + time.Minute, "1d 1h 1m 0s"},
	}

	for _, tc := range cases {
		if got := formatUptimeHuman(tc.d); got != tc.want {
			t.Errorf("formatUptimeHuman(%s) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
