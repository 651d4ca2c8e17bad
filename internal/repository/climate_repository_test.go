package repository

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cropsim-platform/internal/models"
	"cropsim-platform/pkg/logging"
	"cropsim-platform/pkg/metrics"
)

const powerPayload = `{
  "type": "Feature",
  "geometry": {"type": "Point", "coordinates": [151.9507, -27.5598, 400.0]},
  "properties": {
    "parameter": {
      "T2M_MAX": {"20240102": 28.0, "20240101": 30.0},
      "T2M_MIN": {"20240101": 18.0, "20240102": 19.0},
      "PRECTOTCORR": {"20240101": 0.0, "20240102": 12.5},
      "ALLSKY_SFC_SW_DWN": {"20240101": 25.0, "20240102": 20.0}
    }
  },
  "messages": []
}`

func newTestRepository(t *testing.T, handler http.HandlerFunc) ClimateRepository {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollectorWithRegisterer("test", prometheus.NewRegistry())

	return NewClimateRepository(ClimateConfig{
		BaseURL:   server.URL + "/api/temporal/daily/point",
		Community: "AG",
		Timeout:   2 * time.Second,
	}, logger, collector)
}

func TestClimateRepository_GetDailyWeather(t *testing.T) {
	var query map[string]string
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, powerPayload)
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	days, err := repo.GetDailyWeather(context.Background(), -27.5598, 151.9507, start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GetDailyWeather() error = %v", err)
	}

	wantQuery := map[string]string{
		"parameters": "T2M_MAX,T2M_MIN,PRECTOTCORR,ALLSKY_SFC_SW_DWN",
		"community":  "AG",
		"latitude":   "-27.5598",
		"longitude":  "151.9507",
		"start":      "20240101",
		"end":        "20240102",
		"format":     "JSON",
	}
	for k, v := range wantQuery {
		if query[k] != v {
			t.Errorf("query %s = %q, want %q", k, query[k], v)
		}
	}

	if len(days) != 2 {
		t.Fatalf("len(days) = %d, want 2", len(days))
	}
	if !days[0].Date.Equal(start) || !days[1].Date.Equal(start.AddDate(0, 0, 1)) {
		t.Errorf("days not ordered by date: %v, %v", days[0].Date, days[1].Date)
	}
	if days[1].Precipitation != 12.5 || days[1].MaxTemp != 28 || days[1].MinTemp != 19 {
		t.Errorf("unexpected second day: %+v", days[1])
	}

	wantET0 := 0.0023 * (24 + 17.8) * math.Sqrt(12) * (25 * 0.408)
	if math.Abs(days[0].ReferenceET-wantET0) > 1e-9 {
		t.Errorf("ReferenceET = %v, want %v", days[0].ReferenceET, wantET0)
	}
}

func TestClimateRepository_Errors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "maintenance", http.StatusServiceUnavailable)
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"messages":["start date is after end date"]}`, http.StatusUnprocessableEntity)
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, "<html>")
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "missing parameter",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"properties":{"parameter":{"T2M_MAX":{"20240101":30}}}}`)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "incomplete day",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"properties":{"parameter":{
					"T2M_MAX":{"20240101":30},"T2M_MIN":{},
					"PRECTOTCORR":{"20240101":0},"ALLSKY_SFC_SW_DWN":{"20240101":20}}}}`)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "bad date key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"properties":{"parameter":{
					"T2M_MAX":{"2024-1-1":30},"T2M_MIN":{"2024-1-1":10},
					"PRECTOTCORR":{"2024-1-1":0},"ALLSKY_SFC_SW_DWN":{"2024-1-1":20}}}}`)
			},
			wantStatus: http.StatusOK,
		},
	}

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepository(t, tt.handler)
			_, err := repo.GetDailyWeather(context.Background(), 0, 0, day, day)

			var upstream *models.UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("error = %v, want UpstreamError", err)
			}
			if upstream.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", upstream.StatusCode, tt.wantStatus)
			}
			if models.IsValidationError(err) {
				t.Error("upstream failure must not classify as a validation error")
			}
		})
	}
}

func TestClimateRepository_Timeout(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.GetDailyWeather(ctx, 0, 0, day, day)

	var upstream *models.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want UpstreamError", err)
	}
	if !upstream.IsTransient() {
		t.Error("transport failures should be transient")
	}
}
