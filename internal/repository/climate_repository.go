package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"cropsim-platform/internal/models"
	"cropsim-platform/pkg/logging"
	"cropsim-platform/pkg/metrics"
)

// NASA POWER daily parameters used to drive the crop model
const (
	ParamMaxTemp   = "T2M_MAX"
	ParamMinTemp   = "T2M_MIN"
	ParamPrecip    = "PRECTOTCORR"
	ParamRadiation = "ALLSKY_SFC_SW_DWN"
)

var climateParameters = []string{ParamMaxTemp, ParamMinTemp, ParamPrecip, ParamRadiation}

const climateService = "nasa_power"

// ClimateRepository provides daily climate forcing for a location
type ClimateRepository interface {
	// GetDailyWeather returns one record per day from start to end inclusive, ordered by date
	GetDailyWeather(ctx context.Context, lat, lon float64, start, end time.Time) ([]*models.DailyWeather, error)
}

// ClimateConfig configures the NASA POWER client
type ClimateConfig struct {
	BaseURL   string
	Community string
	Timeout   time.Duration
}

// nasaPowerRepository implements ClimateRepository over the NASA POWER daily point API
type nasaPowerRepository struct {
	client    *http.Client
	baseURL   string
	community string
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// powerResponse is the subset of the POWER GeoJSON response we read
type powerResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
	Messages []string `json:"messages"`
}

// NewClimateRepository creates a NASA POWER backed climate repository
func NewClimateRepository(cfg ClimateConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ClimateRepository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &nasaPowerRepository{
		client:    &http.Client{Timeout: timeout},
		baseURL:   cfg.BaseURL,
		community: cfg.Community,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// GetDailyWeather fetches the four daily parameters and derives reference ET
func (r *nasaPowerRepository) GetDailyWeather(ctx context.Context, lat, lon float64, start, end time.Time) ([]*models.DailyWeather, error) {
	timer := r.metrics.NewTimer(r.metrics.ClimateFetchDuration)
	defer timer.ObserveDuration()

	reqURL, err := r.buildURL(lat, lon, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to build climate request: %w", err)
	}

	r.logger.Debug(ctx, "[CLIMATE_FETCH] Requesting daily climate data", logging.Fields{
		"lat":   lat,
		"lon":   lon,
		"start": start.Format(models.DateLayout),
		"end":   end.Format(models.DateLayout),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build climate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.metrics.RecordClimateError("transport")
		return nil, &models.UpstreamError{Service: climateService, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		r.metrics.RecordClimateError("status_" + strconv.Itoa(resp.StatusCode))
		return nil, &models.UpstreamError{
			Service:    climateService,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", http.StatusText(resp.StatusCode), strings.TrimSpace(string(snippet))),
		}
	}

	var payload powerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		r.metrics.RecordClimateError("decode")
		return nil, &models.UpstreamError{
			Service:    climateService,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}

	days, err := toDailyWeather(payload.Properties.Parameter)
	if err != nil {
		r.metrics.RecordClimateError("payload")
		return nil, &models.UpstreamError{Service: climateService, StatusCode: resp.StatusCode, Err: err}
	}

	r.metrics.ClimateDaysFetchedTotal.Add(float64(len(days)))
	r.logger.Info(ctx, "[CLIMATE_FETCH_COMPLETE] Daily climate data received", logging.Fields{
		"days":     len(days),
		"messages": len(payload.Messages),
	})

	return days, nil
}

func (r *nasaPowerRepository) buildURL(lat, lon float64, start, end time.Time) (string, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("parameters", strings.Join(climateParameters, ","))
	q.Set("community", r.community)
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("start", start.Format("20060102"))
	q.Set("end", end.Format("20060102"))
	q.Set("format", "JSON")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// toDailyWeather joins the per-parameter series on their date keys
func toDailyWeather(params map[string]map[string]float64) ([]*models.DailyWeather, error) {
	for _, name := range climateParameters {
		if _, ok := params[name]; !ok {
			return nil, fmt.Errorf("response is missing parameter %s", name)
		}
	}

	dates := make([]string, 0, len(params[ParamMaxTemp]))
	for date := range params[ParamMaxTemp] {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if len(dates) == 0 {
		return nil, errors.New("response contains no daily records")
	}

	days := make([]*models.DailyWeather, 0, len(dates))
	for _, date := range dates {
		raw := models.RawClimateRecord{Date: date, MaxTemp: params[ParamMaxTemp][date]}
		var ok [3]bool
		raw.MinTemp, ok[0] = params[ParamMinTemp][date]
		raw.Precip, ok[1] = params[ParamPrecip][date]
		raw.Radiation, ok[2] = params[ParamRadiation][date]
		if !ok[0] || !ok[1] || !ok[2] {
			return nil, fmt.Errorf("incomplete record for %s", date)
		}

		day, err := raw.ToDailyWeather()
		if err != nil {
			return nil, fmt.Errorf("record %s: %v", date, err)
		}
		days = append(days, day)
	}
	return days, nil
}
