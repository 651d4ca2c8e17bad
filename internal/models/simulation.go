package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the accepted request date format
const DateLayout = "2006-01-02"

// Request defaults
const (
	DefaultWaterPreset = "FC"
	DefaultCrop        = "Maize"
)

// SimulationRequest is a validated simulation request
type SimulationRequest struct {
	Region    int
	StartDate time.Time
	EndDate   time.Time
	Daily     bool
	Water     string
	Crop      string
}

// Days returns the number of simulated days, both ends inclusive
func (r *SimulationRequest) Days() int {
	return int(r.EndDate.Sub(r.StartDate).Hours()/24) + 1
}

// rawSimulationRequest mirrors the JSON body before validation
type rawSimulationRequest struct {
	Region    json.RawMessage `json:"regiao"`
	StartDate *string         `json:"dt_i"`
	EndDate   *string         `json:"dt_f"`
	Daily     *bool           `json:"daily"`
	Water     *string         `json:"agua"`
	Crop      *string         `json:"crop"`
}

// ParseSimulationRequest decodes and validates a JSON request body.
// Region existence, crop and water preset are checked by the simulation service.
func ParseSimulationRequest(body []byte) (*SimulationRequest, error) {
	var raw rawSimulationRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ValidationError{
			Field:   "body",
			Message: fmt.Sprintf("invalid JSON body: %v", err),
		}
	}

	trimmed := bytes.TrimSpace(raw.Region)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &ValidationError{
			Field:   "regiao",
			Message: `parameter "regiao" is required`,
		}
	}

	if raw.StartDate == nil || raw.EndDate == nil || *raw.StartDate == "" || *raw.EndDate == "" {
		return nil, &ValidationError{
			Field:   "dates",
			Message: `parameters "dt_i" and "dt_f" are required`,
		}
	}

	start, errStart := time.Parse(DateLayout, *raw.StartDate)
	end, errEnd := time.Parse(DateLayout, *raw.EndDate)
	if errStart != nil || errEnd != nil {
		return nil, &ValidationError{
			Field:   "dates",
			Value:   *raw.StartDate + "/" + *raw.EndDate,
			Message: "invalid date format, use YYYY-MM-DD",
		}
	}

	if end.Before(start) {
		return nil, &ValidationError{
			Field:   "dates",
			Value:   *raw.StartDate + "/" + *raw.EndDate,
			Message: `"dt_i" must not be after "dt_f"`,
		}
	}

	region, err := parseRegionID(trimmed)
	if err != nil {
		return nil, err
	}

	req := &SimulationRequest{
		Region:    region,
		StartDate: start,
		EndDate:   end,
		Daily:     true,
		Water:     DefaultWaterPreset,
		Crop:      DefaultCrop,
	}
	if raw.Daily != nil {
		req.Daily = *raw.Daily
	}
	if raw.Water != nil && *raw.Water != "" {
		req.Water = *raw.Water
	}
	if raw.Crop != nil && *raw.Crop != "" {
		req.Crop = *raw.Crop
	}

	return req, nil
}

// parseRegionID accepts an integral number (60 or 60.0) or a string holding
// an integer
func parseRegionID(raw json.RawMessage) (int, error) {
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		if id, err := strconv.Atoi(number.String()); err == nil {
			return id, nil
		}
		if f, err := number.Float64(); err == nil && math.Trunc(f) == f && math.Abs(f) <= math.MaxInt32 {
			return int(f), nil
		}
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if id, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
			return id, nil
		}
	}

	return 0, &ValidationError{
		Field:   "regiao",
		Value:   string(raw),
		Message: fmt.Sprintf("invalid region %s, expected an integer", string(raw)),
	}
}

// GrowthPoint is one daily or weekly entry of the growth summary
type GrowthPoint struct {
	RootDepthCm float64 `json:"alt_cm"`
	BiomassTons float64 `json:"bio_ton"`
}

// SoilBalance summarizes the water balance over the simulated period
type SoilBalance struct {
	Region             string  `json:"regiao"`
	Infiltration       float64 `json:"infilt"`
	Runoff             float64 `json:"escoa"`
	DeepPercolation    float64 `json:"percol"`
	WaterStress        float64 `json:"stress"`
	WaterUseEfficiency float64 `json:"efic"`
	Yield              float64 `json:"prod"`
}

// SimulationResult is the success payload returned to clients
type SimulationResult struct {
	Growth []GrowthPoint `json:"crescimento"`
	Soil   SoilBalance   `json:"solo"`
}
