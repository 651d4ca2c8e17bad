package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"cropsim-platform/internal/models"
	"cropsim-platform/internal/repository"
	"cropsim-platform/pkg/cropmodel"
	"cropsim-platform/pkg/logging"
	"cropsim-platform/pkg/metrics"
)

// SimulationService runs crop simulations for a region and reshapes the results
type SimulationService struct {
	climate repository.ClimateRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSimulationService creates a new simulation service
func NewSimulationService(climate repository.ClimateRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SimulationService {
	return &SimulationService{
		climate: climate,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Simulate fetches climate data for the request's region and period, runs the
// crop model from planting on the start date, and summarizes growth and the
// soil water balance.
func (s *SimulationService) Simulate(ctx context.Context, req *models.SimulationRequest) (*models.SimulationResult, error) {
	timer := s.metrics.NewTimer(s.metrics.SimulationDuration.WithLabelValues(req.Crop))
	defer timer.ObserveDuration()

	result, err := s.simulate(ctx, req)
	if err != nil {
		s.metrics.RecordSimulation(req.Crop, outcome(err))
		return nil, err
	}

	s.metrics.RecordSimulation(req.Crop, "success")
	return result, nil
}

func (s *SimulationService) simulate(ctx context.Context, req *models.SimulationRequest) (*models.SimulationResult, error) {
	region, err := models.LookupRegion(req.Region)
	if err != nil {
		return nil, err
	}

	crop, err := cropmodel.NewCrop(req.Crop)
	if err != nil {
		return nil, &models.ValidationError{Field: "crop", Value: req.Crop, Message: err.Error()}
	}
	water, err := cropmodel.ParseInitialWaterContent(req.Water)
	if err != nil {
		return nil, &models.ValidationError{Field: "agua", Value: req.Water, Message: err.Error()}
	}
	soil, err := cropmodel.NewSoil(region.Soil)
	if err != nil {
		return nil, fmt.Errorf("region %d soil: %w", region.ID, err)
	}

	s.logger.Info(ctx, "[SIM_START] Starting crop simulation", logging.Fields{
		"region": region.ID,
		"name":   region.Name,
		"soil":   region.Soil,
		"crop":   req.Crop,
		"agua":   req.Water,
		"start":  req.StartDate.Format(models.DateLayout),
		"end":    req.EndDate.Format(models.DateLayout),
		"daily":  req.Daily,
	})

	weather, err := s.climate.GetDailyWeather(ctx, region.Latitude, region.Longitude, req.StartDate, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch climate data: %w", err)
	}

	model, err := cropmodel.New(cropmodel.Config{
		Start:        req.StartDate,
		End:          req.EndDate,
		PlantingDate: req.StartDate,
		Weather:      toWeatherDays(weather),
		Soil:         soil,
		Crop:         crop,
		InitialWater: water,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure crop model: %w", err)
	}

	out, err := model.Run()
	if err != nil {
		return nil, fmt.Errorf("crop model run failed: %w", err)
	}
	s.metrics.SimulatedDaysTotal.Add(float64(len(out.CropGrowth)))

	result := &models.SimulationResult{
		Growth: SummarizeGrowth(out, req.Daily),
		Soil:   SummarizeSoil(out, region.Name),
	}

	s.logger.Info(ctx, "[SIM_COMPLETE] Crop simulation finished", logging.Fields{
		"region":       region.ID,
		"days":         len(out.CropGrowth),
		"growth_rows":  len(result.Growth),
		"yield_t_ha":   result.Soil.Yield,
		"harvested":    len(out.FinalStats) > 0 && out.FinalStats[0].Harvested,
		"infiltration": result.Soil.Infiltration,
		"water_stress": result.Soil.WaterStress,
	})

	return result, nil
}

// SummarizeGrowth converts the crop growth table into root depth (cm) and
// biomass (t/ha) points, truncated at the last day with positive biomass.
// Weekly output keeps the last value of each 7-day bucket.
func SummarizeGrowth(out *cropmodel.Outputs, daily bool) []models.GrowthPoint {
	fim := out.LastBiomassIndex()
	if fim < 0 {
		return []models.GrowthPoint{}
	}

	point := func(rec cropmodel.CropGrowthRecord) models.GrowthPoint {
		return models.GrowthPoint{
			RootDepthCm: round(rec.ZRoot*100, 1),
			BiomassTons: round(rec.Biomass/1000, 2),
		}
	}

	if daily {
		points := make([]models.GrowthPoint, 0, fim+1)
		for _, rec := range out.CropGrowth[:fim+1] {
			points = append(points, point(rec))
		}
		return points
	}

	weeks := fim/7 + 1
	points := make([]models.GrowthPoint, 0, weeks)
	for week := 0; week < weeks; week++ {
		last := min((week+1)*7, len(out.CropGrowth)) - 1
		points = append(points, point(out.CropGrowth[last]))
	}
	return points
}

// SummarizeSoil totals the water flux table over the whole simulation
func SummarizeSoil(out *cropmodel.Outputs, regionName string) models.SoilBalance {
	totals := out.Totals()
	yield := out.Yield()

	efficiency := 0.0
	if totals.Tr > 0 {
		efficiency = round(yield/totals.Tr*100, 2)
	}

	return models.SoilBalance{
		Region:             regionName,
		Infiltration:       round(totals.Infl, 1),
		Runoff:             round(totals.Runoff, 1),
		DeepPercolation:    round(totals.DeepPerc, 1),
		WaterStress:        round(totals.TrPot-totals.Tr, 1),
		WaterUseEfficiency: efficiency,
		Yield:              round(yield, 2),
	}
}

func toWeatherDays(days []*models.DailyWeather) []cropmodel.WeatherDay {
	out := make([]cropmodel.WeatherDay, 0, len(days))
	for _, d := range days {
		out = append(out, cropmodel.WeatherDay{
			Date:          d.Date,
			MinTemp:       d.MinTemp,
			MaxTemp:       d.MaxTemp,
			Precipitation: d.Precipitation,
			ReferenceET:   d.ReferenceET,
		})
	}
	return out
}

func outcome(err error) string {
	switch {
	case models.IsValidationError(err):
		return "invalid"
	case models.IsUpstreamError(err):
		return "upstream_error"
	case errors.Is(err, cropmodel.ErrMissingWeather):
		return "incomplete_weather"
	default:
		return "error"
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
