package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"cropsim-platform/internal/config"
	"cropsim-platform/internal/models"
	"cropsim-platform/internal/repository"
	"cropsim-platform/internal/services"
	"cropsim-platform/pkg/logging"
	"cropsim-platform/pkg/metrics"
)

func main() {
	region := flag.Int("regiao", 60, "Region id")
	startDate := flag.String("dt_i", "", "Start and planting date (YYYY-MM-DD)")
	endDate := flag.String("dt_f", "", "End date (YYYY-MM-DD)")
	daily := flag.Bool("daily", true, "Daily growth output; false for weekly")
	water := flag.String("agua", models.DefaultWaterPreset, "Initial water content: FC, WP or SAT")
	crop := flag.String("crop", models.DefaultCrop, "Crop name")
	weatherFile := flag.String("weather-file", "", "Read weather from a tab separated file instead of NASA POWER")
	asJSON := flag.Bool("json", false, "Print the response body as JSON")
	listRegions := flag.Bool("regions", false, "List regions and exit")
	flag.Parse()

	if *listRegions {
		for _, r := range models.Regions() {
			fmt.Printf("%3d  %-32s %9.4f %9.4f  %s\n", r.ID, r.Name, r.Latitude, r.Longitude, r.Soil)
		}
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("cropsim-cli", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	logger.SetOutput(os.Stderr)
	metricsCollector := metrics.NewCollector("cropsim_cli")

	// the CLI shares the request validation of the API
	body, _ := json.Marshal(map[string]interface{}{
		"regiao": *region,
		"dt_i":   *startDate,
		"dt_f":   *endDate,
		"daily":  *daily,
		"agua":   *water,
		"crop":   *crop,
	})
	req, err := models.ParseSimulationRequest(body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid request: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	var climateRepo repository.ClimateRepository
	if *weatherFile != "" {
		climateRepo = repository.NewFileClimateRepository(*weatherFile, logger, metricsCollector)
	} else {
		climateRepo = repository.NewClimateRepository(repository.ClimateConfig{
			BaseURL:   cfg.Climate.BaseURL,
			Community: cfg.Climate.Community,
			Timeout:   cfg.Climate.Timeout,
		}, logger, metricsCollector)
	}

	ctx := context.Background()
	result, err := services.NewSimulationService(climateRepo, logger, metricsCollector).Simulate(ctx, req)
	if err != nil {
		logger.Error(ctx, "[SIM_ERROR] Simulation failed", logging.Fields{"region": req.Region}, err)
		fmt.Fprintf(os.Stderr, "Simulation failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
		return
	}

	interval := "day"
	if !req.Daily {
		interval = "week"
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("SIMULATION: %s, %s, %s to %s\n", result.Soil.Region, req.Crop,
		req.StartDate.Format(models.DateLayout), req.EndDate.Format(models.DateLayout))
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%6s  %10s  %10s\n", interval, "root (cm)", "biomass (t/ha)")
	for i, p := range result.Growth {
		fmt.Printf("%6d  %10.1f  %10.2f\n", i+1, p.RootDepthCm, p.BiomassTons)
	}
	if len(result.Growth) == 0 {
		fmt.Println("  no biomass produced")
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("SOIL WATER BALANCE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Infiltration (mm):      %.1f\n", result.Soil.Infiltration)
	fmt.Printf("Runoff (mm):            %.1f\n", result.Soil.Runoff)
	fmt.Printf("Deep percolation (mm):  %.1f\n", result.Soil.DeepPercolation)
	fmt.Printf("Water stress (mm):      %.1f\n", result.Soil.WaterStress)
	fmt.Printf("Water use efficiency:   %.2f\n", result.Soil.WaterUseEfficiency)
	fmt.Printf("Yield (t/ha):           %.2f\n", result.Soil.Yield)
}
