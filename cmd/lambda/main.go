package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"cropsim-platform/internal/config"
	"cropsim-platform/internal/handlers"
	"cropsim-platform/internal/repository"
	"cropsim-platform/internal/services"
	"cropsim-platform/pkg/logging"
	"cropsim-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("cropsim-lambda", version, logging.ParseLevel(cfg.Logging.Level))
	logger.Info(context.Background(), "[STARTUP] Initializing Lambda handler", logging.Fields{
		"function":    os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
		"climate_url": cfg.Climate.BaseURL,
	})

	// Lambda exposes no scrape endpoint; the collector still backs the shared code paths
	metricsCollector := metrics.NewCollector("cropsim")

	climateRepo := repository.NewClimateRepository(repository.ClimateConfig{
		BaseURL:   cfg.Climate.BaseURL,
		Community: cfg.Climate.Community,
		Timeout:   cfg.Climate.Timeout,
	}, logger, metricsCollector)

	simulationService := services.NewSimulationService(climateRepo, logger, metricsCollector)
	simulationHandler := handlers.NewSimulationHandler(simulationService, logger, metricsCollector)

	lambda.Start(handlers.NewLambdaHandler(simulationHandler).Handle)
}
