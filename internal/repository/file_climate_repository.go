package repository

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cropsim-platform/internal/models"
	"cropsim-platform/pkg/logging"
	"cropsim-platform/pkg/metrics"
)

// FileLoadResult contains per-file parsing statistics
type FileLoadResult struct {
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	Errors            []string
}

// fileClimateRepository serves daily weather from a local file instead of the
// NASA POWER API. Lines are tab separated:
//
//	YYYYMMDD	T2M_MAX	T2M_MIN	PRECTOTCORR	ALLSKY_SFC_SW_DWN
//
// Blank lines and lines starting with '#' are ignored.
type fileClimateRepository struct {
	path    string
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewFileClimateRepository creates a climate repository backed by a weather file
func NewFileClimateRepository(path string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ClimateRepository {
	return &fileClimateRepository{
		path:    path,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetDailyWeather returns the file's records between start and end inclusive.
// Location is ignored; the file describes a single site.
func (r *fileClimateRepository) GetDailyWeather(ctx context.Context, lat, lon float64, start, end time.Time) ([]*models.DailyWeather, error) {
	days, result, err := r.load()
	if err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "[CLIMATE_FILE_LOAD] Weather file parsed", logging.Fields{
		"file_path":          r.path,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
	})
	for i, msg := range result.Errors {
		if i >= 10 {
			break
		}
		r.logger.Warn(ctx, "[CLIMATE_FILE_PARSE_ERROR] Skipped weather line", logging.Fields{"reason": msg})
	}

	selected := make([]*models.DailyWeather, 0, len(days))
	for _, day := range days {
		if day.Date.Before(start) || day.Date.After(end) {
			continue
		}
		selected = append(selected, day)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("weather file %s has no records between %s and %s",
			r.path, start.Format(models.DateLayout), end.Format(models.DateLayout))
	}

	r.metrics.ClimateDaysFetchedTotal.Add(float64(len(selected)))
	return selected, nil
}

func (r *fileClimateRepository) load() ([]*models.DailyWeather, *FileLoadResult, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open weather file: %w", err)
	}
	defer file.Close()

	result := &FileLoadResult{}
	var days []*models.DailyWeather

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		result.TotalRecords++

		record, err := parseWeatherLine(line)
		if err != nil {
			result.FailedRecords++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNo, err))
			continue
		}

		day, err := record.ToDailyWeather()
		if err != nil {
			result.FailedRecords++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNo, err))
			continue
		}
		days = append(days, day)
		result.SuccessfulRecords++
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("error reading weather file: %w", err)
	}
	return days, result, nil
}

// parseWeatherLine parses a single line from a weather file
func parseWeatherLine(line string) (*models.RawClimateRecord, error) {
	parts := strings.Split(line, "\t")
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid line format: expected 5 fields, got %d", len(parts))
	}

	values := make([]float64, 4)
	for i, name := range climateParameters {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		values[i] = v
	}

	return &models.RawClimateRecord{
		Date:      strings.TrimSpace(parts[0]),
		MaxTemp:   values[0],
		MinTemp:   values[1],
		Precip:    values[2],
		Radiation: values[3],
	}, nil
}
