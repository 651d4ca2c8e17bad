package models

import (
	"math"
	"time"
)

// DailyWeather represents one day of climate forcing for the crop model
type DailyWeather struct {
	Date          time.Time `json:"date"`
	MinTemp       float64   `json:"min_temp"`
	MaxTemp       float64   `json:"max_temp"`
	Precipitation float64   `json:"precipitation"`
	ReferenceET   float64   `json:"reference_et"`
}

// RawClimateRecord is a single day as returned by the climate API
type RawClimateRecord struct {
	Date      string  // YYYYMMDD
	MaxTemp   float64 // T2M_MAX, °C
	MinTemp   float64 // T2M_MIN, °C
	Precip    float64 // PRECTOTCORR, mm/day
	Radiation float64 // ALLSKY_SFC_SW_DWN, MJ/m²/day
}

// ToDailyWeather parses the date and derives reference evapotranspiration
func (r *RawClimateRecord) ToDailyWeather() (*DailyWeather, error) {
	date, err := time.Parse("20060102", r.Date)
	if err != nil {
		return nil, &ValidationError{
			Field:   "date",
			Value:   r.Date,
			Message: "invalid date format, expected YYYYMMDD",
		}
	}

	return &DailyWeather{
		Date:          date,
		MinTemp:       r.MinTemp,
		MaxTemp:       r.MaxTemp,
		Precipitation: r.Precip,
		ReferenceET:   ReferenceET(r.MaxTemp, r.MinTemp, r.Radiation),
	}, nil
}

// ReferenceET computes the simplified Hargreaves reference evapotranspiration
// (mm/day) from the daily temperature range and shortwave radiation.
// A negative temperature range is clamped to zero.
func ReferenceET(tmax, tmin, radiation float64) float64 {
	tmean := (tmax + tmin) / 2
	return 0.0023 * (tmean + 17.8) * math.Sqrt(math.Max(tmax-tmin, 0)) * (radiation * 0.408)
}
