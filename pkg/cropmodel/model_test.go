package cropmodel

import (
	"errors"
	"math"
	"testing"
	"time"
)

var seasonStart = time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC)

// steadyWeather returns n days of warm weather with rain every third day
func steadyWeather(n int, rain float64) []WeatherDay {
	days := make([]WeatherDay, n)
	for i := range days {
		precip := 0.0
		if i%3 == 0 {
			precip = rain
		}
		days[i] = WeatherDay{
			Date:          seasonStart.AddDate(0, 0, i),
			MinTemp:       18,
			MaxTemp:       30,
			Precipitation: precip,
			ReferenceET:   5,
		}
	}
	return days
}

func mustModel(t *testing.T, cropName, texture string, water InitialWaterContent, weather []WeatherDay) *Model {
	t.Helper()
	soil, err := NewSoil(texture)
	if err != nil {
		t.Fatalf("NewSoil(%q) error = %v", texture, err)
	}
	crop, err := NewCrop(cropName)
	if err != nil {
		t.Fatalf("NewCrop(%q) error = %v", cropName, err)
	}
	m, err := New(Config{
		Start:        weather[0].Date,
		End:          weather[len(weather)-1].Date,
		Weather:      weather,
		Soil:         soil,
		Crop:         crop,
		InitialWater: water,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestModel_FullSeasonReachesMaturity(t *testing.T) {
	weather := steadyWeather(200, 8)
	out, err := mustModel(t, "Maize", "Clay", FieldCapacity, weather).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(out.CropGrowth) != 200 || len(out.WaterFlux) != 200 {
		t.Fatalf("tables have %d/%d rows, want 200", len(out.CropGrowth), len(out.WaterFlux))
	}
	if len(out.FinalStats) != 1 || !out.FinalStats[0].Harvested {
		t.Fatalf("expected one harvested season, got %+v", out.FinalStats)
	}

	// 16 GDD per day: maturity (1670) is reached after 105 days
	stat := out.FinalStats[0]
	if stat.HarvestStep != 104 {
		t.Errorf("HarvestStep = %d, want 104", stat.HarvestStep)
	}
	if got := out.LastBiomassIndex(); got != stat.HarvestStep {
		t.Errorf("LastBiomassIndex() = %d, want %d", got, stat.HarvestStep)
	}
	if stat.DryYield <= 0 || stat.DryYield > stat.YieldPotential {
		t.Errorf("DryYield = %v, YieldPotential = %v", stat.DryYield, stat.YieldPotential)
	}
	if out.Yield() != stat.DryYield {
		t.Errorf("Yield() = %v, want %v", out.Yield(), stat.DryYield)
	}

	crop, _ := NewCrop("Maize")
	prev := 0.0
	for i, g := range out.CropGrowth {
		if i <= stat.HarvestStep {
			if g.Biomass < prev {
				t.Fatalf("biomass decreased on day %d: %v < %v", i, g.Biomass, prev)
			}
			prev = g.Biomass
			if g.ZRoot < crop.MinRootDepth || g.ZRoot > crop.MaxRootDepth {
				t.Fatalf("day %d root depth %v out of bounds", i, g.ZRoot)
			}
			if g.CanopyCover < 0 || g.CanopyCover > crop.CCx {
				t.Fatalf("day %d canopy %v out of bounds", i, g.CanopyCover)
			}
			continue
		}
		if g.Biomass != 0 || g.ZRoot != 0 {
			t.Fatalf("day %d after harvest has biomass %v root %v", i, g.Biomass, g.ZRoot)
		}
	}
}

// assertWaterConserved checks the daily fluxes against the stored profile water
func assertWaterConserved(t *testing.T, texture string, water InitialWaterContent, weather []WeatherDay, out *Outputs) {
	t.Helper()
	soil, _ := NewSoil(texture)
	stored := waterAt(water.theta(soil), soil.Depth)
	for i, f := range out.WaterFlux {
		precip := weather[i].Precipitation
		if math.Abs(f.Infl+f.Runoff-precip) > 1e-9 {
			t.Fatalf("day %d: infl %v + runoff %v != precip %v", i, f.Infl, f.Runoff, precip)
		}
		for _, v := range []float64{f.Infl, f.Runoff, f.DeepPerc, f.Es, f.Tr, f.TrPot} {
			if v < 0 {
				t.Fatalf("day %d: negative flux %+v", i, f)
			}
		}
		stored += f.Infl - f.DeepPerc - f.Es - f.Tr
		if math.Abs(stored-f.ProfileWater) > 1e-6 {
			t.Fatalf("day %d: stored %v, profile %v", i, stored, f.ProfileWater)
		}
	}
}

func TestModel_WaterBalanceIsConserved(t *testing.T) {
	for _, texture := range []string{"Sand", "SiltLoam", "Clay"} {
		for _, water := range []InitialWaterContent{FieldCapacity, WiltingPoint, Saturation} {
			t.Run(texture+"/"+string(water), func(t *testing.T) {
				weather := steadyWeather(150, 40)
				out, err := mustModel(t, "Maize", texture, water, weather).Run()
				if err != nil {
					t.Fatalf("Run() error = %v", err)
				}
				assertWaterConserved(t, texture, water, weather, out)
			})
		}
	}
}

func TestModel_NegativeReferenceETAddsNoWater(t *testing.T) {
	weather := steadyWeather(61, 8)
	clean := steadyWeather(61, 8)
	for i := 51; i < len(weather); i++ {
		weather[i].ReferenceET = -250
		clean[i].ReferenceET = 0
	}

	out, err := mustModel(t, "Maize", "Clay", FieldCapacity, weather).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	assertWaterConserved(t, "Clay", FieldCapacity, weather, out)

	want, err := mustModel(t, "Maize", "Clay", FieldCapacity, clean).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got, exp := out.Totals(), want.Totals()
	if got.DeepPerc != exp.DeepPerc || got.Infl != exp.Infl || got.Es != exp.Es || got.Tr != exp.Tr {
		t.Errorf("negative ET0 totals %+v, want %+v as for zero ET0", got, exp)
	}
}

func TestModel_DryStartWithoutRainProducesNoBiomass(t *testing.T) {
	weather := steadyWeather(60, 0)
	out, err := mustModel(t, "Maize", "Clay", WiltingPoint, weather).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := out.LastBiomassIndex(); got != -1 {
		t.Errorf("LastBiomassIndex() = %d, want -1", got)
	}
	totals := out.Totals()
	if totals.Tr != 0 {
		t.Errorf("Tr = %v, want 0", totals.Tr)
	}
	if totals.TrPot <= 0 {
		t.Errorf("TrPot = %v, want > 0 once canopy emerges", totals.TrPot)
	}
}

func TestModel_ShortSeasonNotHarvested(t *testing.T) {
	weather := steadyWeather(30, 8)
	out, err := mustModel(t, "Wheat", "Loam", FieldCapacity, weather).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.FinalStats) != 1 {
		t.Fatalf("len(FinalStats) = %d, want 1", len(out.FinalStats))
	}
	stat := out.FinalStats[0]
	if stat.Harvested || stat.HarvestStep != -1 {
		t.Errorf("unexpected harvest: %+v", stat)
	}
	if out.Yield() != 0 {
		t.Errorf("Yield() = %v, want 0", out.Yield())
	}
	if out.LastBiomassIndex() != 29 {
		t.Errorf("LastBiomassIndex() = %d, want 29", out.LastBiomassIndex())
	}
}

func TestModel_PlantingAfterStart(t *testing.T) {
	weather := steadyWeather(20, 8)
	soil, _ := NewSoil("Loam")
	crop, _ := NewCrop("Maize")
	m, err := New(Config{
		Start:        weather[0].Date,
		End:          weather[19].Date,
		PlantingDate: weather[5].Date,
		Weather:      weather,
		Soil:         soil,
		Crop:         crop,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out, _ := m.Run()
	for i := 0; i < 5; i++ {
		if out.CropGrowth[i].ZRoot != 0 || out.WaterFlux[i].TrPot != 0 {
			t.Fatalf("day %d before planting shows crop activity", i)
		}
	}
	if out.CropGrowth[5].ZRoot != crop.MinRootDepth {
		t.Errorf("planting day root depth = %v, want %v", out.CropGrowth[5].ZRoot, crop.MinRootDepth)
	}
}

func TestNew_Validation(t *testing.T) {
	soil, _ := NewSoil("Clay")
	crop, _ := NewCrop("Maize")
	weather := steadyWeather(10, 0)

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "end before start",
			cfg:     Config{Start: weather[5].Date, End: weather[0].Date, Weather: weather, Soil: soil, Crop: crop},
			wantErr: ErrInvalidPeriod,
		},
		{
			name:    "weather gap",
			cfg:     Config{Start: weather[0].Date, End: weather[9].Date.AddDate(0, 0, 1), Weather: weather, Soil: soil, Crop: crop},
			wantErr: ErrMissingWeather,
		},
		{
			name:    "missing soil",
			cfg:     Config{Start: weather[0].Date, End: weather[9].Date, Weather: weather, Crop: crop},
			wantErr: ErrUnknownSoil,
		},
		{
			name:    "missing crop",
			cfg:     Config{Start: weather[0].Date, End: weather[9].Date, Weather: weather, Soil: soil},
			wantErr: ErrUnknownCrop,
		},
		{
			name:    "bad water preset",
			cfg:     Config{Start: weather[0].Date, End: weather[9].Date, Weather: weather, Soil: soil, Crop: crop, InitialWater: "wet"},
			wantErr: ErrUnknownWaterPreset,
		},
		{
			name:    "planting outside period",
			cfg:     Config{Start: weather[0].Date, End: weather[9].Date, PlantingDate: weather[9].Date.AddDate(0, 0, 3), Weather: weather, Soil: soil, Crop: crop},
			wantErr: ErrInvalidPeriod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLookups(t *testing.T) {
	if _, err := NewSoil("Peat"); !errors.Is(err, ErrUnknownSoil) {
		t.Errorf("NewSoil(Peat) error = %v", err)
	}
	if _, err := NewCrop("Banana"); !errors.Is(err, ErrUnknownCrop) {
		t.Errorf("NewCrop(Banana) error = %v", err)
	}
	if _, err := ParseInitialWaterContent("fc"); !errors.Is(err, ErrUnknownWaterPreset) {
		t.Errorf("ParseInitialWaterContent(fc) error = %v", err)
	}
	if len(SoilTextures()) != 12 {
		t.Errorf("len(SoilTextures()) = %d, want 12", len(SoilTextures()))
	}
	if len(CropNames()) != 5 {
		t.Errorf("len(CropNames()) = %d, want 5", len(CropNames()))
	}
}

func TestCrop_GrowingDegreeDays(t *testing.T) {
	maize, _ := NewCrop("Maize")
	tests := []struct {
		tmax, tmin, want float64
	}{
		{30, 18, 16},
		{35, 20, 17}, // tmax capped at 30
		{10, 2, 0},   // below base
		{12, 0, 0},   // mean bounded at base
	}

	for _, tt := range tests {
		if got := maize.growingDegreeDays(tt.tmax, tt.tmin); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("growingDegreeDays(%v, %v) = %v, want %v", tt.tmax, tt.tmin, got, tt.want)
		}
	}
}

func TestCrop_CanopyCurve(t *testing.T) {
	maize, _ := NewCrop("Maize")

	if maize.canopyGrowth(-1) != 0 {
		t.Error("canopy before emergence should be zero")
	}
	if maize.canopyGrowth(0) != maize.CC0 {
		t.Errorf("canopy at emergence = %v, want %v", maize.canopyGrowth(0), maize.CC0)
	}

	// continuous at the switch between exponential and saturating branches
	tHalf := math.Log(maize.CCx/(2*maize.CC0)) / maize.CGC
	below := maize.canopyGrowth(tHalf - 1e-6)
	above := maize.canopyGrowth(tHalf + 1e-6)
	if math.Abs(below-above) > 1e-6 {
		t.Errorf("canopy discontinuous at half CCx: %v vs %v", below, above)
	}

	prev := 0.0
	for tt := 0.0; tt < 2000; tt += 10 {
		cc := maize.canopyGrowth(tt)
		if cc < prev || cc > maize.CCx {
			t.Fatalf("canopy not monotone/bounded at t=%v: %v", tt, cc)
		}
		prev = cc
	}

	if got := maize.canopyDecline(0.9, 0); math.Abs(got-0.9) > 1e-12 {
		t.Errorf("canopyDecline at t=0 = %v, want 0.9", got)
	}
	if got := maize.canopyDecline(0.9, 1e6); got != 0 {
		t.Errorf("canopyDecline long after senescence = %v, want 0", got)
	}
}

func TestCrop_RootDepth(t *testing.T) {
	maize, _ := NewCrop("Maize")
	if got := maize.rootDepth(0); got != maize.MinRootDepth {
		t.Errorf("rootDepth(0) = %v", got)
	}
	if got := maize.rootDepth(maize.MaxRooting + 100); got != maize.MaxRootDepth {
		t.Errorf("rootDepth(past max) = %v", got)
	}
	mid := maize.rootDepth((maize.MaxRooting + maize.Emergence/2) / 2)
	if mid <= maize.MinRootDepth || mid >= maize.MaxRootDepth {
		t.Errorf("rootDepth(mid) = %v not between bounds", mid)
	}
}

func TestSoil_Runoff(t *testing.T) {
	clay, _ := NewSoil("Clay")
	if got := clay.runoff(10); got != 0 {
		t.Errorf("runoff(10) = %v, want 0 below initial abstraction", got)
	}
	s := 25400/clay.CurveNumber - 254
	excess := 50 - 0.2*s
	want := excess * excess / (excess + s)
	if got := clay.runoff(50); math.Abs(got-want) > 1e-12 {
		t.Errorf("runoff(50) = %v, want %v", got, want)
	}
	if got := clay.runoff(0); got != 0 {
		t.Errorf("runoff(0) = %v", got)
	}
}

func TestStressCoefficient(t *testing.T) {
	tests := []struct {
		depletion, taw, p, want float64
	}{
		{0, 100, 0.5, 1},
		{50, 100, 0.5, 1},
		{75, 100, 0.5, 0.5},
		{100, 100, 0.5, 0},
		{120, 100, 0.5, 0},
		{10, 0, 0.5, 0},
	}
	for _, tt := range tests {
		if got := stressCoefficient(tt.depletion, tt.taw, tt.p); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("stressCoefficient(%v, %v, %v) = %v, want %v", tt.depletion, tt.taw, tt.p, got, tt.want)
		}
	}
}
