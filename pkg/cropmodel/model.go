package cropmodel

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrUnknownSoil        = errors.New("unknown soil texture")
	ErrUnknownCrop        = errors.New("unknown crop")
	ErrUnknownWaterPreset = errors.New("unknown initial water content")
	ErrMissingWeather     = errors.New("weather series does not cover simulation period")
	ErrInvalidPeriod      = errors.New("invalid simulation period")
)

// air-dry water content as a fraction of wilting point; evaporation stops below it
const airDryFraction = 0.5

// soil evaporation coefficient for a fully wet, bare surface
const evaporationCoefficient = 1.1

// water amounts below this (mm) are rounding noise from resizing the root zone
const waterEpsilon = 1e-9

// WeatherDay is one day of climate forcing
type WeatherDay struct {
	Date          time.Time
	MinTemp       float64 // °C
	MaxTemp       float64 // °C
	Precipitation float64 // mm
	ReferenceET   float64 // mm
}

// Config describes a single-season simulation
type Config struct {
	Start        time.Time
	End          time.Time
	PlantingDate time.Time // defaults to Start
	Weather      []WeatherDay
	Soil         Soil
	Crop         Crop
	InitialWater InitialWaterContent
}

// Model runs a daily crop growth and soil water balance simulation
type Model struct {
	cfg     Config
	weather map[time.Time]WeatherDay
	days    int
	plant   int
}

// New validates cfg and prepares a model
func New(cfg Config) (*Model, error) {
	start := truncateDay(cfg.Start)
	end := truncateDay(cfg.End)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidPeriod,
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	if cfg.Soil.Texture == "" || cfg.Soil.Depth <= 0 {
		return nil, fmt.Errorf("%w: soil profile not configured", ErrUnknownSoil)
	}
	if cfg.Crop.Name == "" {
		return nil, fmt.Errorf("%w: crop not configured", ErrUnknownCrop)
	}
	if cfg.InitialWater == "" {
		cfg.InitialWater = FieldCapacity
	}
	if _, err := ParseInitialWaterContent(string(cfg.InitialWater)); err != nil {
		return nil, err
	}

	planting := truncateDay(cfg.PlantingDate)
	if cfg.PlantingDate.IsZero() {
		planting = start
	}
	if planting.Before(start) || planting.After(end) {
		return nil, fmt.Errorf("%w: planting date %s outside simulation period", ErrInvalidPeriod,
			planting.Format("2006-01-02"))
	}

	weather := make(map[time.Time]WeatherDay, len(cfg.Weather))
	for _, w := range cfg.Weather {
		weather[truncateDay(w.Date)] = w
	}

	days := int(end.Sub(start).Hours()/24) + 1
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		if _, ok := weather[date]; !ok {
			return nil, fmt.Errorf("%w: no record for %s", ErrMissingWeather, date.Format("2006-01-02"))
		}
	}

	cfg.Start, cfg.End = start, end
	return &Model{
		cfg:     cfg,
		weather: weather,
		days:    days,
		plant:   int(planting.Sub(start).Hours() / 24),
	}, nil
}

// season tracks the crop state between daily steps
type season struct {
	planted     bool
	harvested   bool
	gdd         float64
	canopyTime  float64 // effective GDD driving canopy expansion
	canopy      float64
	senescentCC float64
	senescing   bool
	rootDepth   float64
	biomass     float64
	ksExpansion float64
	ksYieldSum  float64
	ksYieldDays int
}

// profile is a two-bucket soil: the root zone on top and the subsoil below
type profile struct {
	soil   Soil
	top    float64 // mm
	bottom float64 // mm
	zTop   float64 // m
}

func (p *profile) capacity(theta, z float64) float64 {
	return waterAt(theta, z)
}

// resize moves the root zone boundary to z, carrying water proportionally
func (p *profile) resize(z float64) {
	z = math.Min(math.Max(z, 0.01), p.soil.Depth)
	switch {
	case z > p.zTop:
		below := p.soil.Depth - p.zTop
		moved := p.bottom * (z - p.zTop) / below
		p.bottom -= moved
		p.top += moved
	case z < p.zTop:
		moved := p.top * (p.zTop - z) / p.zTop
		p.top -= moved
		p.bottom += moved
	}
	p.zTop = z
}

// Run executes the simulation from Start to End and returns daily outputs
func (m *Model) Run() (*Outputs, error) {
	crop := m.cfg.Crop
	soil := m.cfg.Soil

	theta0 := m.cfg.InitialWater.theta(soil)
	zInit := crop.MinRootDepth
	p := &profile{
		soil:   soil,
		zTop:   zInit,
		top:    waterAt(theta0, zInit),
		bottom: waterAt(theta0, soil.Depth-zInit),
	}

	out := &Outputs{
		CropGrowth: make([]CropGrowthRecord, 0, m.days),
		WaterFlux:  make([]WaterFluxRecord, 0, m.days),
	}

	s := season{ksExpansion: 1}
	tau := soil.drainageCoefficient()

	for step := 0; step < m.days; step++ {
		date := m.cfg.Start.AddDate(0, 0, step)
		w := m.weather[date]
		// fill values can drive ET0 negative; evaporative demand never adds water
		et0 := math.Max(w.ReferenceET, 0)

		if step == m.plant {
			s.planted = true
		}
		growing := s.planted && !s.harvested

		if growing {
			m.advanceCrop(&s, w)
			p.resize(s.rootDepth)
		}

		flux := WaterFluxRecord{Step: step, Date: date}

		// Surface runoff and infiltration
		flux.Runoff = soil.runoff(w.Precipitation)
		infl := w.Precipitation - flux.Runoff
		room := math.Max(p.capacity(soil.ThetaSat, p.zTop)-p.top, 0)
		if limit := math.Min(room, soil.Ksat); infl > limit {
			flux.Runoff += infl - limit
			infl = limit
		}
		flux.Infl = infl
		p.top += infl

		// Drainage into the subsoil, then below the profile
		if excess := p.top - p.capacity(soil.ThetaFC, p.zTop); excess > 0 {
			drained := tau * excess
			p.top -= drained
			p.bottom += drained
		}
		bottomDepth := soil.Depth - p.zTop
		if excess := p.bottom - p.capacity(soil.ThetaFC, bottomDepth); excess > 0 {
			flux.DeepPerc = tau * excess
			p.bottom -= flux.DeepPerc
		}
		if over := p.bottom - p.capacity(soil.ThetaSat, bottomDepth); over > 0 {
			flux.DeepPerc += over
			p.bottom -= over
		}

		// Transpiration with water stress
		fc := p.capacity(soil.ThetaFC, p.zTop)
		wp := p.capacity(soil.ThetaWP, p.zTop)
		taw := fc - wp
		depletion := math.Max(fc-p.top, 0)

		ccAdj := 0.0
		if growing {
			ccAdj = adjustedCanopy(s.canopy)
			flux.TrPot = crop.Kcb * ccAdj * et0
			ks := stressCoefficient(depletion, taw, crop.PStomata)
			available := p.top - wp
			if available < waterEpsilon {
				available = 0
			}
			flux.Tr = math.Min(ks*flux.TrPot, available)
			p.top -= flux.Tr
			s.ksExpansion = stressCoefficient(depletion, taw, crop.PExpansion)
			if s.gdd >= crop.YieldStart {
				s.ksYieldSum += ks
				s.ksYieldDays++
			}
		}

		// Soil evaporation from the uncovered fraction
		depletion = math.Max(fc-p.top, 0)
		kr := 1.0
		if depletion > soil.REW && taw > soil.REW {
			kr = math.Max((taw-depletion)/(taw-soil.REW), 0)
		}
		esPot := evaporationCoefficient * (1 - ccAdj) * et0
		airDry := airDryFraction * wp
		flux.Es = math.Min(esPot*kr, math.Max(p.top-airDry, 0))
		p.top -= flux.Es
		flux.RootZoneWater = p.top
		flux.ProfileWater = p.top + p.bottom

		// Biomass from water productivity
		if growing && s.gdd >= crop.Emergence && et0 > 0 {
			s.biomass += crop.WP * flux.Tr / et0 * 10
		}

		growth := CropGrowthRecord{
			Step:        step,
			Date:        date,
			GDD:         s.gdd,
			CanopyCover: s.canopy,
			Biomass:     s.biomass,
		}
		if growing {
			growth.ZRoot = s.rootDepth
		}

		if growing && s.gdd >= crop.Maturity {
			out.FinalStats = append(out.FinalStats, m.harvest(&s, date, step))
			// the field lies fallow with the minimum evaporation layer afterwards
			p.resize(crop.MinRootDepth)
		}

		out.CropGrowth = append(out.CropGrowth, growth)
		out.WaterFlux = append(out.WaterFlux, flux)
	}

	if !s.harvested {
		out.FinalStats = append(out.FinalStats, FinalStat{
			Season:         1,
			Crop:           crop.Name,
			HarvestStep:    -1,
			YieldPotential: s.biomass * crop.HI0 / 1000,
		})
	}

	return out, nil
}

// advanceCrop updates phenology, canopy and roots for one day
func (m *Model) advanceCrop(s *season, w WeatherDay) {
	crop := m.cfg.Crop
	dailyGDD := crop.growingDegreeDays(w.MaxTemp, w.MinTemp)
	s.gdd += dailyGDD

	switch {
	case s.gdd < crop.Emergence:
		s.canopy = 0
	case s.gdd < crop.Senescence:
		// expansion slows under water stress
		s.canopyTime += dailyGDD * s.ksExpansion
		s.canopy = crop.canopyGrowth(s.canopyTime)
	default:
		if !s.senescing {
			s.senescing = true
			s.senescentCC = s.canopy
		}
		s.canopy = crop.canopyDecline(s.senescentCC, s.gdd-crop.Senescence)
	}

	s.rootDepth = crop.rootDepth(s.gdd)
}

// harvest closes the season and resets the crop state
func (m *Model) harvest(s *season, date time.Time, step int) FinalStat {
	crop := m.cfg.Crop
	meanKs := 1.0
	if s.ksYieldDays > 0 {
		meanKs = s.ksYieldSum / float64(s.ksYieldDays)
	}
	hi := crop.HI0 * (0.5 + 0.5*meanKs)

	stat := FinalStat{
		Season:         1,
		Crop:           crop.Name,
		HarvestDate:    date,
		HarvestStep:    step,
		DryYield:       s.biomass * hi / 1000,
		YieldPotential: s.biomass * crop.HI0 / 1000,
		Harvested:      true,
	}

	*s = season{planted: true, harvested: true, ksExpansion: 1}
	return stat
}

// stressCoefficient is 1 until depletion exceeds p·TAW, then falls linearly to 0 at TAW
func stressCoefficient(depletion, taw, p float64) float64 {
	if taw <= 0 {
		return 0
	}
	raw := p * taw
	if depletion <= raw {
		return 1
	}
	return math.Max((taw-depletion)/((1-p)*taw), 0)
}

func truncateDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
