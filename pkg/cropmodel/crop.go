package cropmodel

import (
	"fmt"
	"math"
	"sort"
)

// Crop holds the growth parameters of a crop. Phenological stages are
// expressed in growing degree days (°C·day) after planting.
type Crop struct {
	Name string

	BaseTemp  float64 // °C
	UpperTemp float64 // °C

	Emergence  float64
	MaxRooting float64
	Senescence float64
	Maturity   float64
	YieldStart float64 // start of yield formation

	CC0 float64 // initial canopy cover at emergence
	CCx float64 // maximum canopy cover
	CGC float64 // canopy growth coefficient, per GDD
	CDC float64 // canopy decline coefficient, per GDD

	MinRootDepth float64 // m
	MaxRootDepth float64 // m
	RootShape    float64

	Kcb float64 // crop transpiration coefficient at full cover
	WP  float64 // normalized water productivity, g/m²
	HI0 float64 // reference harvest index

	PExpansion float64 // depletion fraction where canopy expansion stress starts
	PStomata   float64 // depletion fraction where stomatal closure starts
}

var crops = map[string]Crop{
	"Maize": {
		BaseTemp: 8, UpperTemp: 30,
		Emergence: 80, MaxRooting: 1420, Senescence: 1420, Maturity: 1670, YieldStart: 880,
		CC0: 0.0103, CCx: 0.96, CGC: 0.012494, CDC: 0.004,
		MinRootDepth: 0.3, MaxRootDepth: 1.7, RootShape: 1.3,
		Kcb: 1.05, WP: 33.7, HI0: 0.48,
		PExpansion: 0.14, PStomata: 0.69,
	},
	"Wheat": {
		BaseTemp: 0, UpperTemp: 26,
		Emergence: 150, MaxRooting: 864, Senescence: 1700, Maturity: 2400, YieldStart: 1250,
		CC0: 0.0162, CCx: 0.96, CGC: 0.005, CDC: 0.004,
		MinRootDepth: 0.3, MaxRootDepth: 1.5, RootShape: 1.5,
		Kcb: 1.1, WP: 15, HI0: 0.48,
		PExpansion: 0.2, PStomata: 0.65,
	},
	"Soybean": {
		BaseTemp: 5, UpperTemp: 30,
		Emergence: 166, MaxRooting: 1000, Senescence: 1300, Maturity: 1600, YieldStart: 700,
		CC0: 0.015, CCx: 0.98, CGC: 0.0092, CDC: 0.0067,
		MinRootDepth: 0.3, MaxRootDepth: 1.0, RootShape: 1.5,
		Kcb: 1.1, WP: 15, HI0: 0.4,
		PExpansion: 0.15, PStomata: 0.6,
	},
	"Sorghum": {
		BaseTemp: 8, UpperTemp: 30,
		Emergence: 100, MaxRooting: 1100, Senescence: 1350, Maturity: 1700, YieldStart: 900,
		CC0: 0.0105, CCx: 0.90, CGC: 0.01, CDC: 0.0055,
		MinRootDepth: 0.3, MaxRootDepth: 2.0, RootShape: 1.3,
		Kcb: 1.0, WP: 33.7, HI0: 0.45,
		PExpansion: 0.15, PStomata: 0.7,
	},
	"Barley": {
		BaseTemp: 0, UpperTemp: 25,
		Emergence: 130, MaxRooting: 900, Senescence: 1300, Maturity: 1800, YieldStart: 1000,
		CC0: 0.015, CCx: 0.80, CGC: 0.007, CDC: 0.0044,
		MinRootDepth: 0.3, MaxRootDepth: 1.3, RootShape: 1.5,
		Kcb: 1.1, WP: 15, HI0: 0.33,
		PExpansion: 0.2, PStomata: 0.6,
	},
}

// NewCrop returns the parameter set for a crop name
func NewCrop(name string) (Crop, error) {
	crop, ok := crops[name]
	if !ok {
		return Crop{}, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownCrop, name, CropNames())
	}
	crop.Name = name
	return crop, nil
}

// CropNames lists the supported crops
func CropNames() []string {
	names := make([]string, 0, len(crops))
	for name := range crops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// growingDegreeDays uses the AquaCrop method 3 temperature bounds
func (c Crop) growingDegreeDays(tmax, tmin float64) float64 {
	tmax = math.Min(math.Max(tmax, c.BaseTemp), c.UpperTemp)
	tmin = math.Min(tmin, c.UpperTemp)
	tavg := math.Max((tmax+tmin)/2, c.BaseTemp)
	return tavg - c.BaseTemp
}

// canopyGrowth returns canopy cover t GDD after emergence
func (c Crop) canopyGrowth(t float64) float64 {
	if t < 0 {
		return 0
	}
	cc := c.CC0 * math.Exp(c.CGC*t)
	if cc <= c.CCx/2 {
		return cc
	}
	cc = c.CCx - 0.25*c.CCx*c.CCx/c.CC0*math.Exp(-c.CGC*t)
	return math.Min(cc, c.CCx)
}

// canopyDecline returns canopy cover t GDD after senescence started at ccStart
func (c Crop) canopyDecline(ccStart, t float64) float64 {
	if ccStart <= 0 {
		return 0
	}
	cc := ccStart * (1 - 0.05*(math.Exp(c.CDC*3.33*t/(ccStart+2.29))-1))
	return math.Max(cc, 0)
}

// rootDepth returns effective rooting depth (m) at cumulative GDD since planting
func (c Crop) rootDepth(gdd float64) float64 {
	start := c.Emergence / 2
	if gdd <= start {
		return c.MinRootDepth
	}
	frac := (gdd - start) / (c.MaxRooting - start)
	if frac >= 1 {
		return c.MaxRootDepth
	}
	return c.MinRootDepth + (c.MaxRootDepth-c.MinRootDepth)*math.Pow(frac, 1/c.RootShape)
}

// adjustedCanopy converts canopy cover to the effective cover used for transpiration
func adjustedCanopy(cc float64) float64 {
	if cc <= 0 {
		return 0
	}
	adj := 1.72*cc - cc*cc + 0.3*cc*cc*cc
	return math.Min(math.Max(adj, 0), 1)
}
