package cropmodel

import "time"

// Outputs holds the daily tables produced by a run
type Outputs struct {
	CropGrowth []CropGrowthRecord
	WaterFlux  []WaterFluxRecord
	FinalStats []FinalStat
}

// CropGrowthRecord is the crop state at the end of a simulated day
type CropGrowthRecord struct {
	Step        int
	Date        time.Time
	GDD         float64 // cumulative since planting
	CanopyCover float64 // fraction
	ZRoot       float64 // m, zero outside the growing season
	Biomass     float64 // kg/ha
}

// WaterFluxRecord is the daily soil water balance in mm
type WaterFluxRecord struct {
	Step          int
	Date          time.Time
	Infl          float64
	Runoff        float64
	DeepPerc      float64
	Es            float64
	Tr            float64
	TrPot         float64
	RootZoneWater float64
	ProfileWater  float64
}

// FinalStat summarizes a season. HarvestStep is -1 when the crop did not
// reach maturity before the end of the simulation.
type FinalStat struct {
	Season         int
	Crop           string
	HarvestDate    time.Time
	HarvestStep    int
	DryYield       float64 // t/ha
	YieldPotential float64 // t/ha
	Harvested      bool
}

// LastBiomassIndex returns the last step with positive biomass, or -1
func (o *Outputs) LastBiomassIndex() int {
	for i := len(o.CropGrowth) - 1; i >= 0; i-- {
		if o.CropGrowth[i].Biomass > 0 {
			return i
		}
	}
	return -1
}

// WaterTotals sums the water flux table
type WaterTotals struct {
	Infl     float64
	Runoff   float64
	DeepPerc float64
	Es       float64
	Tr       float64
	TrPot    float64
}

// Totals returns the seasonal sums of the water flux table
func (o *Outputs) Totals() WaterTotals {
	var t WaterTotals
	for _, f := range o.WaterFlux {
		t.Infl += f.Infl
		t.Runoff += f.Runoff
		t.DeepPerc += f.DeepPerc
		t.Es += f.Es
		t.Tr += f.Tr
		t.TrPot += f.TrPot
	}
	return t
}

// Yield returns the dry yield of the first season, zero if not harvested
func (o *Outputs) Yield() float64 {
	if len(o.FinalStats) == 0 {
		return 0
	}
	return o.FinalStats[0].DryYield
}
