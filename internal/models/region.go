package models

import (
	"fmt"
	"sort"
)

// Region is a named geographic point with fixed coordinates and soil texture
type Region struct {
	ID        int     `json:"id"`
	Name      string  `json:"nome"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Soil      string  `json:"solo"`
}

// regions is the static, read-only region table
var regions = map[int]Region{
	1:  {ID: 1, Name: "Uberlândia-MG", Latitude: -18.9186, Longitude: -48.2772, Soil: "SandyLoam"},
	10: {ID: 10, Name: "Santarém-PA", Latitude: -2.4419, Longitude: -54.7083, Soil: "ClayLoam"},
	11: {ID: 11, Name: "Ji-Paraná-RO", Latitude: -10.8828, Longitude: -61.9519, Soil: "Clay"},
	12: {ID: 12, Name: "Sinop-MT (Transição)", Latitude: -11.8644, Longitude: -55.5047, Soil: "SandyClayLoam"},
	20: {ID: 20, Name: "Kano-Nigéria", Latitude: 12.0022, Longitude: 8.5919, Soil: "SandyLoam"},
	21: {ID: 21, Name: "Zinder-Níger", Latitude: 13.8069, Longitude: 8.9883, Soil: "Sand"},
	22: {ID: 22, Name: "Ouagadougou-Burkina Faso", Latitude: 12.3714, Longitude: -1.5197, Soil: "SandyLoam"},
	30: {ID: 30, Name: "Punjab-Índia", Latitude: 30.9010, Longitude: 75.8573, Soil: "SiltLoam"},
	31: {ID: 31, Name: "Uttar Pradesh-Índia", Latitude: 26.8467, Longitude: 80.9462, Soil: "ClayLoam"},
	32: {ID: 32, Name: "Central Luzon-Filipinas", Latitude: 15.4817, Longitude: 120.7119, Soil: "Clay"},
	33: {ID: 33, Name: "Delta do Mekong-Vietnã", Latitude: 10.0452, Longitude: 105.7469, Soil: "Clay"},
	40: {ID: 40, Name: "Flevopolder-Holanda", Latitude: 52.5186, Longitude: 5.4714, Soil: "ClayLoam"},
	41: {ID: 41, Name: "Beauce-França", Latitude: 48.4167, Longitude: 1.6333, Soil: "SiltLoam"},
	42: {ID: 42, Name: "Champagne-França", Latitude: 49.0431, Longitude: 4.3625, Soil: "SiltClayLoam"},
	50: {ID: 50, Name: "Iowa-EUA (Corn Belt)", Latitude: 42.0308, Longitude: -93.6319, Soil: "SiltLoam"},
	51: {ID: 51, Name: "Illinois-EUA", Latitude: 40.6331, Longitude: -89.3985, Soil: "SiltLoam"},
	52: {ID: 52, Name: "Nebraska-EUA", Latitude: 41.4925, Longitude: -99.9018, Soil: "SiltClayLoam"},
	53: {ID: 53, Name: "Kansas-EUA", Latitude: 38.5266, Longitude: -96.7265, Soil: "SiltLoam"},
	60: {ID: 60, Name: "Darling Downs-Queensland", Latitude: -27.5598, Longitude: 151.9507, Soil: "Clay"},
	61: {ID: 61, Name: "Riverina-NSW", Latitude: -34.7088, Longitude: 146.0242, Soil: "ClayLoam"},
	62: {ID: 62, Name: "Esperance-Western Australia", Latitude: -33.8614, Longitude: 121.8917, Soil: "SandyLoam"},
}

// LookupRegion returns the region for id or a ValidationError listing valid ids
func LookupRegion(id int) (Region, error) {
	region, ok := regions[id]
	if !ok {
		return Region{}, &ValidationError{
			Field:   "regiao",
			Value:   fmt.Sprint(id),
			Message: fmt.Sprintf("region %d does not exist, valid regions: %v", id, RegionIDs()),
		}
	}
	return region, nil
}

// RegionIDs returns all valid region ids in ascending order
func RegionIDs() []int {
	ids := make([]int, 0, len(regions))
	for id := range regions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Regions returns the region table ordered by id
func Regions() []Region {
	ids := RegionIDs()
	out := make([]Region, 0, len(ids))
	for _, id := range ids {
		out = append(out, regions[id])
	}
	return out
}
