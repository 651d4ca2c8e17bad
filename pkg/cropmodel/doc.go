// Package cropmodel simulates a single crop season with a daily soil water
// balance, in the manner of FAO's AquaCrop.
//
// A simulation is configured with a soil texture (NewSoil), a crop parameter
// set (NewCrop), an initial water content preset and a daily weather series
// carrying reference evapotranspiration. Run steps one day at a time:
//
//   - growing degree days drive phenology, canopy cover and root deepening;
//   - precipitation is split into runoff (SCS curve number) and infiltration;
//   - water above field capacity drains from the root zone into the subsoil
//     and out of the profile as deep percolation;
//   - transpiration scales with canopy cover and is reduced by water stress;
//   - biomass accumulates as normalized water productivity times Tr/ET0;
//   - at maturity the crop is harvested and the field lies fallow.
//
// Outputs mirror the tables of the reference model: crop growth, water flux
// and final statistics per season.
package cropmodel
