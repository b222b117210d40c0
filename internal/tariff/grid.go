package tariff

import (
	"math"

	"energy-tariffs/internal/domain"
)

// GridCost computes the yearly grid cost for an average monthly peak power
// (kW) and a yearly energy usage (kWh). Only Belgian drawdown is defined.
func GridCost(t domain.GridTariff, peakPower, totalEnergy float64, dynamic bool) (float64, error) {
	if t.Country != "BE" || t.Direction != domain.DirectionDrawdown {
		return 0, &NotImplementedError{Country: t.Country, Direction: t.Direction}
	}
	if math.IsNaN(peakPower) || math.IsInf(peakPower, 0) {
		return 0, &InvalidInputError{Field: "peak_power", Reason: "not a finite number"}
	}
	if math.IsNaN(totalEnergy) || math.IsInf(totalEnergy, 0) {
		return 0, &InvalidInputError{Field: "total_energy", Reason: "not a finite number"}
	}

	perKWh := t.PeakUsageKWh + t.PublicServicesKWh + t.SurchargesKWh + t.TransmissionChargesKWh
	energyCost := float64(totalEnergy * perKWh)
	powerCost := float64(peakPower * t.PeakUsageAvgMonthlyCost)

	dataManagement := t.DataManagementStandard
	if dynamic {
		dataManagement = t.DataManagementDynamic
	}

	return round(energyCost+powerCost+dataManagement, 3), nil
}
