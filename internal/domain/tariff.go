package domain

// Direction is the energy flow a grid tariff applies to.
type Direction string

const (
	DirectionDrawdown  Direction = "DRAWDOWN"
	DirectionInjection Direction = "INJECTION"
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is a valid value.
func (d Direction) IsValid() bool {
	return d == DirectionDrawdown || d == DirectionInjection
}

// GridTariff holds the flat-rate fields of a distribution grid tariff.
// Key: (country, provider, direction).
type GridTariff struct {
	Country   string
	Provider  string
	Direction Direction

	PeakUsageAvgMonthlyCost float64 // per kW of average monthly peak, per year
	PeakUsageKWh            float64 // per kWh
	DataManagementStandard  float64 // per year, monthly/yearly metering
	DataManagementDynamic   float64 // per year, hourly metering
	PublicServicesKWh       float64 // per kWh
	SurchargesKWh           float64 // per kWh
	TransmissionChargesKWh  float64 // per kWh
}

// Bracket is one slice of a graduated rate: Rate applies from LowerBound
// up to the next bracket's LowerBound.
type Bracket struct {
	LowerBound float64 `json:"lower_bound"`
	Rate       float64 `json:"rate"`
}

// ExciseTariff holds the graduated excise and flat energy contribution of a country.
type ExciseTariff struct {
	Country            string
	Brackets           []Bracket
	EnergyContribution float64 // per kWh
}
