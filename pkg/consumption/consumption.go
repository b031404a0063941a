package consumption

const (
	// JoulesPerKWh converts Joules to kilowatt-hours.
	JoulesPerKWh = 3_600_000.0

	// DefaultIntensity is the global average grid intensity in gCO2e/kWh.
	DefaultIntensity = 475.0

	// Reference coefficients for the display-only equivalents.
	_smartphoneCharge = 0.062 // per full charge
	_carGramsPerKm    = 192.0 // average passenger car
)

// Input is everything the converters need for one execution.
type Input struct {
	DurationSec float64
	CPUPercent  float64 // [0,100]
	MemoryGB    float64
	Intensity   float64 // gCO2e/kWh
}

// Footprint is the energy and carbon breakdown for one execution.
type Footprint struct {
	PowerWatts   float64
	CPUWatts     float64
	RAMWatts     float64
	EnergyJoules float64
	EnergyKWh    float64
	CarbonGrams  float64
	Intensity    float64
	SCIScore     float64 // gCO2e per execution

	SmartphoneCharges float64
	KmDriven          float64
}

// Energy converts a constant power draw over a duration into Joules and kWh.
// Negative durations count as zero.
func Energy(powerWatts, durationSec float64) (joules, kwh float64) {
	if !(durationSec > 0) {
		return 0, 0
	}
	joules = powerWatts * durationSec
	return joules, joules / JoulesPerKWh
}

// Carbon converts kWh into grams of CO2e at the given grid intensity.
func Carbon(kwh, intensity float64) float64 {
	return kwh * intensity
}

// SmartphoneCharges expresses grams of CO2e as a number of smartphone charges.
func SmartphoneCharges(carbonGrams float64) float64 {
	return carbonGrams * 1000 / _smartphoneCharge
}

// KmDriven expresses grams of CO2e as kilometres driven by an average car.
func KmDriven(carbonGrams float64) float64 {
	return carbonGrams / _carGramsPerKm
}

// Estimate runs the full power → energy → carbon chain. Every entry point that
// turns utilization into a footprint goes through here so results are
// numerically identical for identical inputs.
func Estimate(cfg Config, in Input) Footprint {
	intensity := in.Intensity
	if !(intensity > 0) {
		intensity = DefaultIntensity
	}

	pcpu := CPUPower(in.CPUPercent, cfg)
	pram := RAMPower(in.MemoryGB, cfg)
	ptot := pcpu + pram

	joules, kwh := Energy(ptot, in.DurationSec)
	carbon := Carbon(kwh, intensity)

	return Footprint{
		PowerWatts:        ptot,
		CPUWatts:          pcpu,
		RAMWatts:          pram,
		EnergyJoules:      joules,
		EnergyKWh:         kwh,
		CarbonGrams:       carbon,
		Intensity:         intensity,
		SCIScore:          carbon,
		SmartphoneCharges: SmartphoneCharges(carbon),
		KmDriven:          KmDriven(carbon),
	}
}
