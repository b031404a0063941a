package types

import (
	"encoding/json"
	"time"
)

// Measurement is the result of one measured workload execution.
// Values are stored unrounded; rounding is a display concern.
type Measurement struct {
	ID        string
	Timestamp time.Time
	Command   string
	Location  string
	Success   bool
	ExitCode  int
	Output    string

	DurationSec float64
	Samples     int

	CPUPercentAvg   float64
	MemoryMBAvg     float64
	PowerWatts      float64
	EnergyJoules    float64
	EnergyKWh       float64
	CarbonGrams     float64
	CarbonIntensity float64 // gCO2e/kWh
	SCIScore        float64

	SmartphoneCharges float64
	KmDriven          float64
}

// Persisted layout: flat identity fields plus nested metrics and equivalents.
type measurementJSON struct {
	ID          string          `json:"id,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Command     string          `json:"command"`
	Location    string          `json:"location"`
	Success     bool            `json:"success"`
	ExitCode    int             `json:"exit_code"`
	Output      string          `json:"output,omitempty"`
	DurationSec float64         `json:"duration_seconds"`
	Samples     int             `json:"samples"`
	Metrics     metricsJSON     `json:"metrics"`
	Equivalents equivalentsJSON `json:"equivalents"`
}

type metricsJSON struct {
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryMB        float64 `json:"memory_mb"`
	PowerWatts      float64 `json:"power_watts"`
	EnergyJoules    float64 `json:"energy_joules"`
	EnergyKWh       float64 `json:"energy_kwh"`
	CarbonGrams     float64 `json:"carbon_grams"`
	CarbonIntensity float64 `json:"carbon_intensity"`
	SCIScore        float64 `json:"sci_score"`
}

type equivalentsJSON struct {
	SmartphoneCharges float64 `json:"smartphone_charges"`
	KmDriven          float64 `json:"km_driven"`
}

// MarshalJSON implements json.Marshaler.
func (m Measurement) MarshalJSON() ([]byte, error) {
	return json.Marshal(measurementJSON{
		ID:          m.ID,
		Timestamp:   m.Timestamp,
		Command:     m.Command,
		Location:    m.Location,
		Success:     m.Success,
		ExitCode:    m.ExitCode,
		Output:      m.Output,
		DurationSec: m.DurationSec,
		Samples:     m.Samples,
		Metrics: metricsJSON{
			CPUPercent:      m.CPUPercentAvg,
			MemoryMB:        m.MemoryMBAvg,
			PowerWatts:      m.PowerWatts,
			EnergyJoules:    m.EnergyJoules,
			EnergyKWh:       m.EnergyKWh,
			CarbonGrams:     m.CarbonGrams,
			CarbonIntensity: m.CarbonIntensity,
			SCIScore:        m.SCIScore,
		},
		Equivalents: equivalentsJSON{
			SmartphoneCharges: m.SmartphoneCharges,
			KmDriven:          m.KmDriven,
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Measurement) UnmarshalJSON(b []byte) error {
	var w measurementJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*m = Measurement{
		ID:                w.ID,
		Timestamp:         w.Timestamp,
		Command:           w.Command,
		Location:          w.Location,
		Success:           w.Success,
		ExitCode:          w.ExitCode,
		Output:            w.Output,
		DurationSec:       w.DurationSec,
		Samples:           w.Samples,
		CPUPercentAvg:     w.Metrics.CPUPercent,
		MemoryMBAvg:       w.Metrics.MemoryMB,
		PowerWatts:        w.Metrics.PowerWatts,
		EnergyJoules:      w.Metrics.EnergyJoules,
		EnergyKWh:         w.Metrics.EnergyKWh,
		CarbonGrams:       w.Metrics.CarbonGrams,
		CarbonIntensity:   w.Metrics.CarbonIntensity,
		SCIScore:          w.Metrics.SCIScore,
		SmartphoneCharges: w.Equivalents.SmartphoneCharges,
		KmDriven:          w.Equivalents.KmDriven,
	}
	return nil
}
