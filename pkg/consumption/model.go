package consumption

import "strings"

// Config holds power model coefficients.
// Units:
//   - TDP: Watts (vendor-rated sustained draw of the package)
//   - CPUPowerFactor: dimensionless share of TDP scaled by utilization
//   - CPUBaseline: dimensionless share of TDP drawn even when idle
//   - RAMWattsPerGB: Watts per GB of used memory
type Config struct {
	TDP            float64
	CPUPowerFactor float64
	CPUBaseline    float64
	RAMWattsPerGB  float64
}

const (
	// DefaultTDP is used when the CPU architecture is not in the profile table.
	DefaultTDP = 65.0

	_cpuPowerFactor = 0.6
	_cpuBaseline    = 0.4
	_ramWattsPerGB  = 0.375
)

// architecture -> TDP (W)
var _tdpByArch = map[string]float64{
	"x86_64":  65, // typical desktop/server Intel/AMD
	"amd64":   65,
	"aarch64": 15, // ARM laptops and SBCs (Apple M-series class)
	"arm64":   15,
}

// _defaultConfig returns the x86_64 profile.
func _defaultConfig() *Config {
	return &Config{
		TDP:            DefaultTDP,
		CPUPowerFactor: _cpuPowerFactor,
		CPUBaseline:    _cpuBaseline,
		RAMWattsPerGB:  _ramWattsPerGB,
	}
}

// ProfileFor returns the model coefficients for a machine architecture string
// such as uname's "x86_64" or Go's "arm64". Unknown architectures get DefaultTDP.
func ProfileFor(arch string) Config {
	cfg := *_defaultConfig()
	if tdp, ok := _tdpByArch[strings.ToLower(strings.TrimSpace(arch))]; ok {
		cfg.TDP = tdp
	}
	return cfg
}

// KnownArch reports whether arch has a dedicated TDP entry.
func KnownArch(arch string) bool {
	_, ok := _tdpByArch[strings.ToLower(strings.TrimSpace(arch))]
	return ok
}

// Merge returns base with every positive field of override applied.
// Zero and negative values are treated as unset. CPUBaseline must also be
// at most 1 to override.
func Merge(base Config, override *Config) Config {
	if override == nil {
		return base
	}
	merged := base

	if override.TDP > 0 {
		merged.TDP = override.TDP
	}
	if override.CPUPowerFactor > 0 {
		merged.CPUPowerFactor = override.CPUPowerFactor
	}
	if override.CPUBaseline > 0 && override.CPUBaseline <= 1 {
		merged.CPUBaseline = override.CPUBaseline
	}
	if override.RAMWattsPerGB > 0 {
		merged.RAMWattsPerGB = override.RAMWattsPerGB
	}

	if merged.TDP <= 0 {
		merged.TDP = DefaultTDP
	}
	return merged
}

// Power returns the instantaneous draw in Watts for a CPU utilization in
// percent [0,100] and used memory in GB. Negative inputs count as zero and
// utilization above 100 is capped.
//
//	P_cpu = TDP * (U * factor + baseline)
//	P_ram = memGB * ramWattsPerGB
func Power(cpuPercent, memoryGB float64, cfg Config) float64 {
	return CPUPower(cpuPercent, cfg) + RAMPower(memoryGB, cfg)
}

// CPUPower is the CPU term of Power.
func CPUPower(cpuPercent float64, cfg Config) float64 {
	u := clamp(cpuPercent, 0, 100) / 100
	return cfg.TDP * (u*cfg.CPUPowerFactor + cfg.CPUBaseline)
}

// RAMPower is the memory term of Power.
func RAMPower(memoryGB float64, cfg Config) float64 {
	if !(memoryGB > 0) {
		return 0
	}
	return memoryGB * cfg.RAMWattsPerGB
}

func clamp(x, lo, hi float64) float64 {
	// NaN fails every comparison
	if !(x > lo) {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
