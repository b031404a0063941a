package types

import "fmt"

// Bytes is a uint64 wrapper representing a size in bytes.
type Bytes uint64

// ToBytes converts a raw counter into Bytes.
func ToBytes(v uint64) Bytes { return Bytes(v) }

// FromKiB converts a kibibyte count (as reported by /proc/meminfo) into Bytes.
func FromKiB(kib uint64) Bytes { return Bytes(kib * 1024) }

// Uint64 returns the raw byte count.
func (b Bytes) Uint64() uint64 { return uint64(b) }

// MB returns the number of megabytes (1024 base).
func (b Bytes) MB() float64 { return float64(b) / (1 << 20) }

// GB returns the number of gigabytes (1024 base).
func (b Bytes) GB() float64 { return float64(b) / (1 << 30) }

// Sub returns b-o, or zero when o exceeds b.
func (b Bytes) Sub(o Bytes) Bytes {
	if o >= b {
		return 0
	}
	return b - o
}

// String implements fmt.Stringer using Humanized.
func (b Bytes) String() string { return b.Humanized() }

// Humanized returns a human-readable string with automatic unit (B, KB, MB, GB, TB).
func (b Bytes) Humanized() string {
	v := float64(b)
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.2f TB", v/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", v/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", v/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.2f KB", v/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
