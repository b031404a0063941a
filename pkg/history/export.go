package history

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ja7ad/greenpipeline/pkg/system/util"
	"github.com/ja7ad/greenpipeline/pkg/types"
	"github.com/parquet-go/parquet-go"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// ParseFormat accepts a format name or a file name with a known extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	switch f := Format(s); f {
	case FormatCSV, FormatJSON, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrFormat, s)
	}
}

// Export writes ms to w in the given format.
func Export(w io.Writer, f Format, ms []types.Measurement) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, ms)
	case FormatJSON:
		return WriteJSON(w, ms)
	case FormatParquet:
		return WriteParquet(w, ms)
	default:
		return fmt.Errorf("%w: %q", ErrFormat, f)
	}
}

var _csvHeader = []string{
	"id", "timestamp", "command", "location", "success", "exit_code",
	"duration_seconds", "samples", "cpu_percent", "memory_mb", "power_watts",
	"energy_joules", "energy_kwh", "carbon_grams", "carbon_intensity", "sci_score",
	"smartphone_charges", "km_driven",
}

// WriteCSV writes one row per measurement. Captured output is omitted.
func WriteCSV(w io.Writer, ms []types.Measurement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(_csvHeader); err != nil {
		return err
	}
	for _, m := range ms {
		rec := []string{
			m.ID,
			m.Timestamp.Format(time.RFC3339Nano),
			m.Command,
			m.Location,
			strconv.FormatBool(m.Success),
			strconv.Itoa(m.ExitCode),
			util.FmtFloat(m.DurationSec),
			strconv.Itoa(m.Samples),
			util.FmtFloat(m.CPUPercentAvg),
			util.FmtFloat(m.MemoryMBAvg),
			util.FmtFloat(m.PowerWatts),
			util.FmtFloat(m.EnergyJoules),
			util.FmtFloat(m.EnergyKWh),
			util.FmtFloat(m.CarbonGrams),
			util.FmtFloat(m.CarbonIntensity),
			util.FmtFloat(m.SCIScore),
			util.FmtFloat(m.SmartphoneCharges),
			util.FmtFloat(m.KmDriven),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes ms in the persisted history layout.
func WriteJSON(w io.Writer, ms []types.Measurement) error {
	if ms == nil {
		ms = []types.Measurement{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ms)
}

// ParquetRow is the flat columnar layout used for parquet exports.
type ParquetRow struct {
	ID                string  `parquet:"id"`
	TimestampUnixNano int64   `parquet:"timestamp_unix_nano"`
	Command           string  `parquet:"command"`
	Location          string  `parquet:"location"`
	Success           bool    `parquet:"success"`
	ExitCode          int64   `parquet:"exit_code"`
	DurationSec       float64 `parquet:"duration_seconds"`
	Samples           int64   `parquet:"samples"`
	CPUPercent        float64 `parquet:"cpu_percent"`
	MemoryMB          float64 `parquet:"memory_mb"`
	PowerWatts        float64 `parquet:"power_watts"`
	EnergyJoules      float64 `parquet:"energy_joules"`
	EnergyKWh         float64 `parquet:"energy_kwh"`
	CarbonGrams       float64 `parquet:"carbon_grams"`
	CarbonIntensity   float64 `parquet:"carbon_intensity"`
	SCIScore          float64 `parquet:"sci_score"`
	SmartphoneCharges float64 `parquet:"smartphone_charges"`
	KmDriven          float64 `parquet:"km_driven"`
}

func toParquetRow(m types.Measurement) ParquetRow {
	return ParquetRow{
		ID:                m.ID,
		TimestampUnixNano: m.Timestamp.UnixNano(),
		Command:           m.Command,
		Location:          m.Location,
		Success:           m.Success,
		ExitCode:          int64(m.ExitCode),
		DurationSec:       m.DurationSec,
		Samples:           int64(m.Samples),
		CPUPercent:        m.CPUPercentAvg,
		MemoryMB:          m.MemoryMBAvg,
		PowerWatts:        m.PowerWatts,
		EnergyJoules:      m.EnergyJoules,
		EnergyKWh:         m.EnergyKWh,
		CarbonGrams:       m.CarbonGrams,
		CarbonIntensity:   m.CarbonIntensity,
		SCIScore:          m.SCIScore,
		SmartphoneCharges: m.SmartphoneCharges,
		KmDriven:          m.KmDriven,
	}
}

// WriteParquet writes ms as a single parquet file.
func WriteParquet(w io.Writer, ms []types.Measurement) error {
	rows := make([]ParquetRow, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, toParquetRow(m))
	}

	pw := parquet.NewGenericWriter[ParquetRow](w)
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("history: parquet write: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("history: parquet close: %w", err)
	}
	return nil
}
