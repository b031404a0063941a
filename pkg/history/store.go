// Package history persists measurements in a bounded, append-only JSON log.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ja7ad/greenpipeline/pkg/types"
)

// DefaultCap is the maximum number of retained measurements.
const DefaultCap = 100

// Store is a bounded measurement log backed by one JSON file. Oldest entries
// are evicted first. Concurrent processes appending to the same file race;
// the last writer wins.
type Store struct {
	path string
	cap  int
}

// Aggregate summarizes the whole log.
type Aggregate struct {
	Count             int
	TotalCarbonGrams  float64
	TotalEnergyJoules float64
	TotalDurationSec  float64
	Failed            int
}

// New returns a Store at path. capacity <= 0 means DefaultCap.
func New(path string, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Store{path: path, cap: capacity}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Cap returns the retention limit.
func (s *Store) Cap() int { return s.cap }

// Load reads the full log. A missing file is an empty log; a file that is not
// a JSON array of measurements yields ErrCorrupt.
func (s *Store) Load() ([]types.Measurement, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}

	var ms []types.Measurement
	if err := json.Unmarshal(b, &ms); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, s.path, err)
	}
	return ms, nil
}

// Append adds m and keeps only the newest Cap entries.
func (s *Store) Append(m types.Measurement) error {
	ms, err := s.Load()
	if err != nil {
		return err
	}
	ms = append(ms, m)
	if over := len(ms) - s.cap; over > 0 {
		ms = ms[over:]
	}
	return s.save(ms)
}

// List returns the newest limit entries in chronological order.
// limit <= 0 returns everything.
func (s *Store) List(limit int) ([]types.Measurement, error) {
	ms, err := s.Load()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ms) > limit {
		ms = ms[len(ms)-limit:]
	}
	return ms, nil
}

// Aggregate totals the whole log.
func (s *Store) Aggregate() (Aggregate, error) {
	ms, err := s.Load()
	if err != nil {
		return Aggregate{}, err
	}
	return Summarize(ms), nil
}

// Summarize totals ms.
func Summarize(ms []types.Measurement) Aggregate {
	a := Aggregate{Count: len(ms)}
	for _, m := range ms {
		a.TotalCarbonGrams += m.CarbonGrams
		a.TotalEnergyJoules += m.EnergyJoules
		a.TotalDurationSec += m.DurationSec
		if !m.Success {
			a.Failed++
		}
	}
	return a
}

// save writes ms to a temp file in the same directory and renames it over
// the log so readers never see a partial write.
func (s *Store) save(ms []types.Measurement) error {
	if ms == nil {
		ms = []types.Measurement{}
	}
	b, err := json.MarshalIndent(ms, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("history: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("history: create temp: %w", err)
	}
	name := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(name)
	}()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("history: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("history: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		return fmt.Errorf("history: chmod: %w", err)
	}
	if err := os.Rename(name, s.path); err != nil {
		return fmt.Errorf("history: rename: %w", err)
	}
	return nil
}
