package calibration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	apperrors "optimal_execution/pkg/errors"

	"gopkg.in/yaml.v3"
)

// ADVTable serves average daily volumes from memory. Tickers are case-insensitive.
type ADVTable struct {
	mu      sync.RWMutex
	volumes map[string]float64
}

// NewADVTable creates a table from ticker -> shares/day.
func NewADVTable(volumes map[string]float64) *ADVTable {
	t := &ADVTable{volumes: make(map[string]float64, len(volumes))}
	for ticker, adv := range volumes {
		t.volumes[strings.ToUpper(ticker)] = adv
	}
	return t
}

// LoadADVFile reads a YAML mapping of ticker to average daily volume, e.g.
//
//	AAPL: 50000000
//	TOUR: 2000000
func LoadADVFile(path string) (*ADVTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.DataUnavailable("volume file "+path, err)
		}
		return nil, fmt.Errorf("failed to read volume file: %w", err)
	}

	volumes := make(map[string]float64)
	if err := yaml.Unmarshal(data, &volumes); err != nil {
		return nil, fmt.Errorf("%w: malformed volume file %s: %v", apperrors.ErrConfiguration, path, err)
	}
	return NewADVTable(volumes), nil
}

// GetADV implements core.IADVSource. Unknown tickers are data-unavailable;
// non-positive volumes are returned as-is for the calibrator to reject.
func (t *ADVTable) GetADV(ctx context.Context, ticker string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	adv, ok := t.volumes[strings.ToUpper(ticker)]
	if !ok {
		return 0, apperrors.DataUnavailable("no volume recorded for "+ticker, nil)
	}
	return adv, nil
}

// Set records or replaces the volume of a ticker.
func (t *ADVTable) Set(ticker string, adv float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volumes[strings.ToUpper(ticker)] = adv
}

// Tickers returns the tickers with a recorded volume.
func (t *ADVTable) Tickers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.volumes))
	for ticker := range t.volumes {
		out = append(out, ticker)
	}
	return out
}
