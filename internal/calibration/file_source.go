// Package calibration reads externally produced calibration artifacts: per
// ticker impact parameters and average daily volumes.
package calibration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"optimal_execution/internal/model"
	apperrors "optimal_execution/pkg/errors"
)

// FileSource loads impact_calibration_<TICKER>.json files from a directory.
type FileSource struct {
	dir string
}

// NewFileSource creates a source rooted at dir
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Path returns the file the ticker's calibration is read from.
func (s *FileSource) Path(ticker string) string {
	return filepath.Join(s.dir, fmt.Sprintf("impact_calibration_%s.json", strings.ToUpper(ticker)))
}

// Load reads and validates the calibration of ticker. A missing file is a
// data-unavailable error; a malformed ticker or file, or a missing required
// field, is a configuration error.
func (s *FileSource) Load(ctx context.Context, ticker string) (*model.CalibrationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateTicker(ticker); err != nil {
		return nil, err
	}

	path := s.Path(ticker)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.DataUnavailable("calibration of "+ticker, err)
		}
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}

	var record model.CalibrationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: malformed calibration file %s: %v", apperrors.ErrConfiguration, path, err)
	}
	if record.Ticker == "" {
		record.Ticker = strings.ToUpper(ticker)
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("calibration file %s: %w", path, err)
	}
	return &record, nil
}
