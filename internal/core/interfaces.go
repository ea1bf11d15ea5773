// Package core defines the core interfaces for the execution optimizer
package core

import (
	"context"

	"optimal_execution/internal/model"
)

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}

// IADVSource provides the average daily volume of a ticker.
// Implementations return an error matching apperrors.ErrDataUnavailable when
// no volume figure exists for the ticker.
type IADVSource interface {
	GetADV(ctx context.Context, ticker string) (float64, error)
}

// ICalibrationSource provides calibrated impact parameters of a ticker
type ICalibrationSource interface {
	Load(ctx context.Context, ticker string) (*model.CalibrationRecord, error)
}

// ISolver computes an execution schedule for one set of market parameters
type ISolver interface {
	Solve(ctx context.Context, params model.MarketParameters, seed uint64) (*model.Solution, error)
}
