package model

import (
	"fmt"
	"math"

	apperrors "optimal_execution/pkg/errors"
)

// CalibrationRecord is the per-ticker output of the impact calibration
// collaborator. Sigma may be given as the historical standard deviation of
// returns (StdReturn) instead.
type CalibrationRecord struct {
	Ticker    string   `json:"ticker"`
	Eta       *float64 `json:"eta"`
	Gamma     *float64 `json:"gamma"`
	Sigma     *float64 `json:"sigma"`
	StdReturn *float64 `json:"std_return"`
	S0        *float64 `json:"S0"`
}

// Volatility resolves sigma, falling back to std_return.
func (r CalibrationRecord) Volatility() (float64, bool) {
	if r.Sigma != nil {
		return *r.Sigma, true
	}
	if r.StdReturn != nil {
		return *r.StdReturn, true
	}
	return 0, false
}

// Validate reports the first missing or non-finite required field.
func (r CalibrationRecord) Validate() error {
	required := []struct {
		field string
		value *float64
	}{
		{"eta", r.Eta},
		{"gamma", r.Gamma},
		{"S0", r.S0},
	}
	for _, f := range required {
		if f.value == nil {
			return apperrors.ValidationError{Field: f.field, Message: fmt.Sprintf("missing in calibration of %s", r.Ticker)}
		}
		if math.IsNaN(*f.value) || math.IsInf(*f.value, 0) {
			return apperrors.ValidationError{Field: f.field, Value: *f.value, Message: "must be finite"}
		}
	}
	if _, ok := r.Volatility(); !ok {
		return apperrors.ValidationError{Field: "sigma", Message: fmt.Sprintf("missing in calibration of %s (neither sigma nor std_return)", r.Ticker)}
	}
	return nil
}

// Apply overlays the calibrated fields on base and returns the result.
func (r CalibrationRecord) Apply(base MarketParameters) (MarketParameters, error) {
	if err := r.Validate(); err != nil {
		return base, err
	}
	sigma, _ := r.Volatility()
	base.ImpactCoefficient = *r.Eta
	base.ImpactExponent = *r.Gamma
	base.Volatility = sigma
	base.Price = *r.S0
	return base, nil
}
