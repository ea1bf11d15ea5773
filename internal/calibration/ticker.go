package calibration

import (
	"regexp"
	"strings"

	apperrors "optimal_execution/pkg/errors"
)

// tickerPattern admits exchange symbols such as BRK.B or RDS-A. Tickers end
// up in file names, so separators and traversal sequences are rejected.
var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,14}$`)

// ValidateTicker checks that ticker is a plain symbol.
func ValidateTicker(ticker string) error {
	t := strings.ToUpper(ticker)
	if !tickerPattern.MatchString(t) || strings.Contains(t, "..") {
		return apperrors.ValidationError{Field: "ticker", Value: ticker, Message: "must be 1-15 letters, digits, dots or dashes"}
	}
	return nil
}
