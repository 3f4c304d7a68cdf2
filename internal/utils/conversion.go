/*
This file contains conversion helpers between SDK math integers and the
float64 fields carried by report types.
*/

package utils

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrValueNil         = errors.New("value is nil")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// SDKIntToFloat64 converts a signed SDK Int to float64. Drift figures are
// signed, so negative values are valid here; the conversion fails rather
// than returning Inf or NaN when the value falls outside float64 range.
func SDKIntToFloat64(value sdkmath.Int) (float64, error) {
	if value.IsNil() {
		return 0, ErrValueNil
	}

	result, err := sdkmath.LegacyNewDecFromInt(value).Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, result)
	}

	return result, nil
}
