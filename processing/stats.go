package processing

import (
	"errors"
	"math"

	"github.com/montanaflynn/stats"
)

// ErrEmptyInput is returned when statistics are requested for no values
var ErrEmptyInput = errors.New("cannot compute statistics of an empty series")

// ErrNonFiniteResult is returned when finite inputs overflow the mean or
// standard deviation
var ErrNonFiniteResult = errors.New("statistics of the series are not finite")

// MsgStatsOutOfRange is returned to clients for ErrNonFiniteResult
const MsgStatsOutOfRange = "Data values are too large to compute statistics."

// ComputeStats returns the arithmetic mean and the population standard
// deviation (divisor N, not N-1) of values.
func ComputeStats(values []float64) (mean, stdDev float64, err error) {
	if len(values) == 0 {
		return 0, 0, ErrEmptyInput
	}

	data := stats.Float64Data(values)

	mean, err = stats.Mean(data)
	if err != nil {
		return 0, 0, err
	}

	stdDev, err = stats.StandardDeviationPopulation(data)
	if err != nil {
		return 0, 0, err
	}

	if !isFinite(mean) || !isFinite(stdDev) {
		return 0, 0, ErrNonFiniteResult
	}

	return mean, stdDev, nil
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
