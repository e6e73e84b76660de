package stats

import "math"

// Mean returns NaN for an empty series.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// StdDev is the population standard deviation (divides by n).
func StdDev(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	m := Mean(vals)
	s := 0.0
	for _, v := range vals {
		d := v - m
		s += d * d
	}
	return math.Sqrt(s / float64(len(vals)))
}

// PctChange returns (v[i]-v[i-1])/v[i-1] for consecutive pairs.
func PctChange(vals []float64) []float64 {
	if len(vals) < 2 {
		return nil
	}
	out := make([]float64, 0, len(vals)-1)
	for i := 1; i < len(vals); i++ {
		out = append(out, (vals[i]-vals[i-1])/vals[i-1])
	}
	return out
}

// RunningMax returns the cumulative maximum of vals.
func RunningMax(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		if i == 0 || v > out[i-1] {
			out[i] = v
		} else {
			out[i] = out[i-1]
		}
	}
	return out
}
