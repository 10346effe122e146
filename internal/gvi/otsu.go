package gvi

import (
	"gonum.org/v1/gonum/floats"
)

// Thresholder selects a scalar threshold over a signal. Implementations must
// be pure; OtsuThreshold is the default.
type Thresholder func(values []float64) float64

const otsuBins = 256

// OtsuThreshold picks the value that best separates a bimodal histogram by
// maximizing the between-class variance over a 256-bin histogram spanning the
// data range. A flat signal (max == min) returns that single value.
func OtsuThreshold(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	lo := floats.Min(values)
	hi := floats.Max(values)
	if hi == lo {
		return lo
	}

	var hist [otsuBins]float64
	binWidth := (hi - lo) / otsuBins
	for _, v := range values {
		bin := int((v - lo) / binWidth)
		if bin >= otsuBins {
			bin = otsuBins - 1
		}
		hist[bin]++
	}

	total := float64(len(values))
	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i) * c
	}

	var sumBack, weightBack float64
	var bestVar float64
	bestBin := 0
	for i := 0; i < otsuBins; i++ {
		weightBack += hist[i]
		if weightBack == 0 {
			continue
		}
		weightFore := total - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(i) * hist[i]
		meanBack := sumBack / weightBack
		meanFore := (sumAll - sumBack) / weightFore
		between := weightBack * weightFore * (meanBack - meanFore) * (meanBack - meanFore)
		if between > bestVar {
			bestVar = between
			bestBin = i
		}
	}

	// Bin center, matching the usual histogram-based selector.
	return lo + (float64(bestBin)+0.5)*binWidth
}
