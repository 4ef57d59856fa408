// Package billing prices recognized audio. Cost is computed from whole
// billable minutes in the provider's native currency (USD), converted to the
// display currency (INR) at a fixed rate, with a fixed markup on top.
package billing

import (
	"math"
)

// Default billing constants, overridable via configuration.
const (
	// DefaultUSDPerMinute is the provider's per-minute recognition price
	DefaultUSDPerMinute = 0.006
	// DefaultINRPerUSD is the fixed conversion rate to the display currency
	DefaultINRPerUSD = 84
	// DefaultMarkup is the multiplier applied on top of provider cost
	DefaultMarkup = 1.5
)

// Calculator computes billed cost from audio duration. It is a pure value
// type; construct once from configuration and pass by value.
type Calculator struct {
	usdPerMinute float64
	inrPerUSD    float64
	markup       float64
}

// NewCalculator creates a calculator with the given constants. Non-finite or
// negative constants fall back to the defaults.
func NewCalculator(usdPerMinute, inrPerUSD, markup float64) Calculator {
	if !isFiniteNonNegative(usdPerMinute) || usdPerMinute == 0 {
		usdPerMinute = DefaultUSDPerMinute
	}
	if !isFiniteNonNegative(inrPerUSD) || inrPerUSD == 0 {
		inrPerUSD = DefaultINRPerUSD
	}
	if !isFiniteNonNegative(markup) || markup == 0 {
		markup = DefaultMarkup
	}
	return Calculator{usdPerMinute: usdPerMinute, inrPerUSD: inrPerUSD, markup: markup}
}

// BillableMinutes converts a duration in seconds to whole billable minutes.
// Any submitted file consumes at least one minute, even when duration
// extraction failed and reported zero. Non-finite input counts as zero
// seconds before the minimum is applied.
func BillableMinutes(durationSeconds float64) int {
	if !isFiniteNonNegative(durationSeconds) {
		durationSeconds = 0
	}
	minutes := int(math.Ceil(durationSeconds / 60))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Cost prices the given billable minutes in the display currency, rounded to
// the nearest cent, half away from zero. Never returns NaN or Inf: invalid
// intermediates are normalized to 0.
func (c Calculator) Cost(minutes int) float64 {
	if minutes < 0 {
		minutes = 0
	}
	raw := float64(minutes) * c.usdPerMinute * c.inrPerUSD * c.markup
	if !isFiniteNonNegative(raw) {
		raw = 0
	}
	return Round2(raw)
}

// Round2 rounds to 2 decimal places, half away from zero
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

// SafeMinutes normalizes a minutes value before persistence: negative values
// become 0 so a stored record never carries a negative duration
func SafeMinutes(minutes int) int {
	if minutes < 0 {
		return 0
	}
	return minutes
}

// SafeCost normalizes a cost value before persistence: NaN, Inf and negative
// values become 0 so a stored record never carries an invalid cost
func SafeCost(cost float64) float64 {
	if !isFiniteNonNegative(cost) {
		return 0
	}
	return cost
}

func isFiniteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
