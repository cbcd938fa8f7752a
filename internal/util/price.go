// Package util provides price arithmetic shared by the paper engine.
package util

import "math"

// quotient divides x by tick and snaps near-integer results so that exact
// tick multiples survive float division (1.30/0.05 is 25.999...96).
func quotient(x, tick float64) (float64, bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x, false
	}
	tick = math.Abs(tick)
	if tick == 0 {
		return x, false
	}
	q := x / tick
	if r := math.Round(q); math.Abs(q-r) < 1e-12 {
		q = r
	}
	return q, true
}

// RoundToTick rounds x to the nearest tick increment, ties away from zero.
func RoundToTick(x, tick float64) float64 {
	q, ok := quotient(x, tick)
	if !ok {
		return x
	}
	return math.Round(q) * math.Abs(tick)
}

// FloorToTick rounds x down to a tick multiple. Use it for credits so a
// simulated fill never assumes more premium than the book shows.
func FloorToTick(x, tick float64) float64 {
	q, ok := quotient(x, tick)
	if !ok {
		return x
	}
	return math.Floor(q) * math.Abs(tick)
}

// CeilToTick rounds x up to a tick multiple. Use it for debits.
func CeilToTick(x, tick float64) float64 {
	q, ok := quotient(x, tick)
	if !ok {
		return x
	}
	return math.Ceil(q) * math.Abs(tick)
}
