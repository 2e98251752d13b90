// Package schedule turns a list of topics into a day-by-day study schedule.
// Time is split across topics in proportion to difficulty weights, then
// topics are packed greedily, in input order, into days with a minute cap.
package schedule

import (
	"fmt"
	"math"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

// Weights gives each difficulty its relative share of study time.
type Weights struct {
	Easy     float64
	Medium   float64
	Hard     float64
	Fallback float64 // unknown or missing difficulty
}

// DefaultWeights returns easy 0.8, medium 1.0, hard 1.5 and 1.0 otherwise.
func DefaultWeights() Weights {
	return Weights{Easy: 0.8, Medium: 1.0, Hard: 1.5, Fallback: 1.0}
}

// For returns the weight of a difficulty. Only the canonical lower-case
// names match; anything else gets Fallback.
func (w Weights) For(d curriculum.Difficulty) float64 {
	switch d {
	case curriculum.DifficultyEasy:
		return w.Easy
	case curriculum.DifficultyMedium:
		return w.Medium
	case curriculum.DifficultyHard:
		return w.Hard
	}
	return w.Fallback
}

// Validate checks that every weight is positive and finite.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"easy", w.Easy},
		{"medium", w.Medium},
		{"hard", w.Hard},
		{"fallback", w.Fallback},
	} {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return invalid("weights."+f.name, "must be a positive number, got %v", f.v)
		}
	}
	return nil
}

// WeightedTopic is a topic with its share of the total study time.
type WeightedTopic struct {
	curriculum.Topic
	Weight                 float64
	AllocatedMinutes       int
	AllocatedTimeFormatted string
}

// Allocator splits total study time across topics by difficulty weight.
type Allocator struct {
	weights Weights
}

// NewAllocator creates an allocator using the given weight table.
func NewAllocator(w Weights) *Allocator {
	return &Allocator{weights: w}
}

// Weights returns the allocator's weight table.
func (a *Allocator) Weights() Weights {
	return a.weights
}

// Allocate gives every topic round(weight/totalWeight * totalMinutes) minutes,
// where totalMinutes = hoursPerDay*60*totalDays. Rounding is per topic, so the
// sum may differ from totalMinutes by at most one minute per topic. The
// result keeps input order; empty input gives an empty result.
func (a *Allocator) Allocate(topics []curriculum.Topic, hoursPerDay float64, totalDays int) []WeightedTopic {
	out := make([]WeightedTopic, len(topics))
	if len(topics) == 0 {
		return out
	}

	totalWeight := 0.0
	for i, t := range topics {
		w := a.weights.For(t.Difficulty)
		out[i] = WeightedTopic{Topic: t, Weight: w}
		totalWeight += w
	}

	totalMinutes := hoursPerDay * 60 * float64(totalDays)
	for i := range out {
		minutes := 0
		if totalWeight > 0 {
			minutes = roundHalfUp(out[i].Weight / totalWeight * totalMinutes)
		}
		out[i].AllocatedMinutes = minutes
		out[i].AllocatedTimeFormatted = FormatMinutes(minutes)
	}
	return out
}

// FormatMinutes renders minutes as "2h 5m", "2h" or "45m".
func FormatMinutes(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
