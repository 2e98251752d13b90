package schedule

import (
	"math"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

const (
	DefaultHoursPerDay = 2
	DefaultTotalDays   = 30

	MaxHoursPerDay = 24
	// MaxTotalDays keeps the minute budget far inside int range.
	MaxTotalDays = 3650
)

// Options are the per-run scheduling parameters.
type Options struct {
	HoursPerDay float64 `json:"study_hours_per_day"`
	TotalDays   int     `json:"total_days"`
}

// DefaultOptions returns 2 hours per day over 30 days.
func DefaultOptions() Options {
	return Options{HoursPerDay: DefaultHoursPerDay, TotalDays: DefaultTotalDays}
}

// Validate requires 0 < HoursPerDay <= 24 and 1 <= TotalDays <= MaxTotalDays.
func (o Options) Validate() error {
	if !(o.HoursPerDay > 0) || math.IsInf(o.HoursPerDay, 0) {
		return invalid("study_hours_per_day", "must be positive, got %v", o.HoursPerDay)
	}
	if o.HoursPerDay > MaxHoursPerDay {
		return invalid("study_hours_per_day", "must be at most %d, got %v", MaxHoursPerDay, o.HoursPerDay)
	}
	if o.TotalDays < 1 {
		return invalid("total_days", "must be at least 1, got %d", o.TotalDays)
	}
	if o.TotalDays > MaxTotalDays {
		return invalid("total_days", "must be at most %d, got %d", MaxTotalDays, o.TotalDays)
	}
	return nil
}

// Result is the full output of one scheduling run.
type Result struct {
	Weighted []WeightedTopic
	Packing  Packing
}

// Scheduled returns how many topics were placed on a day.
func (r Result) Scheduled() int {
	return len(r.Packing.Placements)
}

// Planner runs allocation followed by packing.
type Planner struct {
	allocator *Allocator
}

// NewPlanner creates a planner with the given weight table.
func NewPlanner(w Weights) *Planner {
	return &Planner{allocator: NewAllocator(w)}
}

// Plan validates the input, allocates minutes and packs topics into days.
// Running out of days is reported through Result.Packing.Dropped, not as an error.
func (p *Planner) Plan(topics []curriculum.Topic, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if err := validateTopics(topics); err != nil {
		return Result{}, err
	}

	weighted := p.allocator.Allocate(topics, opts.HoursPerDay, opts.TotalDays)
	return Result{
		Weighted: weighted,
		Packing:  Pack(weighted, opts.HoursPerDay, opts.TotalDays),
	}, nil
}

func validateTopics(topics []curriculum.Topic) error {
	if len(topics) == 0 {
		return invalid("topics", "at least one topic is required")
	}
	seen := make(map[string]struct{}, len(topics))
	for i, t := range topics {
		if t.ID == "" {
			return invalid("topics", "topic %d has no id", i)
		}
		if _, dup := seen[t.ID]; dup {
			return invalid("topics", "duplicate topic id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}
