// Package studyplan holds the persisted study plan aggregate: the schedule
// produced for one user and syllabus together with per-topic completion state.
package studyplan

import (
	"encoding/json"
	"time"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/schedule"
)

// Status is the completion state of a topic entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Fallback allocation for a topic with no placement (dropped by truncation).
const (
	fallbackMinutes   = 60
	fallbackFormatted = "1h"
	fallbackDay       = 1
)

// AllocatedTime is a topic's share of study time.
type AllocatedTime struct {
	Minutes   int    `json:"minutes"`
	Formatted string `json:"formatted"`
}

// TopicEntry tracks one topic inside a plan.
type TopicEntry struct {
	TopicID       string                `json:"topic_id"`
	Subject       string                `json:"subject,omitempty"`
	Name          string                `json:"name,omitempty"`
	Status        Status                `json:"status"`
	AllocatedTime AllocatedTime         `json:"allocated_time"`
	ScheduledDay  int                   `json:"scheduled_day"`
	Difficulty    curriculum.Difficulty `json:"difficulty"`
	CompletedAt   *time.Time            `json:"completed_at"`
}

// Schedule is the day-by-day layout stored with a plan.
type Schedule struct {
	TotalDays        int                    `json:"total_days"`
	StudyHoursPerDay float64                `json:"study_hours_per_day"`
	DailySchedule    schedule.DailySchedule `json:"daily_schedule"`
}

// Plan is the aggregate root. Topics and Schedule are fixed at creation;
// afterwards only entry Status and CompletedAt change.
type Plan struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	SyllabusID      string       `json:"syllabus_id,omitempty"`
	Fingerprint     string       `json:"fingerprint"`
	Topics          []TopicEntry `json:"topics"`
	Schedule        Schedule     `json:"schedule"`
	Partial         bool         `json:"partial"`
	DroppedTopicIDs []string     `json:"dropped_topic_ids,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// NewPlan assembles a plan from a scheduling result. Entries follow the order
// of topics and take their allocation from the weighted topic with the same
// ID and their day from its placement. Dropped topics keep their allocation
// and are put on day 1.
func NewPlan(userID, syllabusID string, topics []curriculum.Topic, opts schedule.Options, res schedule.Result, now time.Time) *Plan {
	weighted := make(map[string]schedule.WeightedTopic, len(res.Weighted))
	for _, wt := range res.Weighted {
		weighted[wt.ID] = wt
	}
	days := make(map[string]int, len(res.Packing.Placements))
	for _, pl := range res.Packing.Placements {
		days[pl.TopicID] = pl.Day
	}

	entries := make([]TopicEntry, 0, len(topics))
	for _, t := range topics {
		entry := TopicEntry{
			TopicID:    t.ID,
			Subject:    t.Subject,
			Name:       t.Name,
			Status:     StatusPending,
			Difficulty: t.Difficulty,
			AllocatedTime: AllocatedTime{
				Minutes:   fallbackMinutes,
				Formatted: fallbackFormatted,
			},
			ScheduledDay: fallbackDay,
		}
		if wt, ok := weighted[t.ID]; ok {
			entry.AllocatedTime = AllocatedTime{Minutes: wt.AllocatedMinutes, Formatted: wt.AllocatedTimeFormatted}
		}
		if day, ok := days[t.ID]; ok {
			entry.ScheduledDay = day
		}
		entries = append(entries, entry)
	}

	return &Plan{
		UserID:     userID,
		SyllabusID: syllabusID,
		Topics:     entries,
		Schedule: Schedule{
			TotalDays:        res.Packing.TotalDays,
			StudyHoursPerDay: opts.HoursPerDay,
			DailySchedule:    res.Packing.DailySchedule,
		},
		Partial:         res.Packing.Partial(),
		DroppedTopicIDs: append([]string(nil), res.Packing.Dropped...),
		CreatedAt:       now,
	}
}

// Entry returns the entry for a topic.
func (p *Plan) Entry(topicID string) (TopicEntry, bool) {
	for _, e := range p.Topics {
		if e.TopicID == topicID {
			return e, true
		}
	}
	return TopicEntry{}, false
}

// Contains reports whether the plan has an entry for topicID.
func (p *Plan) Contains(topicID string) bool {
	_, ok := p.Entry(topicID)
	return ok
}

// Apply runs a transition on every entry for topicID. It reports whether the
// topic was found and whether anything changed.
func (p *Plan) Apply(topicID string, t Transition) (found, changed bool) {
	for i := range p.Topics {
		if p.Topics[i].TopicID != topicID {
			continue
		}
		found = true
		if t.Apply(&p.Topics[i]) {
			changed = true
		}
	}
	return found, changed
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.Topics = make([]TopicEntry, len(p.Topics))
	for i, e := range p.Topics {
		if e.CompletedAt != nil {
			at := *e.CompletedAt
			e.CompletedAt = &at
		}
		c.Topics[i] = e
	}
	c.DroppedTopicIDs = append([]string(nil), p.DroppedTopicIDs...)
	c.Schedule.DailySchedule = make(schedule.DailySchedule, len(p.Schedule.DailySchedule))
	for k, v := range p.Schedule.DailySchedule {
		c.Schedule.DailySchedule[k] = append([]schedule.Entry(nil), v...)
	}
	return &c
}

// MarshalDailySchedule encodes the daily schedule for storage.
func (s Schedule) MarshalDailySchedule() ([]byte, error) {
	if s.DailySchedule == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.DailySchedule)
}
