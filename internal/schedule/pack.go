package schedule

import (
	"strconv"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

// Entry is one topic on one day of the schedule.
type Entry struct {
	Subject    string                `json:"subject"`
	Topic      string                `json:"topic"`
	Time       string                `json:"time"`
	Difficulty curriculum.Difficulty `json:"difficulty"`
	TopicID    string                `json:"topic_id"`
}

// DailySchedule maps "day1".."dayN" to the topics studied that day, in input order.
type DailySchedule map[string][]Entry

// DayKey returns the schedule key for day n (1-based).
func DayKey(n int) string {
	return "day" + strconv.Itoa(n)
}

// Day returns the entries of day n.
func (s DailySchedule) Day(n int) []Entry {
	return s[DayKey(n)]
}

// Placement records the day a topic was packed into.
type Placement struct {
	TopicID                string `json:"topic_id"`
	Day                    int    `json:"day"`
	AllocatedMinutes       int    `json:"allocated_minutes"`
	AllocatedTimeFormatted string `json:"allocated_time_formatted"`
}

// Packing is the outcome of Pack.
type Packing struct {
	DailySchedule DailySchedule
	// TotalDays is the number of days actually populated.
	TotalDays  int
	Placements []Placement
	// Dropped lists, in input order, topics that did not fit in the day budget.
	Dropped []string
}

// Partial reports whether any topic was dropped.
func (p Packing) Partial() bool {
	return len(p.Dropped) > 0
}

// Pack assigns topics to days in one forward pass. A day is closed when the
// next topic would push it past hoursPerDay and it already holds a topic, so
// a single oversized topic still gets a day of its own. Once the day count
// would exceed totalDays the remaining topics are dropped. Pack never fails
// and does not modify its input.
func Pack(weighted []WeightedTopic, hoursPerDay float64, totalDays int) Packing {
	p := Packing{DailySchedule: DailySchedule{}}
	if totalDays < 1 {
		for _, wt := range weighted {
			p.Dropped = append(p.Dropped, wt.ID)
		}
		return p
	}

	minutesPerDay := hoursPerDay * 60
	day := 1
	dayMinutes := 0
	var current []Entry

	for i, wt := range weighted {
		if float64(dayMinutes+wt.AllocatedMinutes) > minutesPerDay && len(current) > 0 {
			p.DailySchedule[DayKey(day)] = current
			day++
			dayMinutes = 0
			current = nil

			if day > totalDays {
				for _, rest := range weighted[i:] {
					p.Dropped = append(p.Dropped, rest.ID)
				}
				break
			}
		}

		current = append(current, Entry{
			Subject:    wt.Subject,
			Topic:      wt.Name,
			Time:       wt.AllocatedTimeFormatted,
			Difficulty: wt.Difficulty,
			TopicID:    wt.ID,
		})
		dayMinutes += wt.AllocatedMinutes
		p.Placements = append(p.Placements, Placement{
			TopicID:                wt.ID,
			Day:                    day,
			AllocatedMinutes:       wt.AllocatedMinutes,
			AllocatedTimeFormatted: wt.AllocatedTimeFormatted,
		})
	}

	if len(current) > 0 && day <= totalDays {
		p.DailySchedule[DayKey(day)] = current
	}
	p.TotalDays = min(day, totalDays)
	return p
}
