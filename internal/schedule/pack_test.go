package schedule_test

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/schedule"
)

func weighted(id string, minutes int) schedule.WeightedTopic {
	return schedule.WeightedTopic{
		Topic:                  topic(id, curriculum.DifficultyMedium),
		Weight:                 1,
		AllocatedMinutes:       minutes,
		AllocatedTimeFormatted: schedule.FormatMinutes(minutes),
	}
}

func TestPack_AllFitInOneDay(t *testing.T) {
	p := schedule.Pack([]schedule.WeightedTopic{
		weighted("t1", 42),
		weighted("t2", 78),
	}, 2, 1)

	if p.TotalDays != 1 {
		t.Errorf("TotalDays = %d, want 1", p.TotalDays)
	}
	if got := len(p.DailySchedule.Day(1)); got != 2 {
		t.Fatalf("day1 entries = %d, want 2", got)
	}
	if p.DailySchedule.Day(1)[0].TopicID != "t1" || p.DailySchedule.Day(1)[1].TopicID != "t2" {
		t.Errorf("day1 order = %+v, want t1 then t2", p.DailySchedule.Day(1))
	}
	if p.Partial() {
		t.Errorf("Partial() = true, dropped %v", p.Dropped)
	}
}

func TestPack_OnePerDay(t *testing.T) {
	p := schedule.Pack([]schedule.WeightedTopic{
		weighted("t1", 50),
		weighted("t2", 50),
		weighted("t3", 50),
	}, 1, 3)

	if p.TotalDays != 3 {
		t.Errorf("TotalDays = %d, want 3", p.TotalDays)
	}
	for day, id := range []string{"t1", "t2", "t3"} {
		entries := p.DailySchedule.Day(day + 1)
		if len(entries) != 1 || entries[0].TopicID != id {
			t.Errorf("day%d = %+v, want only %s", day+1, entries, id)
		}
	}
	for i, pl := range p.Placements {
		if pl.Day != i+1 {
			t.Errorf("placement %s day = %d, want %d", pl.TopicID, pl.Day, i+1)
		}
	}
}

func TestPack_TruncatesWhenDaysRunOut(t *testing.T) {
	input := []schedule.WeightedTopic{
		weighted("t1", 50),
		weighted("t2", 50),
		weighted("t3", 50),
	}
	p := schedule.Pack(input, 1, 2)

	if p.TotalDays != 2 {
		t.Errorf("TotalDays = %d, want 2", p.TotalDays)
	}
	if len(p.Placements) != 2 {
		t.Errorf("placements = %d, want 2", len(p.Placements))
	}
	if len(p.DailySchedule) != 2 {
		t.Errorf("schedule days = %d, want 2", len(p.DailySchedule))
	}
	if !p.Partial() || len(p.Dropped) != 1 || p.Dropped[0] != "t3" {
		t.Errorf("Dropped = %v, want [t3]", p.Dropped)
	}
	if len(input)-len(p.Placements) != len(p.Dropped) {
		t.Errorf("input %d - placed %d != dropped %d", len(input), len(p.Placements), len(p.Dropped))
	}
}

func TestPack_DropsEverythingAfterOverflow(t *testing.T) {
	p := schedule.Pack([]schedule.WeightedTopic{
		weighted("t1", 60),
		weighted("t2", 60),
		weighted("t3", 10),
		weighted("t4", 10),
	}, 1, 1)

	want := []string{"t2", "t3", "t4"}
	if fmt.Sprint(p.Dropped) != fmt.Sprint(want) {
		t.Errorf("Dropped = %v, want %v", p.Dropped, want)
	}
	if p.TotalDays != 1 {
		t.Errorf("TotalDays = %d, want 1", p.TotalDays)
	}
}

func TestPack_OversizedTopicStillPlaced(t *testing.T) {
	p := schedule.Pack([]schedule.WeightedTopic{
		weighted("big", 200),
		weighted("small", 10),
	}, 1, 5)

	if got := p.DailySchedule.Day(1); len(got) != 1 || got[0].TopicID != "big" {
		t.Errorf("day1 = %+v, want only big", got)
	}
	if got := p.DailySchedule.Day(2); len(got) != 1 || got[0].TopicID != "small" {
		t.Errorf("day2 = %+v, want only small", got)
	}
	if p.TotalDays != 2 {
		t.Errorf("TotalDays = %d, want 2", p.TotalDays)
	}
}

func TestPack_DoesNotModifyInput(t *testing.T) {
	input := []schedule.WeightedTopic{weighted("t1", 50), weighted("t2", 50)}
	before := fmt.Sprintf("%+v", input)

	schedule.Pack(input, 1, 3)

	if after := fmt.Sprintf("%+v", input); after != before {
		t.Errorf("input changed:\nbefore %s\nafter  %s", before, after)
	}
}

func TestPack_ZeroDayBudgetDropsAll(t *testing.T) {
	p := schedule.Pack([]schedule.WeightedTopic{weighted("t1", 10)}, 1, 0)

	if len(p.Placements) != 0 || len(p.Dropped) != 1 {
		t.Errorf("placements = %d, dropped = %v", len(p.Placements), p.Dropped)
	}
}

func TestPack_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))

	for run := 0; run < 300; run++ {
		n := 1 + rng.IntN(30)
		input := make([]schedule.WeightedTopic, n)
		for i := range input {
			input[i] = weighted(fmt.Sprintf("t%d", i), rng.IntN(150))
		}
		hours := float64(1 + rng.IntN(4))
		days := 1 + rng.IntN(10)
		minutesPerDay := int(hours * 60)

		p := schedule.Pack(input, hours, days)

		// Every topic is either placed or dropped, exactly once.
		if len(p.Placements)+len(p.Dropped) != n {
			t.Fatalf("run %d: placed %d + dropped %d != %d", run, len(p.Placements), len(p.Dropped), n)
		}

		// Days never decrease in input order and stay within budget.
		last := 1
		for _, pl := range p.Placements {
			if pl.Day < last || pl.Day > days {
				t.Fatalf("run %d: day %d after %d (budget %d)", run, pl.Day, last, days)
			}
			last = pl.Day
		}

		// Days with two or more topics respect the cap.
		for key, entries := range p.DailySchedule {
			if len(entries) < 2 {
				continue
			}
			sum := 0
			for _, e := range entries {
				sum += minutesOf(input, e.TopicID)
			}
			if sum > minutesPerDay {
				t.Fatalf("run %d: %s holds %d minutes, cap %d", run, key, sum, minutesPerDay)
			}
		}

		// Day keys are contiguous from day1 to dayTotalDays.
		if len(p.DailySchedule) != p.TotalDays {
			t.Fatalf("run %d: %d schedule days, TotalDays %d", run, len(p.DailySchedule), p.TotalDays)
		}
		for d := 1; d <= p.TotalDays; d++ {
			if len(p.DailySchedule.Day(d)) == 0 {
				t.Fatalf("run %d: %s is empty", run, schedule.DayKey(d))
			}
		}
	}
}

func minutesOf(input []schedule.WeightedTopic, id string) int {
	for _, wt := range input {
		if wt.ID == id {
			return wt.AllocatedMinutes
		}
	}
	return 0
}

func TestPlanner_Plan(t *testing.T) {
	planner := schedule.NewPlanner(schedule.DefaultWeights())

	res, err := planner.Plan([]curriculum.Topic{
		topic("t1", curriculum.DifficultyEasy),
		topic("t2", curriculum.DifficultyHard),
	}, schedule.Options{HoursPerDay: 2, TotalDays: 1})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if res.Scheduled() != 2 {
		t.Errorf("Scheduled() = %d, want 2", res.Scheduled())
	}
	if res.Packing.TotalDays != 1 {
		t.Errorf("TotalDays = %d, want 1", res.Packing.TotalDays)
	}
}

func TestPlanner_Plan_InvalidInput(t *testing.T) {
	planner := schedule.NewPlanner(schedule.DefaultWeights())
	valid := []curriculum.Topic{topic("t1", curriculum.DifficultyEasy)}

	tests := []struct {
		name   string
		topics []curriculum.Topic
		opts   schedule.Options
		field  string
	}{
		{"no topics", nil, schedule.DefaultOptions(), "topics"},
		{"zero hours", valid, schedule.Options{HoursPerDay: 0, TotalDays: 3}, "study_hours_per_day"},
		{"negative hours", valid, schedule.Options{HoursPerDay: -1, TotalDays: 3}, "study_hours_per_day"},
		{"zero days", valid, schedule.Options{HoursPerDay: 2, TotalDays: 0}, "total_days"},
		{"more than a day of hours", valid, schedule.Options{HoursPerDay: 24.5, TotalDays: 3}, "study_hours_per_day"},
		{"huge hours", valid, schedule.Options{HoursPerDay: 1e20, TotalDays: 30}, "study_hours_per_day"},
		{"NaN hours", valid, schedule.Options{HoursPerDay: math.NaN(), TotalDays: 3}, "study_hours_per_day"},
		{"too many days", valid, schedule.Options{HoursPerDay: 2, TotalDays: schedule.MaxTotalDays + 1}, "total_days"},
		{"missing id", []curriculum.Topic{{Name: "x"}}, schedule.DefaultOptions(), "topics"},
		{"duplicate id", []curriculum.Topic{topic("t1", ""), topic("t1", "")}, schedule.DefaultOptions(), "topics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := planner.Plan(tt.topics, tt.opts)
			if !errors.Is(err, schedule.ErrInvalidInput) {
				t.Fatalf("Plan() error = %v, want ErrInvalidInput", err)
			}
			var verr *schedule.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("field = %v, want %q", verr, tt.field)
			}
		})
	}
}
