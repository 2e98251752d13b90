package studyplan

import (
	"math"
	"time"
)

// Progress is the derived completion summary of one plan.
type Progress struct {
	PlanID             string    `json:"study_plan_id"`
	SyllabusID         string    `json:"syllabus_id,omitempty"`
	TotalTopics        int       `json:"total_topics"`
	CompletedTopics    int       `json:"completed_topics"`
	ProgressPercentage int       `json:"progress_percentage"`
	CreatedAt          time.Time `json:"created_at"`
}

// ComputeProgress counts completed entries. The percentage is rounded half
// up and is 0 for a plan without topics.
func ComputeProgress(p *Plan) Progress {
	prog := Progress{
		PlanID:      p.ID,
		SyllabusID:  p.SyllabusID,
		TotalTopics: len(p.Topics),
		CreatedAt:   p.CreatedAt,
	}
	for _, e := range p.Topics {
		if e.Status == StatusCompleted {
			prog.CompletedTopics++
		}
	}
	if prog.TotalTopics > 0 {
		pct := 100 * float64(prog.CompletedTopics) / float64(prog.TotalTopics)
		prog.ProgressPercentage = int(math.Floor(pct + 0.5))
	}
	return prog
}

// ProgressEvent is published after a topic changes state.
type ProgressEvent struct {
	UserID   string    `json:"user_id"`
	TopicID  string    `json:"topic_id"`
	Status   Status    `json:"status"`
	Progress Progress  `json:"progress"`
	At       time.Time `json:"at"`
}
