// Package export renders study plans as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-planner/internal/studyplan"
)

const (
	ScheduleSheet = "Schedule"
	ProgressSheet = "Progress"

	// ContentType is the MIME type of the written workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	scheduleHeader = []any{"Day", "Subject", "Topic", "Time", "Difficulty", "Status"}
	topicHeader    = []any{"Topic ID", "Subject", "Topic", "Status", "Completed At"}
)

// WriteSchedule writes plan as an XLSX workbook with a day-by-day Schedule
// sheet and a Progress sheet.
func WriteSchedule(w io.Writer, plan *studyplan.Plan) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ScheduleSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ProgressSheet); err != nil {
		return fmt.Errorf("create progress sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeScheduleSheet(f, plan, header); err != nil {
		return err
	}
	if err := writeProgressSheet(f, plan, header); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeScheduleSheet(f *excelize.File, plan *studyplan.Plan, header int) error {
	status := make(map[string]studyplan.Status, len(plan.Topics))
	for _, e := range plan.Topics {
		status[e.TopicID] = e.Status
	}

	rows := [][]any{scheduleHeader}
	for day := 1; day <= plan.Schedule.TotalDays; day++ {
		for _, e := range plan.Schedule.DailySchedule.Day(day) {
			rows = append(rows, []any{day, e.Subject, e.Topic, e.Time, string(e.Difficulty), string(status[e.TopicID])})
		}
	}
	for _, id := range plan.DroppedTopicIDs {
		e, ok := plan.Entry(id)
		if !ok {
			continue
		}
		rows = append(rows, []any{"Unscheduled", e.Subject, e.Name, e.AllocatedTime.Formatted, string(e.Difficulty), string(e.Status)})
	}

	if err := setRows(f, ScheduleSheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(ScheduleSheet, "A1", "F1", header); err != nil {
		return fmt.Errorf("style schedule header: %w", err)
	}
	widths := map[string]float64{"A": 12, "B": 24, "C": 40, "D": 10, "E": 12, "F": 12}
	for col, width := range widths {
		if err := f.SetColWidth(ScheduleSheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	return nil
}

func writeProgressSheet(f *excelize.File, plan *studyplan.Plan, header int) error {
	p := studyplan.ComputeProgress(plan)

	rows := [][]any{
		{"Plan ID", p.PlanID},
		{"Syllabus ID", p.SyllabusID},
		{"Total Topics", p.TotalTopics},
		{"Completed Topics", p.CompletedTopics},
		{"Progress %", p.ProgressPercentage},
		{"Created At", p.CreatedAt.UTC().Format(time.RFC3339)},
		{},
		topicHeader,
	}
	for _, e := range plan.Topics {
		completed := ""
		if e.CompletedAt != nil {
			completed = e.CompletedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []any{e.TopicID, e.Subject, e.Name, string(e.Status), completed})
	}

	if err := setRows(f, ProgressSheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(ProgressSheet, "A1", "A6", header); err != nil {
		return fmt.Errorf("style progress labels: %w", err)
	}
	if err := f.SetCellStyle(ProgressSheet, "A8", "E8", header); err != nil {
		return fmt.Errorf("style topic header: %w", err)
	}
	if err := f.SetColWidth(ProgressSheet, "A", "E", 20); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
