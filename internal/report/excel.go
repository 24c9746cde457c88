// Package report builds admin progress reports over the active course
// sessions and serves them as spreadsheet downloads.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pathwise/learnbot/internal/course"
)

const sheetName = "Progress"

var headerRow = []string{
	"User ID", "Channel", "Topic", "Stage", "Current Module",
	"Modules Completed", "Completed List", "Project Assigned", "Started", "Last Activity",
}

// BuildWorkbook renders one row per session, ordered by user id so repeated
// exports diff cleanly.
func BuildWorkbook(sessions []*course.Session) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	for col, title := range headerRow {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return nil, err
		}
	}

	sorted := make([]*course.Session, len(sessions))
	copy(sorted, sessions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UserID < sorted[j].UserID })

	for i, s := range sorted {
		completed := make([]string, 0, s.CompletedCount())
		for _, n := range s.CompletedList() {
			completed = append(completed, fmt.Sprintf("%d", n))
		}
		values := []any{
			s.UserID,
			s.Channel,
			s.Topic,
			string(s.State),
			s.CurrentModule,
			s.CompletedCount(),
			strings.Join(completed, ", "),
			s.ProjectAssigned,
			s.CreatedAt.Format("2006-01-02 15:04"),
			s.UpdatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "J", 18); err != nil {
		return nil, err
	}
	return f, nil
}
