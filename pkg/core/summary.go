package core

import (
	"fmt"
	"time"
)

// Summary reports the effect of one session operation.
type Summary struct {
	SessionID     string
	Op            string
	Target        string
	RowsBefore    int64
	RowsAfter     int64
	ColumnsBefore int
	ColumnsAfter  int
	Duration      time.Duration
	Err           error
}

// Message renders the summary the way it is shown to users.
func (s Summary) Message() string {
	if s.Err != nil {
		return fmt.Sprintf("%s failed: %v", s.Op, s.Err)
	}
	switch s.Op {
	case "input":
		return fmt.Sprintf("inputted %d variables and %d observations", s.ColumnsAfter, s.RowsAfter)
	case "read":
		return fmt.Sprintf("read %d variables from %s", s.ColumnsAfter, s.Target)
	case "write":
		return fmt.Sprintf("wrote %d variables to %s", s.ColumnsAfter, s.Target)
	case "clear":
		return fmt.Sprintf("dropped %d variables", s.ColumnsBefore)
	case "keep":
		return fmt.Sprintf("kept %d variables", s.ColumnsAfter)
	case "drop":
		return fmt.Sprintf("dropped %d variables", s.ColumnsBefore-s.ColumnsAfter)
	case "generate":
		return fmt.Sprintf("generated %s", s.Target)
	case "replace":
		return fmt.Sprintf("replaced %s (%d observations)", s.Target, s.RowsAfter)
	case "rename":
		return fmt.Sprintf("renamed %s", s.Target)
	case "keep_if", "drop_if", "dropna", "drop_duplicates":
		return fmt.Sprintf("dropped %d of %d observations", s.RowsBefore-s.RowsAfter, s.RowsBefore)
	case "merge", "append":
		return fmt.Sprintf("%s %s: %d variables and %d observations", s.Op, s.Target, s.ColumnsAfter, s.RowsAfter)
	case "groupby":
		return fmt.Sprintf("grouped %d observations into %d", s.RowsBefore, s.RowsAfter)
	default:
		return fmt.Sprintf("%s: %d variables and %d observations", s.Op, s.ColumnsAfter, s.RowsAfter)
	}
}
