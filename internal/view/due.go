package view

import (
	"fmt"

	"github.com/BuzzLyutic/todo-list/internal/model"
)

// LiteralDateLayout is used once a due date is more than a week away.
const LiteralDateLayout = "Jan 2, 2006"

type DueStatus struct {
	Label   string `json:"label,omitempty"`
	Overdue bool   `json:"overdue"`
	// Days is due minus today; meaningless when Label is empty.
	Days int `json:"days"`
}

// Due describes a due date relative to today. Both are whole calendar days.
func Due(due *model.Date, today model.Date) DueStatus {
	if due == nil || due.IsZero() {
		return DueStatus{}
	}

	diff := due.DaysSince(today)
	status := DueStatus{Days: diff}
	switch {
	case diff < 0:
		status.Overdue = true
		status.Label = fmt.Sprintf("Overdue by %d %s", -diff, plural(-diff, "day", "days"))
	case diff == 0:
		status.Label = "Due today"
	case diff == 1:
		status.Label = "Due tomorrow"
	case diff <= 7:
		status.Label = fmt.Sprintf("Due in %d days", diff)
	default:
		status.Label = due.Format(LiteralDateLayout)
	}
	return status
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
