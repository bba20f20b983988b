package model

import "time"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank orders priorities for sorting: high first. Anything unknown ranks as medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Normalize maps empty or unknown values to the default priority.
func (p Priority) Normalize() Priority {
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Done      bool      `json:"done"`
	Priority  Priority  `json:"priority"`
	DueDate   *Date     `json:"dueDate,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskAttrs are the optional attributes accepted when a task is added.
type TaskAttrs struct {
	Priority Priority
	DueDate  *Date
	// IdempotencyKey makes a repeated add return the task created the first time.
	IdempotencyKey string
}

// TaskPatch lists the fields one update changes. Nil fields are left alone.
type TaskPatch struct {
	Text     *string
	Priority *Priority
	// DueDate is applied when DueDateSet is true; nil then clears the date.
	DueDate    *Date
	DueDateSet bool
}

// Clone returns a deep copy of the sequence so callers can snapshot it.
func Clone(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		if t.DueDate != nil {
			d := *t.DueDate
			t.DueDate = &d
		}
		out[i] = t
	}
	return out
}
