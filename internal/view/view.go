// Package view derives what should be displayed from the task sequence and
// the session filter. Nothing here has side effects.
package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BuzzLyutic/todo-list/internal/model"
)

const (
	EmptyAll       = "No tasks yet. Add one above!"
	EmptyActive    = "No active tasks. Nice work!"
	EmptyCompleted = "No completed tasks yet."
	EmptySearch    = "No tasks match your search."
)

// Item is one displayed row.
type Item struct {
	model.Task
	Due DueStatus `json:"due"`
}

type View struct {
	Filter                model.ViewFilter `json:"filter"`
	Items                 []Item           `json:"items"`
	ActiveCount           int              `json:"activeCount"`
	CompletedCount        int              `json:"completedCount"`
	TotalCount            int              `json:"totalCount"`
	ItemsLeft             string           `json:"itemsLeft"`
	ClearCompletedEnabled bool             `json:"clearCompletedEnabled"`
	StatusBarVisible      bool             `json:"statusBarVisible"`
	Empty                 bool             `json:"empty"`
	EmptyMessage          string           `json:"emptyMessage,omitempty"`
}

// Filter returns the tasks that pass the status and search selection, in
// display order. The input slice is not modified.
func Filter(tasks []model.Task, f model.ViewFilter) []model.Task {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		switch f.Status {
		case model.StatusActive:
			if t.Done {
				continue
			}
		case model.StatusCompleted:
			if !t.Done {
				continue
			}
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Text), search) {
			continue
		}
		out = append(out, t)
	}

	if f.Sort == model.SortPriority {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Priority.Rank() < out[j].Priority.Rank()
		})
	}
	return out
}

// Derive builds the full view for the given filter.
func Derive(tasks []model.Task, f model.ViewFilter, today model.Date) View {
	filtered := Filter(tasks, f)

	v := View{
		Filter:     f,
		Items:      make([]Item, 0, len(filtered)),
		TotalCount: len(tasks),
	}
	for _, t := range filtered {
		v.Items = append(v.Items, Item{Task: t, Due: Due(t.DueDate, today)})
	}
	for _, t := range tasks {
		if t.Done {
			v.CompletedCount++
		}
	}
	v.ActiveCount = v.TotalCount - v.CompletedCount
	v.ItemsLeft = ItemsLeft(v.ActiveCount)
	v.ClearCompletedEnabled = v.CompletedCount > 0
	v.StatusBarVisible = v.TotalCount > 0
	v.Empty = len(filtered) == 0
	if v.Empty {
		v.EmptyMessage = emptyMessage(f)
	}
	return v
}

// ItemsLeft renders the status-bar count, e.g. "1 item left".
func ItemsLeft(active int) string {
	return fmt.Sprintf("%d %s left", active, plural(active, "item", "items"))
}

func emptyMessage(f model.ViewFilter) string {
	if strings.TrimSpace(f.Search) != "" {
		return EmptySearch
	}
	switch f.Status {
	case model.StatusActive:
		return EmptyActive
	case model.StatusCompleted:
		return EmptyCompleted
	default:
		return EmptyAll
	}
}

type Stats struct {
	Total      int                    `json:"total"`
	Active     int                    `json:"active"`
	Completed  int                    `json:"completed"`
	Overdue    int                    `json:"overdue"`
	ByPriority map[model.Priority]int `json:"byPriority"`
}

// Summarize counts tasks by state. Done tasks are never counted as overdue.
func Summarize(tasks []model.Task, today model.Date) Stats {
	s := Stats{
		Total: len(tasks),
		ByPriority: map[model.Priority]int{
			model.PriorityHigh:   0,
			model.PriorityMedium: 0,
			model.PriorityLow:    0,
		},
	}
	for _, t := range tasks {
		if t.Done {
			s.Completed++
		} else if Due(t.DueDate, today).Overdue {
			s.Overdue++
		}
		s.ByPriority[t.Priority.Normalize()]++
	}
	s.Active = s.Total - s.Completed
	return s
}
