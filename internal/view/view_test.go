package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BuzzLyutic/todo-list/internal/model"
)

var today = model.Date{Year: 2026, Month: 10, Day: 17}

func sample() []model.Task {
	return []model.Task{
		{ID: "1", Text: "Buy milk", Priority: model.PriorityLow},
		{ID: "2", Text: "Walk dog", Done: true, Priority: model.PriorityHigh},
		{ID: "3", Text: "Write report", Priority: model.PriorityHigh},
		{ID: "4", Text: "Call MOM", Done: true},
		{ID: "5", Text: "buy stamps", Priority: model.PriorityMedium},
	}
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestDerive_StatusFilter(t *testing.T) {
	tests := []struct {
		name   string
		status model.Status
		want   []string
	}{
		{"all keeps everything in order", model.StatusAll, []string{"1", "2", "3", "4", "5"}},
		{"active drops done", model.StatusActive, []string{"1", "3", "5"}},
		{"completed keeps only done", model.StatusCompleted, []string{"2", "4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Derive(sample(), model.ViewFilter{Status: tt.status, Sort: model.SortOrder}, today)
			assert.Equal(t, tt.want, ids(v.Items))
		})
	}
}

func TestDerive_ActiveNeverIncludesDone(t *testing.T) {
	inputs := [][]model.Task{
		nil,
		sample(),
		{{ID: "x", Text: "x", Done: true}},
		{{ID: "x", Text: "x", Done: true}, {ID: "y", Text: "y", Done: true}},
	}
	for _, tasks := range inputs {
		for _, sortKey := range []model.SortKey{model.SortOrder, model.SortPriority} {
			v := Derive(tasks, model.ViewFilter{Status: model.StatusActive, Sort: sortKey}, today)
			for _, it := range v.Items {
				assert.False(t, it.Done, "task %s is done", it.ID)
			}
		}
	}
}

func TestDerive_Search(t *testing.T) {
	tests := []struct {
		name   string
		search string
		status model.Status
		want   []string
	}{
		{"case insensitive", "BUY", model.StatusAll, []string{"1", "5"}},
		{"substring", "mo", model.StatusAll, []string{"4"}},
		{"combined with status", "o", model.StatusActive, []string{"3"}},
		{"whitespace only is no search", "   ", model.StatusAll, []string{"1", "2", "3", "4", "5"}},
		{"trimmed", "  dog ", model.StatusAll, []string{"2"}},
		{"no match", "zebra", model.StatusAll, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Derive(sample(), model.ViewFilter{Status: tt.status, Search: tt.search}, today)
			assert.Equal(t, tt.want, ids(v.Items))
		})
	}
}

func TestDerive_PrioritySortIsStable(t *testing.T) {
	v := Derive(sample(), model.ViewFilter{Status: model.StatusAll, Sort: model.SortPriority}, today)

	// high: 2,3; medium (incl. missing): 4,5; low: 1
	assert.Equal(t, []string{"2", "3", "4", "5", "1"}, ids(v.Items))
}

func TestDerive_DoesNotReorderInput(t *testing.T) {
	tasks := sample()
	Derive(tasks, model.ViewFilter{Status: model.StatusAll, Sort: model.SortPriority}, today)

	got := make([]string, 0, len(tasks))
	for _, task := range tasks {
		got = append(got, task.ID)
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, got)
}

func TestDerive_Counts(t *testing.T) {
	v := Derive(sample(), model.ViewFilter{Status: model.StatusCompleted, Search: "walk"}, today)

	assert.Equal(t, 5, v.TotalCount)
	assert.Equal(t, 3, v.ActiveCount)
	assert.Equal(t, 2, v.CompletedCount)
	assert.Equal(t, "3 items left", v.ItemsLeft)
	assert.True(t, v.ClearCompletedEnabled)
	assert.True(t, v.StatusBarVisible)
	assert.False(t, v.Empty)
}

func TestDerive_EmptyStates(t *testing.T) {
	onlyActive := []model.Task{{ID: "1", Text: "one"}}

	tests := []struct {
		name    string
		tasks   []model.Task
		filter  model.ViewFilter
		message string
	}{
		{"nothing at all", nil, model.ViewFilter{Status: model.StatusAll}, EmptyAll},
		{"no completed", onlyActive, model.ViewFilter{Status: model.StatusCompleted}, EmptyCompleted},
		{"no active", []model.Task{{ID: "1", Text: "one", Done: true}}, model.ViewFilter{Status: model.StatusActive}, EmptyActive},
		{"search miss", onlyActive, model.ViewFilter{Status: model.StatusAll, Search: "two"}, EmptySearch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Derive(tt.tasks, tt.filter, today)
			assert.True(t, v.Empty)
			assert.Equal(t, tt.message, v.EmptyMessage)
			assert.NotNil(t, v.Items)
		})
	}

	t.Run("status bar hidden when list is empty", func(t *testing.T) {
		v := Derive(nil, model.DefaultFilter(), today)
		assert.False(t, v.StatusBarVisible)
		assert.False(t, v.ClearCompletedEnabled)
		assert.Equal(t, "0 items left", v.ItemsLeft)
	})

	t.Run("clear completed disabled without done tasks", func(t *testing.T) {
		v := Derive(onlyActive, model.DefaultFilter(), today)
		assert.False(t, v.ClearCompletedEnabled)
		assert.Equal(t, "1 item left", v.ItemsLeft)
	})
}

func TestDerive_DecoratesDueDates(t *testing.T) {
	tomorrow := today.AddDays(1)
	tasks := []model.Task{
		{ID: "1", Text: "with date", DueDate: &tomorrow},
		{ID: "2", Text: "without"},
	}

	v := Derive(tasks, model.DefaultFilter(), today)
	assert.Equal(t, "Due tomorrow", v.Items[0].Due.Label)
	assert.Equal(t, "", v.Items[1].Due.Label)
}

func TestSummarize(t *testing.T) {
	past := today.AddDays(-2)
	tasks := []model.Task{
		{ID: "1", Text: "late", Priority: model.PriorityHigh, DueDate: &past},
		{ID: "2", Text: "late but done", Priority: model.PriorityLow, DueDate: &past, Done: true},
		{ID: "3", Text: "no priority"},
	}

	s := Summarize(tasks, today)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Active)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.Overdue)
	assert.Equal(t, map[model.Priority]int{
		model.PriorityHigh:   1,
		model.PriorityMedium: 1,
		model.PriorityLow:    1,
	}, s.ByPriority)
}
