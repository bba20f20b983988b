package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-list/internal/model"
	"github.com/BuzzLyutic/todo-list/internal/repo"
	"github.com/BuzzLyutic/todo-list/internal/view"
)

var (
	ErrValidation = errors.New("validation error")
)

// Persister is the persistence adapter the controller writes through.
type Persister interface {
	Load(ctx context.Context) []model.Task
	Save(ctx context.Context, tasks []model.Task) error
	LoadTheme(ctx context.Context) model.Theme
	SaveTheme(ctx context.Context, theme model.Theme) error
	LoadIdempotency(ctx context.Context, key string) string
	SaveIdempotency(ctx context.Context, key, taskID string) error
}

// Toaster receives fire-and-forget notifications.
type Toaster interface {
	Show(message string)
}

type Options struct {
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Location decides which calendar day "today" is. Defaults to time.Local.
	Location *time.Location
	// NewID defaults to random UUIDs.
	NewID func() string
	// ConfirmDestructive makes Delete and ClearCompleted no-ops unless confirmed.
	ConfirmDestructive bool
	Toaster            Toaster
	// OnMutation is called with the operation name after every persisted change.
	OnMutation func(op string)
}

// TaskService owns the task sequence and the session's view filter. Every
// call runs to completion under one lock, so mutations are applied one at a
// time in arrival order.
type TaskService struct {
	mu     sync.Mutex
	store  Persister
	logger *zap.Logger
	opts   Options

	tasks  []model.Task
	filter model.ViewFilter
	theme  model.Theme
}

// NewTaskService loads the persisted sequence and theme. Loading never fails;
// unreadable state starts the session empty.
func NewTaskService(ctx context.Context, store Persister, logger *zap.Logger, opts Options) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	s := &TaskService{
		store:  store,
		logger: logger,
		opts:   opts,
		tasks:  store.Load(ctx),
		filter: model.DefaultFilter(),
		theme:  store.LoadTheme(ctx),
	}
	logger.Info("Task list loaded", zap.Int("tasks", len(s.tasks)), zap.String("theme", string(s.theme)))
	return s
}

// Add trims text and inserts a new task at the front of the list. Blank text
// is ignored: ok is false and nothing is persisted. A repeated idempotency
// key whose task still exists returns that task without creating another.
func (s *TaskService) Add(ctx context.Context, text string, attrs model.TaskAttrs) (task model.Task, ok bool, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Task{}, false, nil
	}
	priority := attrs.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return model.Task{}, false, fmt.Errorf("%w: unknown priority %q", ErrValidation, attrs.Priority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if attrs.IdempotencyKey != "" { // Повторный запрос с тем же ключом возвращает уже созданную задачу
		if existingID := s.store.LoadIdempotency(ctx, attrs.IdempotencyKey); existingID != "" {
			if i := s.indexOf(existingID); i >= 0 {
				return cloneTask(s.tasks[i]), true, nil
			}
		}
	}

	task = model.Task{
		ID:        s.opts.NewID(),
		Text:      text,
		Priority:  priority,
		CreatedAt: s.opts.Clock().UTC(),
	}
	if attrs.DueDate != nil && !attrs.DueDate.IsZero() {
		d := *attrs.DueDate
		task.DueDate = &d
	}

	before := s.tasks
	next := make([]model.Task, 0, len(s.tasks)+1)
	next = append(next, task)
	s.tasks = append(next, s.tasks...)
	if err := s.commit(ctx, before, "add"); err != nil {
		return model.Task{}, false, err
	}

	if attrs.IdempotencyKey != "" {
		if err := s.store.SaveIdempotency(ctx, attrs.IdempotencyKey, task.ID); err != nil {
			s.logger.Warn("failed to record idempotency key", zap.String("key", attrs.IdempotencyKey), zap.Error(err))
		}
	}
	s.toast("Task added")
	return cloneTask(task), true, nil
}

func (s *TaskService) Get(id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Task{}, repo.ErrorNotFound
	}
	return cloneTask(s.tasks[i]), nil
}

// Toggle flips the done flag. Unknown ids are ignored.
func (s *TaskService) Toggle(ctx context.Context, id string) (bool, error) {
	return s.update(ctx, "toggle", id, func(t *model.Task) bool {
		t.Done = !t.Done
		return true
	})
}

// Edit replaces the text with its trimmed form. Blank text abandons the edit.
func (s *TaskService) Edit(ctx context.Context, id, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}
	return s.update(ctx, "edit", id, func(t *model.Task) bool {
		if t.Text == text {
			return false
		}
		t.Text = text
		return true
	})
}

func (s *TaskService) SetPriority(ctx context.Context, id string, p model.Priority) (bool, error) {
	if !p.Valid() {
		return false, fmt.Errorf("%w: unknown priority %q", ErrValidation, p)
	}
	return s.update(ctx, "set_priority", id, func(t *model.Task) bool {
		if t.Priority == p {
			return false
		}
		t.Priority = p
		return true
	})
}

// SetDueDate sets or, with nil, clears the due date.
func (s *TaskService) SetDueDate(ctx context.Context, id string, due *model.Date) (bool, error) {
	if due != nil && due.IsZero() {
		due = nil
	}
	return s.update(ctx, "set_due_date", id, func(t *model.Task) bool {
		switch {
		case due == nil && t.DueDate == nil:
			return false
		case due != nil && t.DueDate != nil && *due == *t.DueDate:
			return false
		}
		if due == nil {
			t.DueDate = nil
		} else {
			d := *due
			t.DueDate = &d
		}
		return true
	})
}

// Update applies every field of patch to one task and persists once, so a
// failed save leaves none of them applied. Blank text is ignored like in Edit
// while the other fields still apply.
func (s *TaskService) Update(ctx context.Context, id string, patch model.TaskPatch) (bool, error) {
	if patch.Priority != nil && !patch.Priority.Valid() {
		return false, fmt.Errorf("%w: unknown priority %q", ErrValidation, *patch.Priority)
	}
	text := ""
	if patch.Text != nil {
		text = strings.TrimSpace(*patch.Text)
	}
	due := patch.DueDate
	if due != nil && due.IsZero() {
		due = nil
	}

	return s.update(ctx, "update", id, func(t *model.Task) bool {
		changed := false
		if text != "" && t.Text != text {
			t.Text = text
			changed = true
		}
		if patch.Priority != nil && t.Priority != *patch.Priority {
			t.Priority = *patch.Priority
			changed = true
		}
		if patch.DueDateSet && !sameDate(t.DueDate, due) {
			if due == nil {
				t.DueDate = nil
			} else {
				d := *due
				t.DueDate = &d
			}
			changed = true
		}
		return changed
	})
}

// Delete removes the task immediately. Unknown ids and, when confirmation is
// required, unconfirmed calls are no-ops.
func (s *TaskService) Delete(ctx context.Context, id string, confirmed bool) (bool, error) {
	if s.opts.ConfirmDestructive && !confirmed {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	before := s.tasks
	next := make([]model.Task, 0, len(s.tasks)-1)
	next = append(next, s.tasks[:i]...)
	s.tasks = append(next, s.tasks[i+1:]...)
	if err := s.commit(ctx, before, "delete"); err != nil {
		return false, err
	}
	s.toast("Task deleted")
	return true, nil
}

// ClearCompleted removes every done task and returns how many went. With
// nothing to clear it neither asks for confirmation nor persists.
func (s *TaskService) ClearCompleted(ctx context.Context, confirmed bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.Done {
			next = append(next, t)
		}
	}
	removed := len(s.tasks) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if s.opts.ConfirmDestructive && !confirmed {
		return 0, nil
	}

	before := s.tasks
	s.tasks = next
	if err := s.commit(ctx, before, "clear_completed"); err != nil {
		return 0, err
	}
	s.toast(fmt.Sprintf("Cleared %d completed %s", removed, plural(removed, "task", "tasks")))
	return removed, nil
}

// Reorder moves the source task so it sits immediately before the target.
// It is a no-op when either id is unknown or both are the same.
func (s *TaskService) Reorder(ctx context.Context, sourceID, targetID string) (bool, error) {
	if sourceID == targetID {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.indexOf(sourceID)
	if from < 0 || s.indexOf(targetID) < 0 {
		return false, nil
	}

	moved := s.tasks[from]
	rest := make([]model.Task, 0, len(s.tasks)-1)
	rest = append(rest, s.tasks[:from]...)
	rest = append(rest, s.tasks[from+1:]...)

	to := 0
	for i := range rest {
		if rest[i].ID == targetID {
			to = i
			break
		}
	}

	next := make([]model.Task, 0, len(s.tasks))
	next = append(next, rest[:to]...)
	next = append(next, moved)
	next = append(next, rest[to:]...)

	if orderEqual(s.tasks, next) {
		return false, nil
	}

	before := s.tasks
	s.tasks = next
	if err := s.commit(ctx, before, "reorder"); err != nil {
		return false, err
	}
	return true, nil
}

// Tasks returns a copy of the full sequence in stored order.
func (s *TaskService) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.Clone(s.tasks)
}

func (s *TaskService) Filter() model.ViewFilter {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filter
}

// SetFilter replaces the session filter. It is never persisted.
func (s *TaskService) SetFilter(f model.ViewFilter) (model.ViewFilter, error) {
	f, err := normalizeFilter(f)
	if err != nil {
		return model.ViewFilter{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.filter = f
	return f, nil
}

// View derives the display for the session filter.
func (s *TaskService) View() view.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return view.Derive(model.Clone(s.tasks), s.filter, s.today())
}

// ViewWith derives the display for f without touching the session filter.
func (s *TaskService) ViewWith(f model.ViewFilter) (view.View, error) {
	f, err := normalizeFilter(f)
	if err != nil {
		return view.View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return view.Derive(model.Clone(s.tasks), f, s.today()), nil
}

func (s *TaskService) Stats() view.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return view.Summarize(s.tasks, s.today())
}

// Today is the current calendar day in the configured location.
func (s *TaskService) Today() model.Date {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.today()
}

func (s *TaskService) Theme() model.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.theme
}

func (s *TaskService) SetTheme(ctx context.Context, theme model.Theme) (model.Theme, error) {
	if !theme.Valid() {
		return "", fmt.Errorf("%w: unknown theme %q", ErrValidation, theme)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyTheme(ctx, theme)
}

func (s *TaskService) ToggleTheme(ctx context.Context) (model.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyTheme(ctx, s.theme.Toggled())
}

func (s *TaskService) applyTheme(ctx context.Context, theme model.Theme) (model.Theme, error) {
	if theme == s.theme {
		return theme, nil
	}
	if err := s.store.SaveTheme(ctx, theme); err != nil {
		s.logger.Error("failed to persist theme", zap.String("theme", string(theme)), zap.Error(err))
		return s.theme, err
	}
	s.theme = theme
	return theme, nil
}

// update applies fn to the task with id and persists if fn reports a change.
func (s *TaskService) update(ctx context.Context, op, id string, fn func(t *model.Task) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	before := model.Clone(s.tasks)
	if !fn(&s.tasks[i]) {
		return false, nil
	}
	if err := s.commit(ctx, before, op); err != nil {
		return false, err
	}
	return true, nil
}

// commit persists the current sequence. On failure the sequence is rolled
// back to before so memory never runs ahead of the store.
func (s *TaskService) commit(ctx context.Context, before []model.Task, op string) error {
	if err := s.store.Save(ctx, s.tasks); err != nil {
		s.tasks = before
		s.logger.Error("failed to persist tasks", zap.String("op", op), zap.Error(err))
		return err
	}
	s.logger.Debug("tasks persisted", zap.String("op", op), zap.Int("tasks", len(s.tasks)))
	if s.opts.OnMutation != nil {
		s.opts.OnMutation(op)
	}
	return nil
}

func (s *TaskService) toast(message string) {
	if s.opts.Toaster != nil {
		s.opts.Toaster.Show(message)
	}
}

func (s *TaskService) today() model.Date {
	return model.DateOf(s.opts.Clock().In(s.opts.Location))
}

func (s *TaskService) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func normalizeFilter(f model.ViewFilter) (model.ViewFilter, error) {
	status, err := model.ParseStatus(string(f.Status))
	if err != nil {
		return model.ViewFilter{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	sortKey, err := model.ParseSortKey(string(f.Sort))
	if err != nil {
		return model.ViewFilter{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return model.ViewFilter{Status: status, Search: strings.TrimSpace(f.Search), Sort: sortKey}, nil
}

func sameDate(a, b *model.Date) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func orderEqual(a, b []model.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func cloneTask(t model.Task) model.Task {
	return model.Clone([]model.Task{t})[0]
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
