// Package storage persists the task sequence, theme and idempotency keys
// into a repo.Store. Loads fail soft: anything unreadable comes back as the
// documented default and is only logged.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-list/internal/model"
	"github.com/BuzzLyutic/todo-list/internal/repo"
)

const (
	DefaultTasksKey = "todo-app-tasks"
	DefaultThemeKey = "todo-app-theme"
)

// tasksSchema only pins what every stored record must carry. Optional
// fields added over time are not listed so older documents keep validating.
const tasksSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "text"],
		"properties": {
			"id":        {"type": ["string", "number"]},
			"text":      {"type": "string"},
			"done":      {"type": "boolean"},
			"priority":  {"type": "string"},
			"dueDate":   {"type": ["string", "null"]},
			"createdAt": {"type": "string"}
		}
	}
}`

var json = sonic.ConfigStd

type TaskStore struct {
	store    repo.Store
	tasksKey string
	themeKey string
	schema   *jsonschema.Schema
	logger   *zap.Logger
}

// NewTaskStore returns an adapter writing under tasksKey and themeKey.
// Empty keys fall back to the defaults.
func NewTaskStore(store repo.Store, tasksKey, themeKey string, logger *zap.Logger) (*TaskStore, error) {
	if tasksKey == "" {
		tasksKey = DefaultTasksKey
	}
	if themeKey == "" {
		themeKey = DefaultThemeKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	schema, err := jsonschema.CompileString("tasks.schema.json", tasksSchema)
	if err != nil {
		return nil, fmt.Errorf("compile tasks schema: %w", err)
	}

	return &TaskStore{
		store:    store,
		tasksKey: tasksKey,
		themeKey: themeKey,
		schema:   schema,
		logger:   logger,
	}, nil
}

// Load returns the persisted sequence, or an empty one when nothing usable is stored.
func (s *TaskStore) Load(ctx context.Context) []model.Task {
	raw, err := s.store.Get(ctx, s.tasksKey)
	if err != nil {
		if !errors.Is(err, repo.ErrorNotFound) {
			s.logger.Warn("failed to read tasks, starting empty", zap.String("key", s.tasksKey), zap.Error(err))
		}
		return []model.Task{}
	}

	tasks, err := s.decode(raw)
	if err != nil {
		s.logger.Warn("discarding malformed tasks", zap.String("key", s.tasksKey), zap.Error(err))
		return []model.Task{}
	}
	return tasks
}

// Save replaces the stored sequence with tasks.
func (s *TaskStore) Save(ctx context.Context, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := s.store.Set(ctx, s.tasksKey, string(data)); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

func (s *TaskStore) decode(raw string) ([]model.Task, error) {
	var doc interface{}
	if err := json.UnmarshalFromString(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if doc == nil {
		// "null" is what a nil slice used to serialize to.
		return []model.Task{}, nil
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	stringifyIDs(doc.([]interface{}))
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("re-encode: %w", err)
	}

	var stored []model.Task
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return normalize(stored), nil
}

// stringifyIDs rewrites numeric ids, written by older versions that used a
// timestamp, into their decimal string form.
func stringifyIDs(records []interface{}) {
	for _, r := range records {
		rec, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		if n, ok := rec["id"].(float64); ok {
			rec["id"] = strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
}

// normalize fills defaults for fields older records lack and drops records
// that would break the sequence invariants.
func normalize(stored []model.Task) []model.Task {
	tasks := make([]model.Task, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for _, t := range stored {
		t.Text = strings.TrimSpace(t.Text)
		if t.ID == "" || t.Text == "" {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}

		t.Priority = t.Priority.Normalize()
		if t.DueDate != nil && t.DueDate.IsZero() {
			t.DueDate = nil
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// LoadTheme returns the stored theme, light when absent or unrecognised.
func (s *TaskStore) LoadTheme(ctx context.Context) model.Theme {
	raw, err := s.store.Get(ctx, s.themeKey)
	if err != nil {
		if !errors.Is(err, repo.ErrorNotFound) {
			s.logger.Warn("failed to read theme", zap.String("key", s.themeKey), zap.Error(err))
		}
		return model.ThemeLight
	}
	theme := model.Theme(strings.TrimSpace(raw))
	if !theme.Valid() {
		return model.ThemeLight
	}
	return theme
}

func (s *TaskStore) SaveTheme(ctx context.Context, theme model.Theme) error {
	if !theme.Valid() {
		return fmt.Errorf("save theme: unknown theme %q", theme)
	}
	if err := s.store.Set(ctx, s.themeKey, string(theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// LoadIdempotency returns the task id recorded for key, or "" if none.
func (s *TaskStore) LoadIdempotency(ctx context.Context, key string) string {
	id, err := s.store.Get(ctx, s.idempotencyKey(key))
	if err != nil {
		if !errors.Is(err, repo.ErrorNotFound) {
			s.logger.Warn("failed to read idempotency key", zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return id
}

func (s *TaskStore) SaveIdempotency(ctx context.Context, key, taskID string) error {
	if err := s.store.Set(ctx, s.idempotencyKey(key), taskID); err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	return nil
}

func (s *TaskStore) idempotencyKey(key string) string {
	return s.tasksKey + ":idem:" + key
}
