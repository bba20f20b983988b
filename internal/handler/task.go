package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-list/internal/model"
	"github.com/BuzzLyutic/todo-list/internal/notify"
	"github.com/BuzzLyutic/todo-list/internal/repo"
	"github.com/BuzzLyutic/todo-list/internal/service"
	"github.com/BuzzLyutic/todo-list/internal/view"
	"github.com/BuzzLyutic/todo-list/pkg/respond"
)

const confirmHeader = "X-Confirm"

// ToastSource exposes the currently visible toast, if any.
type ToastSource interface {
	Current() (notify.Toast, bool)
}

type TaskHandler struct {
	service *service.TaskService
	toasts  ToastSource
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, toasts ToastSource, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		toasts:  toasts,
		logger:  logger,
	}
}

// Register mounts every endpoint under /api.
func (h *TaskHandler) Register(r chi.Router) {
	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/clear-completed", h.ClearCompleted)
		r.Post("/reorder", h.Reorder)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/toggle", h.Toggle)
	})
	r.Get("/api/filter", h.GetFilter)
	r.Put("/api/filter", h.SetFilter)
	r.Get("/api/theme", h.GetTheme)
	r.Put("/api/theme", h.SetTheme)
	r.Post("/api/theme/toggle", h.ToggleTheme)
	r.Get("/api/stats", h.Stats)
}

// Page is everything a client needs to redraw.
type Page struct {
	view.View
	Theme model.Theme   `json:"theme"`
	Toast *notify.Toast `json:"toast,omitempty"`
}

type MutationResponse struct {
	Changed bool       `json:"changed"`
	Task    *view.Item `json:"task,omitempty"`
	Removed int        `json:"removed,omitempty"`
	Page    Page       `json:"view"`
}

type createRequest struct {
	Text     string      `json:"text"`
	Priority string      `json:"priority,omitempty"`
	DueDate  *model.Date `json:"dueDate,omitempty"`
}

type updateRequest struct {
	Text     *string      `json:"text,omitempty"`
	Priority *string      `json:"priority,omitempty"`
	DueDate  optionalDate `json:"dueDate"`
}

// optionalDate tells "dueDate": null (clear) apart from an absent field.
type optionalDate struct {
	Set   bool
	Value *model.Date
}

func (o *optionalDate) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var d model.Date
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	if !d.IsZero() {
		o.Value = &d
	}
	return nil
}

type reorderRequest struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
}

type themeRequest struct {
	Theme string `json:"theme"`
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := h.service.Filter()
	q := r.URL.Query()
	if q.Has("status") {
		filter.Status = model.Status(q.Get("status"))
	}
	if q.Has("q") {
		filter.Search = q.Get("q")
	}
	if q.Has("sort") {
		filter.Sort = model.SortKey(q.Get("sort"))
	}

	v, err := h.service.ViewWith(filter)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, h.page(v))
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength == 0 {
		respond.Error(w, r, http.StatusBadRequest, "empty request body")
		return
	}

	var req createRequest
	if err := respond.Decode(r, &req); err != nil {
		h.logger.Debug("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, "invalid json", err.Error())
		return
	}

	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		h.handleErrors(w, r, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}

	task, ok, err := h.service.Add(r.Context(), req.Text, model.TaskAttrs{
		Priority:       priority,
		DueDate:        req.DueDate,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	// Blank text is not an error: nothing is created and the view is unchanged.
	if !ok {
		respond.JSON(w, r, http.StatusOK, MutationResponse{Page: h.page(h.service.View())})
		return
	}

	item := view.Item{Task: task, Due: view.Due(task.DueDate, h.service.Today())}
	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%s", task.ID))
	respond.JSON(w, r, http.StatusCreated, MutationResponse{
		Changed: true,
		Task:    &item,
		Page:    h.page(h.service.View()),
	})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, view.Item{Task: task, Due: view.Due(task.DueDate, h.service.Today())})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json", err.Error())
		return
	}

	patch := model.TaskPatch{
		Text:       req.Text,
		DueDate:    req.DueDate.Value,
		DueDateSet: req.DueDate.Set,
	}
	if req.Priority != nil {
		p, err := model.ParsePriority(*req.Priority)
		if err != nil {
			h.handleErrors(w, r, fmt.Errorf("%w: %v", service.ErrValidation, err))
			return
		}
		patch.Priority = &p
	}

	changed, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	h.respondMutation(w, r, id, changed, 0)
}

func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	changed, err := h.service.Toggle(r.Context(), id)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	h.respondMutation(w, r, id, changed, 0)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	changed, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), confirmed(r))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	h.respondMutation(w, r, "", changed, 0)
}

func (h *TaskHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.ClearCompleted(r.Context(), confirmed(r))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	h.respondMutation(w, r, "", removed > 0, removed)
}

func (h *TaskHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json", err.Error())
		return
	}

	changed, err := h.service.Reorder(r.Context(), req.SourceID, req.TargetID)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	h.respondMutation(w, r, "", changed, 0)
}

func (h *TaskHandler) GetFilter(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, h.service.Filter())
}

func (h *TaskHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req model.ViewFilter
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json", err.Error())
		return
	}

	if _, err := h.service.SetFilter(req); err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, h.page(h.service.View()))
}

func (h *TaskHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, themeRequest{Theme: string(h.service.Theme())})
}

func (h *TaskHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json", err.Error())
		return
	}

	theme, err := h.service.SetTheme(r.Context(), model.Theme(strings.ToLower(strings.TrimSpace(req.Theme))))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, themeRequest{Theme: string(theme)})
}

func (h *TaskHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.service.ToggleTheme(r.Context())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, themeRequest{Theme: string(theme)})
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, h.service.Stats())
}

// respondMutation redraws after a mutation. A task id, when given and still
// present, is echoed back with its due-date status.
func (h *TaskHandler) respondMutation(w http.ResponseWriter, r *http.Request, id string, changed bool, removed int) {
	resp := MutationResponse{
		Changed: changed,
		Removed: removed,
		Page:    h.page(h.service.View()),
	}
	if id != "" {
		if task, err := h.service.Get(id); err == nil {
			resp.Task = &view.Item{Task: task, Due: view.Due(task.DueDate, h.service.Today())}
		}
	}
	respond.JSON(w, r, http.StatusOK, resp)
}

func (h *TaskHandler) page(v view.View) Page {
	p := Page{View: v, Theme: h.service.Theme()}
	if h.toasts != nil {
		if t, ok := h.toasts.Current(); ok {
			p.Toast = &t
		}
	}
	return p
}

func confirmed(r *http.Request) bool {
	v := strings.ToLower(strings.TrimSpace(r.Header.Get(confirmHeader)))
	return v == "true" || v == "1" || v == "yes"
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, "validation error", err.Error())
	default:
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
