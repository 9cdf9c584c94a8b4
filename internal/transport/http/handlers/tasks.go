package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/taskhub/internal/core/domain"
	"github.com/arklim/taskhub/internal/core/port"
	"github.com/arklim/taskhub/internal/transport/http/middleware"
	"github.com/arklim/taskhub/internal/usecase"
)

// TaskHandler exposes task CRUD, toggle, and statistics endpoints.
type TaskHandler struct {
	tasks *usecase.TaskService
	stats *usecase.StatsService
}

// NewTaskHandler constructs TaskHandler.
func NewTaskHandler(tasks *usecase.TaskService, stats *usecase.StatsService) *TaskHandler {
	return &TaskHandler{tasks: tasks, stats: stats}
}

// RegisterRoutes binds task routes. The group must already carry the auth
// middleware.
func (h *TaskHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
	r.POST("", h.create)
	r.GET("/stats", h.getStats)
	r.GET("/:id", h.get)
	r.PUT("/:id", h.update)
	r.PATCH("/:id", h.update)
	r.DELETE("/:id", h.delete)
	r.POST("/:id/toggle", h.toggle)
}

// Create godoc
// @Summary Create a task owned by the caller
// @Tags Tasks
// @Accept json
// @Produce json
// @Param request body TaskCreateRequest true "Task payload"
// @Success 201 {object} TaskPayload
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/tasks [post]
func (h *TaskHandler) create(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req TaskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid task payload"))
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), principal, usecase.TaskDraft{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.Priority(req.Priority),
		DueDate:     req.DueDate,
	})
	if err != nil {
		RespondWithMappedError(c, err, taskErrorCases(), http.StatusInternalServerError, "failed to create task")
		return
	}

	c.JSON(http.StatusCreated, newTaskPayload(task, time.Now().UTC()))
}

// Get godoc
// @Summary Fetch a single task
// @Tags Tasks
// @Produce json
// @Success 200 {object} TaskPayload
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) get(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, taskErrorCases(), http.StatusInternalServerError, "failed to load task")
		return
	}

	c.JSON(http.StatusOK, newTaskPayload(task, time.Now().UTC()))
}

// List godoc
// @Summary List tasks visible to the caller
// @Tags Tasks
// @Produce json
// @Success 200 {object} TaskListResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/tasks [get]
func (h *TaskHandler) list(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	filter, err := parseTaskFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), principal, filter)
	if err != nil {
		RespondWithMappedError(c, err, taskErrorCases(), http.StatusInternalServerError, "failed to list tasks")
		return
	}

	now := time.Now().UTC()
	payloads := make([]TaskPayload, 0, len(tasks))
	for _, task := range tasks {
		payloads = append(payloads, newTaskPayload(task, now))
	}

	c.JSON(http.StatusOK, TaskListResponse{
		Tasks:  payloads,
		Count:  len(payloads),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func (h *TaskHandler) update(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid task payload"))
		return
	}

	patch := port.TaskPatch{
		Title:        req.Title,
		Description:  req.Description,
		Completed:    req.Completed,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	}
	if req.Priority != nil {
		priority := domain.Priority(*req.Priority)
		patch.Priority = &priority
	}

	task, err := h.tasks.Update(c.Request.Context(), principal, c.Param("id"), patch)
	if err != nil {
		RespondWithMappedError(c, err, taskErrorCases(), http.StatusInternalServerError, "failed to update task")
		return
	}

	c.JSON(http.StatusOK, newTaskPayload(task, time.Now().UTC()))
}

func (h *TaskHandler) delete(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, taskErrorCases(), http.StatusInternalServerError, "failed to delete task")
		return
	}

	c.Status(http.StatusNoContent)
}

// Toggle godoc
// @Summary Flip a task's completion flag
// @Tags Tasks
// @Produce json
// @Success 200 {object} TaskPayload
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tasks/{id}/toggle [post]
func (h *TaskHandler) toggle(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	task, err := h.tasks.ToggleCompleted(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, taskErrorCases(), http.StatusInternalServerError, "failed to toggle task")
		return
	}

	c.JSON(http.StatusOK, newTaskPayload(task, time.Now().UTC()))
}

// Stats godoc
// @Summary Aggregate counts over the caller's visible tasks
// @Tags Tasks
// @Produce json
// @Success 200 {object} TaskStatsResponse
// @Router /api/v1/tasks/stats [get]
func (h *TaskHandler) getStats(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	stats, err := h.stats.Summary(c.Request.Context(), principal)
	if err != nil {
		RespondWithMappedError(c, err, taskErrorCases(), http.StatusInternalServerError, "failed to aggregate stats")
		return
	}

	c.JSON(http.StatusOK, TaskStatsResponse{
		Total:          stats.Total,
		Completed:      stats.Completed,
		Pending:        stats.Pending,
		Overdue:        stats.Overdue,
		CompletionRate: stats.CompletionRate,
	})
}

func parseTaskFilter(c *gin.Context) (port.TaskFilter, error) {
	filter := port.TaskFilter{
		Search:  c.Query("search"),
		OrderBy: port.TaskOrder(c.Query("order_by")),
		Limit:   queryInt(c, "limit", 0),
		Offset:  queryInt(c, "offset", 0),
		Now:     time.Now().UTC(),
	}

	filter.Ascending = c.Query("order") == "asc"

	if raw := c.Query("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return port.TaskFilter{}, &usecase.ValidationError{Field: "completed", Message: "completed must be true or false"}
		}
		filter.Completed = &completed
	}

	if raw := c.Query("priority"); raw != "" {
		priority := domain.Priority(raw)
		filter.Priority = &priority
	}

	if raw := c.Query("overdue"); raw != "" {
		overdue, err := strconv.ParseBool(raw)
		if err != nil {
			return port.TaskFilter{}, &usecase.ValidationError{Field: "overdue", Message: "overdue must be true or false"}
		}
		filter.Overdue = &overdue
	}

	bounds := []struct {
		name string
		dest **time.Time
	}{
		{"created_after", &filter.CreatedAfter},
		{"created_before", &filter.CreatedBefore},
		{"due_after", &filter.DueAfter},
		{"due_before", &filter.DueBefore},
	}
	for _, bound := range bounds {
		raw := c.Query(bound.name)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return port.TaskFilter{}, &usecase.ValidationError{Field: bound.name, Message: "must be an RFC 3339 timestamp"}
		}
		*bound.dest = &ts
	}

	return filter, nil
}
