package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskdeck/taskdeck-api/internal/dto"
	apierrors "github.com/taskdeck/taskdeck-api/internal/errors"
	"github.com/taskdeck/taskdeck-api/internal/middleware"
	"github.com/taskdeck/taskdeck-api/internal/models"
	"github.com/taskdeck/taskdeck-api/internal/services"
	"github.com/taskdeck/taskdeck-api/internal/utils"
)

// TaskHandler coordinates task CRUD and lifecycle HTTP handlers.
type TaskHandler struct {
	taskService      *services.TaskService
	lifecycleService *services.LifecycleService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *services.TaskService, lifecycleService *services.LifecycleService) *TaskHandler {
	return &TaskHandler{
		taskService:      taskService,
		lifecycleService: lifecycleService,
	}
}

// ListTasks returns tasks matching the query filters
func (h *TaskHandler) ListTasks(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	input := services.ListTasksInput{
		Page:     params.Page,
		PageSize: params.Limit,
	}

	if v := c.Query("project_id"); v != "" {
		projectID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project_id")
			return
		}
		input.ProjectID = &projectID
	}
	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		if !status.IsValid() {
			apierrors.BadRequest(c, "Invalid status filter")
			return
		}
		input.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := models.TaskPriority(v)
		if !priority.IsValid() {
			apierrors.BadRequest(c, "Invalid priority filter")
			return
		}
		input.Priority = &priority
	}
	if v := c.Query("assigned_to"); v != "" {
		assignedTo, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assigned_to")
			return
		}
		input.AssignedTo = &assignedTo
	}
	input.DueToday = c.Query("due_today") == "true"
	input.SortByDueDate = c.Query("sort") == "due_date"

	tasks, total, err := h.taskService.ListTasks(input)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, dto.TaskListResponse{
		Tasks: dto.ToTaskDTOs(tasks),
		Page:  params.Page,
		Limit: params.Limit,
		Total: total,
	})
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := parseIDParam(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateTaskRequest struct {
		Title          string     `json:"title" binding:"required"`
		Description    string     `json:"description"`
		Priority       string     `json:"priority"`
		ProjectID      *uint64    `json:"project_id"`
		AssignedTo     *uint64    `json:"assigned_to"`
		DueDate        *time.Time `json:"due_date"`
		EstimatedHours *float64   `json:"estimated_hours"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(actor, services.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       models.TaskPriority(req.Priority),
		ProjectID:      req.ProjectID,
		AssignedTo:     req.AssignedTo,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask updates an existing task's editable fields
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c)
	if !ok {
		return
	}

	// Raw JSON so a null field can be told apart from an absent one
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var input services.UpdateTaskInput
	if v, ok := raw["title"]; ok {
		if s, ok := v.(string); ok {
			input.Title = &s
		}
	}
	if v, ok := raw["description"]; ok {
		if s, ok := v.(string); ok {
			input.Description = &s
		}
	}
	if v, ok := raw["priority"]; ok {
		if s, ok := v.(string); ok {
			p := models.TaskPriority(s)
			input.Priority = &p
		}
	}
	if v, ok := raw["assigned_to"]; ok {
		if v == nil {
			input.ClearAssignee = true
		} else if f, ok := v.(float64); ok && f >= 0 {
			id := uint64(f)
			input.AssignedTo = &id
		}
	}
	if v, ok := raw["due_date"]; ok {
		if v == nil {
			input.ClearDueDate = true
		} else if s, ok := v.(string); ok {
			parsed, err := time.Parse(time.RFC3339, s)
			if err != nil {
				apierrors.BadRequest(c, "Invalid due_date")
				return
			}
			input.DueDate = &parsed
		}
	}
	if v, ok := raw["estimated_hours"]; ok {
		if f, ok := v.(float64); ok {
			input.EstimatedHours = &f
		}
	}
	if v, ok := raw["actual_hours"]; ok {
		if f, ok := v.(float64); ok {
			input.ActualHours = &f
		}
	}

	task, err := h.taskService.UpdateTask(actor, taskID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// StartTask moves a task to in_progress
func (h *TaskHandler) StartTask(c *gin.Context) {
	h.applyLifecycle(c, services.ActionStart)
}

// HoldTask moves a task to on_hold
func (h *TaskHandler) HoldTask(c *gin.Context) {
	h.applyLifecycle(c, services.ActionHold)
}

// CompleteTask moves a task to completed and records who completed it when
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	h.applyLifecycle(c, services.ActionComplete)
}

// DeleteTask removes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if _, err := h.lifecycleService.Apply(actor, taskID, services.ActionDelete); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

func (h *TaskHandler) applyLifecycle(c *gin.Context, action services.LifecycleAction) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c)
	if !ok {
		return
	}

	task, err := h.lifecycleService.Apply(actor, taskID, action)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func parseIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return 0, false
	}
	return id, true
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case services.IsPermissionDenied(err):
		apierrors.PermissionDenied(c, err.Error())
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrAssigneeNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidAction):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTaskAlreadyCompleted):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "")
	}
}
