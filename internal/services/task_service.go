package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck-api/internal/authz"
	"github.com/taskdeck/taskdeck-api/internal/models"
	"github.com/taskdeck/taskdeck-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrProjectNotFound  = errors.New("project not found")
	ErrAssigneeNotFound = errors.New("assigned user does not exist")
	ErrTitleRequired    = errors.New("title is required")
	ErrTitleEmpty       = errors.New("title cannot be empty")
	ErrInvalidPriority  = errors.New("priority must be low, medium or high")
	ErrCreatePermission = errors.New("only an admin or manager can create tasks")
	ErrModifyPermission = errors.New("you can only modify tasks assigned to you")
)

// TaskService handles task business logic outside the lifecycle transitions
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, userRepo repository.UserRepository) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	ProjectID     *uint64
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	AssignedTo    *uint64
	DueToday      bool
	SortByDueDate bool
	Page          int
	PageSize      int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title          string
	Description    string
	Priority       models.TaskPriority
	ProjectID      *uint64
	AssignedTo     *uint64
	DueDate        *time.Time
	EstimatedHours *float64
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title          *string
	Description    *string
	Priority       *models.TaskPriority
	AssignedTo     *uint64
	ClearAssignee  bool
	DueDate        *time.Time
	ClearDueDate   bool
	EstimatedHours *float64
	ActualHours    *float64
}

// ListTasks returns tasks matching the provided filters
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		ProjectID:     input.ProjectID,
		Status:        input.Status,
		Priority:      input.Priority,
		AssignedTo:    input.AssignedTo,
		SortByDueDate: input.SortByDueDate,
		Page:          input.Page,
		PageSize:      input.PageSize,
	}

	if input.DueToday {
		now := time.Now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueDateFrom = &startOfDay
		filter.DueDateTo = &endOfDay
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with related data
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Project", "Assignee", "Assigner", "Attachments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// CreateTask creates a new task. Only admins and managers may create tasks;
// the actor is always recorded as the assigner.
func (s *TaskService) CreateTask(actor authz.ActorContext, input CreateTaskInput) (*models.Task, error) {
	if !authz.CanManage(actor) {
		return nil, ErrCreatePermission
	}

	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.IsValid() {
		return nil, ErrInvalidPriority
	}

	if input.ProjectID != nil {
		if _, err := s.projectRepo.FindByID(*input.ProjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProjectNotFound
			}
			return nil, fmt.Errorf("failed to verify project: %w", err)
		}
	}

	if input.AssignedTo != nil {
		if _, err := s.userRepo.FindByID(*input.AssignedTo); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAssigneeNotFound
			}
			return nil, fmt.Errorf("failed to verify assignee: %w", err)
		}
	}

	task := &models.Task{
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		Status:         models.TaskStatusPending,
		Priority:       input.Priority,
		ProjectID:      input.ProjectID,
		AssignedTo:     input.AssignedTo,
		AssignedBy:     actor.ID,
		DueDate:        input.DueDate,
		EstimatedHours: input.EstimatedHours,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Project", "Assignee", "Assigner")
}

// UpdateTask updates an existing task's editable fields. Management roles may
// edit any task, members only tasks assigned to them.
func (s *TaskService) UpdateTask(actor authz.ActorContext, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !authz.CanModify(actor, task) {
		return nil, ErrModifyPermission
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.ClearAssignee {
		task.AssignedTo = nil
	} else if input.AssignedTo != nil {
		if _, err := s.userRepo.FindByID(*input.AssignedTo); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAssigneeNotFound
			}
			return nil, fmt.Errorf("failed to verify assignee: %w", err)
		}
		task.AssignedTo = input.AssignedTo
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.EstimatedHours != nil {
		task.EstimatedHours = input.EstimatedHours
	}
	if input.ActualHours != nil {
		task.ActualHours = input.ActualHours
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Project", "Assignee", "Assigner")
}
