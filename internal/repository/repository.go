package repository

import (
	"time"

	"github.com/taskdeck/taskdeck-api/internal/models"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// UpdateStatus writes the status and the completion audit columns as a
	// single UPDATE, so status and completed_at/completed_by can never be
	// observed out of step with each other.
	UpdateStatus(id uint64, status models.TaskStatus, completedAt *time.Time, completedBy *uint64) error

	// Delete soft deletes a task and its attachment rows
	Delete(id uint64) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectID     *uint64
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	AssignedTo    *uint64
	DueDateFrom   *time.Time
	DueDateTo     *time.Time
	SortByDueDate bool
	Page          int
	PageSize      int
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// Delete soft deletes a user and clears assigned_to on their tasks within
	// a single transaction, so no task keeps a dangling assignee reference.
	Delete(id uint64) error
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a new project
	Create(project *models.Project) error

	// FindByID finds a project by ID
	FindByID(id uint64, preload ...string) (*models.Project, error)

	// List lists all projects
	List() ([]models.Project, error)

	// Update updates a project
	Update(project *models.Project) error

	// Delete soft deletes a project; its tasks keep a dangling-free nil
	// project reference.
	Delete(id uint64) error
}

// AttachmentRepository defines the interface for attachment metadata access
type AttachmentRepository interface {
	// Create records the metadata for a stored file
	Create(att *models.Attachment) error

	// FindByID finds an attachment by ID
	FindByID(id uint64) (*models.Attachment, error)

	// ListByTask lists attachments for a task, newest first
	ListByTask(taskID uint64) ([]models.Attachment, error)

	// Delete soft deletes an attachment row
	Delete(id uint64) error
}
