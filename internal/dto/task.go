package dto

import (
	"time"

	"github.com/taskdeck/taskdeck-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64      `json:"id"`
	Username string      `json:"username"`
	FullName string      `json:"full_name,omitempty"`
	Role     models.Role `json:"role"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID             uint64              `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Status         models.TaskStatus   `json:"status"`
	Priority       models.TaskPriority `json:"priority"`
	ProjectID      *uint64             `json:"project_id"`
	AssignedTo     *uint64             `json:"assigned_to"`
	AssignedBy     uint64              `json:"assigned_by"`
	DueDate        *time.Time          `json:"due_date"`
	EstimatedHours *float64            `json:"estimated_hours"`
	ActualHours    *float64            `json:"actual_hours"`
	CompletedAt    *time.Time          `json:"completed_at"`
	CompletedBy    *uint64             `json:"completed_by"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Project        *ProjectDTO         `json:"project,omitempty"`
	Assignee       *UserDTO            `json:"assignee,omitempty"`
	Assigner       *UserDTO            `json:"assigner,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks []TaskDTO `json:"tasks"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Total int64     `json:"total"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Role:     user.Role,
	}
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	return ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	out := TaskDTO{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Status:         task.Status,
		Priority:       task.Priority,
		ProjectID:      task.ProjectID,
		AssignedTo:     task.AssignedTo,
		AssignedBy:     task.AssignedBy,
		DueDate:        task.DueDate,
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		CompletedAt:    task.CompletedAt,
		CompletedBy:    task.CompletedBy,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}

	if task.Project != nil {
		p := ToProjectDTO(*task.Project)
		out.Project = &p
	}
	if task.Assignee != nil {
		u := ToUserDTO(*task.Assignee)
		out.Assignee = &u
	}
	if task.Assigner != nil {
		u := ToUserDTO(*task.Assigner)
		out.Assigner = &u
	}

	return out
}

// ToTaskDTOs converts a slice of Task models
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = ToTaskDTO(t)
	}
	return out
}
