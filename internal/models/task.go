package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusOnHold     TaskStatus = "on_hold"
	TaskStatusCompleted  TaskStatus = "completed"
)

// IsValid reports whether the status is one of the known statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusOnHold, TaskStatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// IsValid reports whether the priority is one of the known priorities.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	Title          string         `gorm:"type:varchar(255);not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Status         TaskStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Priority       TaskPriority   `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	ProjectID      *uint64        `gorm:"index" json:"project_id"`
	AssignedTo     *uint64        `gorm:"index" json:"assigned_to"`
	AssignedBy     uint64         `gorm:"not null" json:"assigned_by"`
	DueDate        *time.Time     `json:"due_date"`
	EstimatedHours *float64       `json:"estimated_hours"`
	ActualHours    *float64       `json:"actual_hours"`
	CompletedAt    *time.Time     `json:"completed_at"`
	CompletedBy    *uint64        `json:"completed_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations. Assignee carries constraint:OnDelete:SET NULL so deleting a
	// user never leaves a dangling assigned_to reference.
	Project     *Project     `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Assignee    *User        `gorm:"foreignKey:AssignedTo;constraint:OnDelete:SET NULL" json:"assignee,omitempty"`
	Assigner    *User        `gorm:"foreignKey:AssignedBy" json:"assigner,omitempty"`
	Attachments []Attachment `gorm:"foreignKey:TaskID" json:"attachments,omitempty"`
}
