package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taskdeck/taskdeck-api/internal/authz"
	"github.com/taskdeck/taskdeck-api/internal/models"
	"github.com/taskdeck/taskdeck-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrProjectNameRequired     = errors.New("project name is required")
	ErrProjectManagePermission = errors.New("only an admin or manager can manage projects")
)

// ProjectService handles project business logic
type ProjectService struct {
	projectRepo repository.ProjectRepository
}

// NewProjectService creates a new ProjectService
func NewProjectService(projectRepo repository.ProjectRepository) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
	}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Name        string
	Description string
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	Name        *string
	Description *string
}

// ListProjects returns all projects
func (s *ProjectService) ListProjects() ([]models.Project, error) {
	projects, err := s.projectRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject returns a project by ID
func (s *ProjectService) GetProject(projectID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID, "Creator")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// CreateProject creates a new project
func (s *ProjectService) CreateProject(actor authz.ActorContext, input CreateProjectInput) (*models.Project, error) {
	if !authz.CanManage(actor) {
		return nil, ErrProjectManagePermission
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProjectNameRequired
	}

	project := &models.Project{
		Name:        name,
		Description: input.Description,
		CreatedBy:   actor.ID,
	}

	if err := s.projectRepo.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// UpdateProject updates an existing project
func (s *ProjectService) UpdateProject(actor authz.ActorContext, projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	if !authz.CanManage(actor) {
		return nil, ErrProjectManagePermission
	}

	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrProjectNameRequired
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return project, nil
}

// DeleteProject deletes a project; its tasks are detached, not removed
func (s *ProjectService) DeleteProject(actor authz.ActorContext, projectID uint64) error {
	if !authz.CanManage(actor) {
		return ErrProjectManagePermission
	}

	if _, err := s.projectRepo.FindByID(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}
