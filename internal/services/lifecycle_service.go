package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck-api/internal/authz"
	"github.com/taskdeck/taskdeck-api/internal/models"
	"github.com/taskdeck/taskdeck-api/internal/repository"
	"gorm.io/gorm"
)

// LifecycleAction identifies a status transition request on a task.
type LifecycleAction string

const (
	ActionStart    LifecycleAction = "start"
	ActionHold     LifecycleAction = "hold"
	ActionComplete LifecycleAction = "complete"
	ActionDelete   LifecycleAction = "delete"
)

var (
	ErrInvalidAction        = errors.New("unknown lifecycle action")
	ErrTaskAlreadyCompleted = errors.New("task is already completed")
	ErrStartPermission      = errors.New("you can only start tasks assigned to you")
	ErrHoldPermission       = errors.New("you can only put on hold tasks assigned to you")
	ErrCompletePermission   = errors.New("only an admin or manager can complete a task")
	ErrDeletePermission     = errors.New("only an admin or manager can delete a task")
)

// IsPermissionDenied reports whether err is one of the lifecycle or task
// guard failures. Handlers use it to answer 403 with the sentinel's message.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrStartPermission) ||
		errors.Is(err, ErrHoldPermission) ||
		errors.Is(err, ErrCompletePermission) ||
		errors.Is(err, ErrDeletePermission) ||
		errors.Is(err, ErrCreatePermission) ||
		errors.Is(err, ErrModifyPermission)
}

// LifecycleService enforces which role may move a task between which states
// and keeps the completion audit columns in step with the status.
//
// States: pending -> in_progress -> completed, with on_hold reachable from
// pending or in_progress. start also resumes a task from on_hold; there is no
// separate resume action. completed is terminal for start and hold.
type LifecycleService struct {
	taskRepo repository.TaskRepository
	now      func() time.Time
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(taskRepo repository.TaskRepository) *LifecycleService {
	return &LifecycleService{
		taskRepo: taskRepo,
		now:      time.Now,
	}
}

// Apply performs a lifecycle action on a task as the given actor. A request
// whose target state already holds succeeds without changing anything; a
// failed guard is always an explicit error, never a silent no-op. For delete
// the returned task is nil.
func (s *LifecycleService) Apply(actor authz.ActorContext, taskID uint64, action LifecycleAction) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	switch action {
	case ActionStart:
		return s.transition(actor, task, models.TaskStatusInProgress, ErrStartPermission)
	case ActionHold:
		return s.transition(actor, task, models.TaskStatusOnHold, ErrHoldPermission)
	case ActionComplete:
		return s.complete(actor, task)
	case ActionDelete:
		return nil, s.delete(actor, task)
	default:
		return nil, ErrInvalidAction
	}
}

// transition handles start and hold, which share the ownership guard: any
// role may move its own task, admins and managers may move anyone's.
func (s *LifecycleService) transition(actor authz.ActorContext, task *models.Task, target models.TaskStatus, denied error) (*models.Task, error) {
	if !authz.CanModify(actor, task) {
		return nil, denied
	}

	if task.Status == target {
		return task, nil
	}
	if task.Status == models.TaskStatusCompleted {
		return nil, ErrTaskAlreadyCompleted
	}

	if err := s.taskRepo.UpdateStatus(task.ID, target, nil, nil); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	return s.reload(task.ID)
}

// complete is the one transition members never get, even on their own tasks.
// The status write and the audit columns go out as one update.
func (s *LifecycleService) complete(actor authz.ActorContext, task *models.Task) (*models.Task, error) {
	if !authz.CanComplete(actor) {
		return nil, ErrCompletePermission
	}

	if task.Status == models.TaskStatusCompleted {
		return task, nil
	}

	completedAt := s.now()
	if err := s.taskRepo.UpdateStatus(task.ID, models.TaskStatusCompleted, &completedAt, &actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	return s.reload(task.ID)
}

func (s *LifecycleService) delete(actor authz.ActorContext, task *models.Task) error {
	if !authz.CanManage(actor) {
		return ErrDeletePermission
	}

	if err := s.taskRepo.Delete(task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

func (s *LifecycleService) reload(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Assignee", "Assigner")
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}
	return task, nil
}
