package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/taskdeck/taskdeck-api/internal/authz"
	"github.com/taskdeck/taskdeck-api/internal/models"
	"github.com/taskdeck/taskdeck-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// LifecycleServiceTestSuite defines the test suite for LifecycleService
type LifecycleServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	taskRepo repository.TaskRepository
	svc      *LifecycleService
	now      time.Time

	admin   *models.User
	manager *models.User
	member  *models.User
}

// SetupTest runs before each test
func (suite *LifecycleServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Task{},
		&models.Attachment{},
	)
	suite.Require().NoError(err)

	suite.taskRepo = repository.NewTaskRepository(suite.db)
	suite.svc = NewLifecycleService(suite.taskRepo)

	// Fixed clock so completed_at can be asserted exactly
	suite.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	suite.svc.now = func() time.Time { return suite.now }

	suite.admin = suite.createTestUser("admin", models.RoleAdmin)
	suite.manager = suite.createTestUser("manager", models.RoleManager)
	suite.member = suite.createTestUser("member", models.RoleMember)
}

// TearDownTest runs after each test
func (suite *LifecycleServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *LifecycleServiceTestSuite) createTestUser(username string, role models.Role) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	suite.db.Create(user)
	return user
}

func (suite *LifecycleServiceTestSuite) createTestTask(status models.TaskStatus, assignedTo *uint64) *models.Task {
	task := &models.Task{
		Title:      "Test Task",
		Status:     status,
		Priority:   models.TaskPriorityMedium,
		AssignedTo: assignedTo,
		AssignedBy: suite.manager.ID,
	}
	suite.db.Create(task)
	return task
}

func actor(user *models.User) authz.ActorContext {
	return authz.ActorContext{ID: user.ID, Role: user.Role}
}

func (suite *LifecycleServiceTestSuite) reload(id uint64) *models.Task {
	var task models.Task
	suite.Require().NoError(suite.db.First(&task, id).Error)
	return &task
}

func (suite *LifecycleServiceTestSuite) TestMemberStartsOwnTask() {
	task := suite.createTestTask(models.TaskStatusPending, &suite.member.ID)

	updated, err := suite.svc.Apply(actor(suite.member), task.ID, ActionStart)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TaskStatusInProgress, updated.Status)
	assert.Nil(suite.T(), updated.CompletedAt)
	assert.Nil(suite.T(), updated.CompletedBy)
}

func (suite *LifecycleServiceTestSuite) TestMemberCannotStartUnassignedTask() {
	task := suite.createTestTask(models.TaskStatusPending, &suite.manager.ID)

	_, err := suite.svc.Apply(actor(suite.member), task.ID, ActionStart)

	assert.ErrorIs(suite.T(), err, ErrStartPermission)
	assert.Equal(suite.T(), models.TaskStatusPending, suite.reload(task.ID).Status)
}

func (suite *LifecycleServiceTestSuite) TestManagerStartsAnyTask() {
	task := suite.createTestTask(models.TaskStatusPending, &suite.member.ID)

	updated, err := suite.svc.Apply(actor(suite.manager), task.ID, ActionStart)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TaskStatusInProgress, updated.Status)
}

func (suite *LifecycleServiceTestSuite) TestStartIsIdempotent() {
	task := suite.createTestTask(models.TaskStatusInProgress, &suite.member.ID)

	for i := 0; i < 2; i++ {
		updated, err := suite.svc.Apply(actor(suite.member), task.ID, ActionStart)
		assert.NoError(suite.T(), err)
		assert.Equal(suite.T(), models.TaskStatusInProgress, updated.Status)
	}
}

func (suite *LifecycleServiceTestSuite) TestStartResumesFromHold() {
	task := suite.createTestTask(models.TaskStatusOnHold, &suite.member.ID)

	updated, err := suite.svc.Apply(actor(suite.member), task.ID, ActionStart)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TaskStatusInProgress, updated.Status)
}

func (suite *LifecycleServiceTestSuite) TestHoldFromPendingAndInProgress() {
	for _, status := range []models.TaskStatus{models.TaskStatusPending, models.TaskStatusInProgress} {
		task := suite.createTestTask(status, &suite.member.ID)

		updated, err := suite.svc.Apply(actor(suite.member), task.ID, ActionHold)

		assert.NoError(suite.T(), err)
		assert.Equal(suite.T(), models.TaskStatusOnHold, updated.Status)
	}
}

func (suite *LifecycleServiceTestSuite) TestStartOnCompletedTaskFails() {
	task := suite.createTestTask(models.TaskStatusCompleted, &suite.member.ID)

	_, err := suite.svc.Apply(actor(suite.admin), task.ID, ActionStart)

	assert.ErrorIs(suite.T(), err, ErrTaskAlreadyCompleted)
}

func (suite *LifecycleServiceTestSuite) TestMemberNeverCompletesOwnTask() {
	// The asymmetry under test: the assignee may start and hold their own
	// task but completion stays with admins and managers.
	task := suite.createTestTask(models.TaskStatusInProgress, &suite.member.ID)

	_, err := suite.svc.Apply(actor(suite.member), task.ID, ActionComplete)

	assert.ErrorIs(suite.T(), err, ErrCompletePermission)
	reloaded := suite.reload(task.ID)
	assert.Equal(suite.T(), models.TaskStatusInProgress, reloaded.Status)
	assert.Nil(suite.T(), reloaded.CompletedAt)
	assert.Nil(suite.T(), reloaded.CompletedBy)
}

func (suite *LifecycleServiceTestSuite) TestAdminCompleteSetsAuditFields() {
	task := suite.createTestTask(models.TaskStatusInProgress, &suite.member.ID)

	updated, err := suite.svc.Apply(actor(suite.admin), task.ID, ActionComplete)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TaskStatusCompleted, updated.Status)
	suite.Require().NotNil(updated.CompletedAt)
	assert.WithinDuration(suite.T(), suite.now, *updated.CompletedAt, time.Second)
	suite.Require().NotNil(updated.CompletedBy)
	assert.Equal(suite.T(), suite.admin.ID, *updated.CompletedBy)
}

func (suite *LifecycleServiceTestSuite) TestCompleteFromAnyNonCompletedState() {
	for _, status := range []models.TaskStatus{models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusOnHold} {
		task := suite.createTestTask(status, &suite.member.ID)

		updated, err := suite.svc.Apply(actor(suite.manager), task.ID, ActionComplete)

		assert.NoError(suite.T(), err)
		assert.Equal(suite.T(), models.TaskStatusCompleted, updated.Status)
	}
}

func (suite *LifecycleServiceTestSuite) TestCompleteIsIdempotent() {
	task := suite.createTestTask(models.TaskStatusInProgress, nil)

	first, err := suite.svc.Apply(actor(suite.admin), task.ID, ActionComplete)
	suite.Require().NoError(err)

	// A second completion by someone else must not steal the audit trail
	second, err := suite.svc.Apply(actor(suite.manager), task.ID, ActionComplete)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TaskStatusCompleted, second.Status)
	assert.Equal(suite.T(), *first.CompletedBy, *second.CompletedBy)
}

func (suite *LifecycleServiceTestSuite) TestMemberStartsThenManagerCompletes() {
	task := suite.createTestTask(models.TaskStatusPending, &suite.member.ID)

	started, err := suite.svc.Apply(actor(suite.member), task.ID, ActionStart)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TaskStatusInProgress, started.Status)

	_, err = suite.svc.Apply(actor(suite.member), task.ID, ActionComplete)
	assert.ErrorIs(suite.T(), err, ErrCompletePermission)

	completed, err := suite.svc.Apply(actor(suite.manager), task.ID, ActionComplete)
	suite.Require().NoError(err)
	suite.Require().NotNil(completed.CompletedBy)
	assert.Equal(suite.T(), suite.manager.ID, *completed.CompletedBy)
	assert.NotEqual(suite.T(), suite.member.ID, *completed.CompletedBy)
}

func (suite *LifecycleServiceTestSuite) TestDeleteRequiresManagementRole() {
	task := suite.createTestTask(models.TaskStatusPending, &suite.member.ID)

	_, err := suite.svc.Apply(actor(suite.member), task.ID, ActionDelete)
	assert.ErrorIs(suite.T(), err, ErrDeletePermission)

	_, err = suite.svc.Apply(actor(suite.manager), task.ID, ActionDelete)
	assert.NoError(suite.T(), err)

	_, err = suite.taskRepo.FindByID(task.ID)
	assert.ErrorIs(suite.T(), err, gorm.ErrRecordNotFound)
}

func (suite *LifecycleServiceTestSuite) TestUnknownTaskIsNotFound() {
	_, err := suite.svc.Apply(actor(suite.admin), 9999, ActionStart)
	assert.ErrorIs(suite.T(), err, ErrTaskNotFound)
}

func (suite *LifecycleServiceTestSuite) TestUnknownActionRejected() {
	task := suite.createTestTask(models.TaskStatusPending, nil)

	_, err := suite.svc.Apply(actor(suite.admin), task.ID, LifecycleAction("archive"))
	assert.ErrorIs(suite.T(), err, ErrInvalidAction)
}

func TestLifecycleServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LifecycleServiceTestSuite))
}
