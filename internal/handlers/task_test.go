package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/taskdeck/taskdeck-api/internal/authz"
	"github.com/taskdeck/taskdeck-api/internal/constants"
	"github.com/taskdeck/taskdeck-api/internal/database"
	"github.com/taskdeck/taskdeck-api/internal/dto"
	apierrors "github.com/taskdeck/taskdeck-api/internal/errors"
	"github.com/taskdeck/taskdeck-api/internal/models"
	"github.com/taskdeck/taskdeck-api/internal/repository"
	"github.com/taskdeck/taskdeck-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *TaskHandler

	admin   *models.User
	manager *models.User
	member  *models.User
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
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

	database.SetDB(suite.db)

	taskRepo := repository.NewTaskRepository(suite.db)
	projectRepo := repository.NewProjectRepository(suite.db)
	userRepo := repository.NewUserRepository(suite.db)

	taskService := services.NewTaskService(taskRepo, projectRepo, userRepo)
	lifecycleService := services.NewLifecycleService(taskRepo)
	suite.handler = NewTaskHandler(taskService, lifecycleService)

	gin.SetMode(gin.TestMode)

	suite.admin = suite.createTestUser("admin", models.RoleAdmin)
	suite.manager = suite.createTestUser("manager", models.RoleManager)
	suite.member = suite.createTestUser("member", models.RoleMember)
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskHandlerTestSuite) createTestUser(username string, role models.Role) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	suite.db.Create(user)
	return user
}

func (suite *TaskHandlerTestSuite) createTestTask(status models.TaskStatus, assignedTo *uint64) *models.Task {
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

// createActorContext builds a context carrying the actor, simulating
// RequireAuth.
func (suite *TaskHandlerTestSuite) createActorContext(method, url string, body []byte, user *models.User) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(constants.ContextKeyUserID, user.ID)
	c.Set(constants.ContextKeyActor, authz.ActorContext{ID: user.ID, Role: user.Role})

	return c, w
}

func setIDParam(c *gin.Context, id uint64) {
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(id, 10)}}
}

func (suite *TaskHandlerTestSuite) decodeTask(w *httptest.ResponseRecorder) dto.TaskDTO {
	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func (suite *TaskHandlerTestSuite) decodeError(w *httptest.ResponseRecorder) apierrors.APIError {
	var response apierrors.APIError
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func (suite *TaskHandlerTestSuite) TestCreateTask_ManagerSuccess() {
	body, _ := json.Marshal(map[string]any{
		"title":       "Ship the release",
		"assigned_to": suite.member.ID,
		"priority":    "high",
	})
	c, w := suite.createActorContext("POST", "/api/tasks", body, suite.manager)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	task := suite.decodeTask(w)
	assert.Equal(suite.T(), "Ship the release", task.Title)
	assert.Equal(suite.T(), models.TaskStatusPending, task.Status)
	assert.Equal(suite.T(), suite.manager.ID, task.AssignedBy)
	suite.Require().NotNil(task.AssignedTo)
	assert.Equal(suite.T(), suite.member.ID, *task.AssignedTo)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_MemberForbidden() {
	body, _ := json.Marshal(map[string]any{"title": "Not allowed"})
	c, w := suite.createActorContext("POST", "/api/tasks", body, suite.member)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), apierrors.ErrCodePermissionDenied, suite.decodeError(w).Code)
}

func (suite *TaskHandlerTestSuite) TestStartTask_MemberAssignee() {
	task := suite.createTestTask(models.TaskStatusPending, &suite.member.ID)

	c, w := suite.createActorContext("POST", "/api/tasks/1/start", nil, suite.member)
	setIDParam(c, task.ID)

	suite.handler.StartTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), models.TaskStatusInProgress, suite.decodeTask(w).Status)
}

func (suite *TaskHandlerTestSuite) TestStartTask_MemberNotAssignee() {
	task := suite.createTestTask(models.TaskStatusPending, &suite.manager.ID)

	c, w := suite.createActorContext("POST", "/api/tasks/1/start", nil, suite.member)
	setIDParam(c, task.ID)

	suite.handler.StartTask(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	response := suite.decodeError(w)
	assert.Equal(suite.T(), apierrors.ErrCodePermissionDenied, response.Code)
	assert.NotEmpty(suite.T(), response.Message)
}

func (suite *TaskHandlerTestSuite) TestCompleteTask_MemberForbiddenEvenWhenAssignee() {
	task := suite.createTestTask(models.TaskStatusInProgress, &suite.member.ID)

	c, w := suite.createActorContext("POST", "/api/tasks/1/complete", nil, suite.member)
	setIDParam(c, task.ID)

	suite.handler.CompleteTask(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), apierrors.ErrCodePermissionDenied, suite.decodeError(w).Code)
}

func (suite *TaskHandlerTestSuite) TestCompleteTask_ManagerSuccess() {
	task := suite.createTestTask(models.TaskStatusInProgress, &suite.member.ID)

	c, w := suite.createActorContext("POST", "/api/tasks/1/complete", nil, suite.manager)
	setIDParam(c, task.ID)

	suite.handler.CompleteTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	response := suite.decodeTask(w)
	assert.Equal(suite.T(), models.TaskStatusCompleted, response.Status)
	assert.NotNil(suite.T(), response.CompletedAt)
	suite.Require().NotNil(response.CompletedBy)
	assert.Equal(suite.T(), suite.manager.ID, *response.CompletedBy)
}

func (suite *TaskHandlerTestSuite) TestHoldTask_Idempotent() {
	task := suite.createTestTask(models.TaskStatusOnHold, &suite.member.ID)

	c, w := suite.createActorContext("POST", "/api/tasks/1/hold", nil, suite.member)
	setIDParam(c, task.ID)

	suite.handler.HoldTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), models.TaskStatusOnHold, suite.decodeTask(w).Status)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask_NotFound() {
	c, w := suite.createActorContext("DELETE", "/api/tasks/9999", nil, suite.admin)
	setIDParam(c, 9999)

	suite.handler.DeleteTask(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), apierrors.ErrCodeNotFound, suite.decodeError(w).Code)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask_MemberForbidden() {
	task := suite.createTestTask(models.TaskStatusPending, &suite.member.ID)

	c, w := suite.createActorContext("DELETE", "/api/tasks/1", nil, suite.member)
	setIDParam(c, task.ID)

	suite.handler.DeleteTask(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_ClearDueDate() {
	task := suite.createTestTask(models.TaskStatusPending, &suite.member.ID)

	body := []byte(`{"due_date": null, "description": "updated"}`)
	c, w := suite.createActorContext("PATCH", "/api/tasks/1", body, suite.manager)
	setIDParam(c, task.ID)

	suite.handler.UpdateTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	response := suite.decodeTask(w)
	assert.Nil(suite.T(), response.DueDate)
	assert.Equal(suite.T(), "updated", response.Description)
}

func (suite *TaskHandlerTestSuite) TestListTasks_FilterByStatus() {
	suite.createTestTask(models.TaskStatusPending, nil)
	suite.createTestTask(models.TaskStatusCompleted, nil)

	c, w := suite.createActorContext("GET", "/api/tasks", nil, suite.member)
	c.Request.URL.RawQuery = "status=pending"

	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.TaskListResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Require().Len(response.Tasks, 1)
	assert.Equal(suite.T(), models.TaskStatusPending, response.Tasks[0].Status)
	assert.Equal(suite.T(), int64(1), response.Total)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
