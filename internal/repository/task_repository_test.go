package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskdeck/taskdeck-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

// The status write and the completion audit columns must go out as one
// UPDATE statement, never as separate writes.
func TestUpdateStatusIsSingleUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	completedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	completedBy := uint64(7)

	mock.ExpectExec(`UPDATE "tasks" SET .*"completed_at"=.*"completed_by"=.*"status"=.*WHERE id = `).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(42, models.TaskStatusCompleted, &completedAt, &completedBy)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusClearsAuditColumns(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec(`UPDATE "tasks" SET .*"completed_at"=.*"completed_by"=.*"status"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(42, models.TaskStatusInProgress, nil, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusUnknownTask(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec(`UPDATE "tasks" SET `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(42, models.TaskStatusInProgress, nil, nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// Deleting a task removes its attachment rows in the same transaction.
func TestDeleteRemovesAttachmentsTransactionally(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "attachments" SET "deleted_at"=.*WHERE task_id = `).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE "tasks" SET "deleted_at"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(42)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Deleting a user nulls assigned_to on their tasks, in the same transaction,
// so no task keeps a dangling assignee.
func TestUserDeleteClearsAssignments(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET .*"assigned_to"=.*WHERE assigned_to = `).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE "users" SET "deleted_at"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(9)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
