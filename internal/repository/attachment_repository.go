package repository

import (
	"github.com/taskdeck/taskdeck-api/internal/models"
	"gorm.io/gorm"
)

// GormAttachmentRepository is a GORM implementation of AttachmentRepository
type GormAttachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new AttachmentRepository
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &GormAttachmentRepository{db: db}
}

// Create records the metadata for a stored file
func (r *GormAttachmentRepository) Create(att *models.Attachment) error {
	return r.db.Create(att).Error
}

// FindByID finds an attachment by ID
func (r *GormAttachmentRepository) FindByID(id uint64) (*models.Attachment, error) {
	var att models.Attachment
	if err := r.db.First(&att, id).Error; err != nil {
		return nil, err
	}
	return &att, nil
}

// ListByTask lists attachments for a task, newest first
func (r *GormAttachmentRepository) ListByTask(taskID uint64) ([]models.Attachment, error) {
	var atts []models.Attachment
	if err := r.db.Where("task_id = ?", taskID).
		Order("created_at DESC").
		Preload("Uploader").
		Find(&atts).Error; err != nil {
		return nil, err
	}
	return atts, nil
}

// Delete soft deletes an attachment row
func (r *GormAttachmentRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Attachment{}, id).Error
}
