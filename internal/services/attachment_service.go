package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck-api/internal/authz"
	"github.com/taskdeck/taskdeck-api/internal/constants"
	"github.com/taskdeck/taskdeck-api/internal/models"
	"github.com/taskdeck/taskdeck-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrAttachmentNotFound         = errors.New("attachment not found")
	ErrFileTooLarge               = errors.New("file exceeds the maximum allowed size")
	ErrFileNameRequired           = errors.New("file name is required")
	ErrAttachmentDeletePermission = errors.New("only an admin, manager or the uploader can delete an attachment")
)

// AttachmentService stores uploaded files on disk under a uuid key and keeps
// their metadata rows.
type AttachmentService struct {
	attachmentRepo repository.AttachmentRepository
	taskRepo       repository.TaskRepository
	uploadDir      string
}

// NewAttachmentService creates a new AttachmentService
func NewAttachmentService(attachmentRepo repository.AttachmentRepository, taskRepo repository.TaskRepository, uploadDir string) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		taskRepo:       taskRepo,
		uploadDir:      uploadDir,
	}
}

// StoreInput represents one file to store for a task
type StoreInput struct {
	TaskID   uint64
	FileName string
	MimeType string
	Size     int64
	Content  io.Reader
}

// sanitizeFileName strips directory components and path separators so a
// client-supplied name can never escape the upload directory.
func sanitizeFileName(name string) string {
	clean := filepath.Base(filepath.Clean(name))
	clean = strings.ReplaceAll(clean, "/", "_")
	clean = strings.ReplaceAll(clean, "\\", "_")
	if clean == "." || clean == ".." || clean == "" {
		return "unnamed"
	}
	return clean
}

// Store writes the file to disk and records its metadata. The size check is
// repeated here because the HTTP layer's request cap does not protect callers
// that hand us an already buffered body.
func (s *AttachmentService) Store(actor authz.ActorContext, input StoreInput) (*models.Attachment, error) {
	if strings.TrimSpace(input.FileName) == "" {
		return nil, ErrFileNameRequired
	}
	if input.Size > constants.MaxUploadSizeBytes {
		return nil, ErrFileTooLarge
	}

	if _, err := s.taskRepo.FindByID(input.TaskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	safeName := sanitizeFileName(input.FileName)
	storageKey := fmt.Sprintf("%s_%s", uuid.New().String(), safeName)
	path := filepath.Join(s.uploadDir, storageKey)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(dst, io.LimitReader(input.Content, constants.MaxUploadSizeBytes+1))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if written > constants.MaxUploadSizeBytes {
		os.Remove(path)
		return nil, ErrFileTooLarge
	}

	att := &models.Attachment{
		TaskID:     input.TaskID,
		FileName:   safeName,
		StorageKey: storageKey,
		SizeBytes:  written,
		MimeType:   input.MimeType,
		UploadedBy: actor.ID,
	}

	if err := s.attachmentRepo.Create(att); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}

	return att, nil
}

// ListForTask lists the attachments of a task
func (s *AttachmentService) ListForTask(taskID uint64) ([]models.Attachment, error) {
	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	atts, err := s.attachmentRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return atts, nil
}

// Open returns the attachment metadata and the on-disk path of its content
func (s *AttachmentService) Open(attachmentID uint64) (*models.Attachment, string, error) {
	att, err := s.attachmentRepo.FindByID(attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrAttachmentNotFound
		}
		return nil, "", fmt.Errorf("failed to find attachment: %w", err)
	}

	return att, filepath.Join(s.uploadDir, att.StorageKey), nil
}

// Delete removes an attachment row and its file. Management roles may delete
// any attachment, others only their own uploads.
func (s *AttachmentService) Delete(actor authz.ActorContext, attachmentID uint64) error {
	att, err := s.attachmentRepo.FindByID(attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return fmt.Errorf("failed to find attachment: %w", err)
	}

	if !authz.CanManage(actor) && att.UploadedBy != actor.ID {
		return ErrAttachmentDeletePermission
	}

	if err := s.attachmentRepo.Delete(attachmentID); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	// Best effort; the row is already gone.
	os.Remove(filepath.Join(s.uploadDir, att.StorageKey))

	return nil
}
