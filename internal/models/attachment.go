package models

import (
	"time"

	"gorm.io/gorm"
)

// Attachment records the metadata for one uploaded file. The binary content
// lives on disk under StorageKey; the row only carries what the UI lists.
type Attachment struct {
	ID         uint64         `gorm:"primarykey" json:"id"`
	TaskID     uint64         `gorm:"not null;index" json:"task_id"`
	FileName   string         `gorm:"type:varchar(255);not null" json:"file_name"`
	StorageKey string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	SizeBytes  int64          `gorm:"not null" json:"size_bytes"`
	MimeType   string         `gorm:"type:varchar(100)" json:"mime_type"`
	UploadedBy uint64         `gorm:"not null" json:"uploaded_by"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Task     *Task `gorm:"foreignKey:TaskID" json:"-"`
	Uploader *User `gorm:"foreignKey:UploadedBy" json:"uploader,omitempty"`
}
