package dto

import (
	"time"

	"github.com/taskdeck/taskdeck-api/internal/models"
)

// AttachmentDTO represents an attachment in API responses
type AttachmentDTO struct {
	ID         uint64    `json:"id"`
	TaskID     uint64    `json:"task_id"`
	FileName   string    `json:"file_name"`
	SizeBytes  int64     `json:"size_bytes"`
	MimeType   string    `json:"mime_type,omitempty"`
	UploadedBy uint64    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
	Uploader   *UserDTO  `json:"uploader,omitempty"`
}

// UploadResponse is the wire contract of the upload endpoint. Clients key on
// success; message carries the failure reason, filename the stored name.
type UploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// ToAttachmentDTO converts an Attachment model to AttachmentDTO
func ToAttachmentDTO(att models.Attachment) AttachmentDTO {
	out := AttachmentDTO{
		ID:         att.ID,
		TaskID:     att.TaskID,
		FileName:   att.FileName,
		SizeBytes:  att.SizeBytes,
		MimeType:   att.MimeType,
		UploadedBy: att.UploadedBy,
		CreatedAt:  att.CreatedAt,
	}
	if att.Uploader != nil {
		u := ToUserDTO(*att.Uploader)
		out.Uploader = &u
	}
	return out
}

// ToAttachmentDTOs converts a slice of Attachment models
func ToAttachmentDTOs(atts []models.Attachment) []AttachmentDTO {
	out := make([]AttachmentDTO, len(atts))
	for i, a := range atts {
		out[i] = ToAttachmentDTO(a)
	}
	return out
}
