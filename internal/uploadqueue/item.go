package uploadqueue

import "context"

// ItemStatus is the state of one queued upload.
type ItemStatus string

const (
	StatusQueued    ItemStatus = "queued"
	StatusUploading ItemStatus = "uploading"
	StatusCompleted ItemStatus = "completed"
	StatusError     ItemStatus = "error"
	StatusCancelled ItemStatus = "cancelled"
)

// IsTerminal reports whether no further automatic transition can occur.
// An error item can still be re-queued through Retry.
func (s ItemStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	}
	return false
}

// File is the in-memory handle for one selected file.
type File struct {
	Name    string
	Size    int64
	Content []byte
}

// Snapshot is the immutable view of one item handed to the UI.
type Snapshot struct {
	ID         int        `json:"id"`
	FileName   string     `json:"file_name"`
	Size       int64      `json:"size"`
	EntityType string     `json:"entity_type"`
	EntityID   uint64     `json:"entity_id"`
	Status     ItemStatus `json:"status"`
	Progress   int        `json:"progress"`
	Message    string     `json:"message,omitempty"`
}

// Stats are the queue-wide aggregates. They are recomputed from the full
// item list on every call, never maintained incrementally.
type Stats struct {
	Total      int   `json:"total"`
	Queued     int   `json:"queued"`
	Uploading  int   `json:"uploading"`
	Completed  int   `json:"completed"`
	Errors     int   `json:"errors"`
	Cancelled  int   `json:"cancelled"`
	TotalBytes int64 `json:"total_bytes"`
}

// item is the mutable record behind a Snapshot. All fields are guarded by
// the controller mutex; cancel is only non-nil while the upload is in flight.
type item struct {
	id         int
	file       File
	entityType string
	entityID   uint64
	status     ItemStatus
	progress   int
	message    string
	cancel     context.CancelFunc
}

func (it *item) snapshot() Snapshot {
	return Snapshot{
		ID:         it.id,
		FileName:   it.file.Name,
		Size:       it.file.Size,
		EntityType: it.entityType,
		EntityID:   it.entityID,
		Status:     it.status,
		Progress:   it.progress,
		Message:    it.message,
	}
}
