package constants

// Context and session keys
const (
	ContextKeyUserID  = "user_id"
	ContextKeyActor   = "actor"
	SessionCookieName = "taskdeck_session"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Auth
const (
	MinPasswordLength = 8
)

// Uploads
const (
	// MaxUploadSizeBytes caps a single attachment. Requests over this limit
	// are answered with HTTP 413.
	MaxUploadSizeBytes = 20 << 20
)
