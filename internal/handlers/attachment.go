package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskdeck/taskdeck-api/internal/constants"
	"github.com/taskdeck/taskdeck-api/internal/dto"
	apierrors "github.com/taskdeck/taskdeck-api/internal/errors"
	"github.com/taskdeck/taskdeck-api/internal/middleware"
	"github.com/taskdeck/taskdeck-api/internal/services"
)

// AttachmentHandler coordinates file upload and download handlers.
//
// Upload speaks the contract the browser-side queue expects: every outcome
// is a JSON body with a success flag, a message on failure and the stored
// filename on success. Oversize requests get HTTP 413.
type AttachmentHandler struct {
	attachmentService *services.AttachmentService
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(attachmentService *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
	}
}

// Upload stores one file for a target entity. Multipart fields: file,
// entity_type, entity_id.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.UploadResponse{Success: false, Message: "Authentication required"})
		return
	}

	// Cap the whole request; the slack covers the multipart framing. The form
	// is parsed here rather than through PostForm so a request over the cap
	// surfaces as MaxBytesError instead of an empty form.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxUploadSizeBytes+(64<<10))
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.UploadResponse{Success: false, Message: "File exceeds the maximum allowed size"})
			return
		}
		c.JSON(http.StatusBadRequest, dto.UploadResponse{Success: false, Message: "Invalid multipart request"})
		return
	}

	entityType := c.Request.FormValue("entity_type")
	if entityType != "task" {
		c.JSON(http.StatusBadRequest, dto.UploadResponse{Success: false, Message: "Unsupported entity type"})
		return
	}

	entityID, err := strconv.ParseUint(c.Request.FormValue("entity_id"), 10, 64)
	if err != nil || entityID == 0 {
		c.JSON(http.StatusBadRequest, dto.UploadResponse{Success: false, Message: "Invalid entity ID"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.UploadResponse{Success: false, Message: "Missing file field"})
		return
	}
	defer file.Close()

	att, err := h.attachmentService.Store(actor, services.StoreInput{
		TaskID:   entityID,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFileTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, dto.UploadResponse{Success: false, Message: err.Error()})
		case errors.Is(err, services.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, dto.UploadResponse{Success: false, Message: err.Error()})
		case errors.Is(err, services.ErrFileNameRequired):
			c.JSON(http.StatusBadRequest, dto.UploadResponse{Success: false, Message: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, dto.UploadResponse{Success: false, Message: "Failed to store file"})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.UploadResponse{Success: true, Filename: att.FileName})
}

// ListForTask lists a task's attachments
func (h *AttachmentHandler) ListForTask(c *gin.Context) {
	taskID, ok := parseIDParam(c)
	if !ok {
		return
	}

	atts, err := h.attachmentService.ListForTask(taskID)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			apierrors.NotFound(c, err.Error())
			return
		}
		apierrors.InternalError(c, "Failed to list attachments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"attachments": dto.ToAttachmentDTOs(atts)})
}

// Download streams an attachment's content
func (h *AttachmentHandler) Download(c *gin.Context) {
	attachmentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid attachment ID")
		return
	}

	att, path, err := h.attachmentService.Open(attachmentID)
	if err != nil {
		if errors.Is(err, services.ErrAttachmentNotFound) {
			apierrors.NotFound(c, err.Error())
			return
		}
		apierrors.InternalError(c, "Failed to open attachment")
		return
	}

	c.FileAttachment(path, att.FileName)
}

// Delete removes an attachment
func (h *AttachmentHandler) Delete(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	attachmentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid attachment ID")
		return
	}

	if err := h.attachmentService.Delete(actor, attachmentID); err != nil {
		switch {
		case errors.Is(err, services.ErrAttachmentNotFound):
			apierrors.NotFound(c, err.Error())
		case errors.Is(err, services.ErrAttachmentDeletePermission):
			apierrors.PermissionDenied(c, err.Error())
		default:
			apierrors.InternalError(c, "Failed to delete attachment")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attachment deleted"})
}
