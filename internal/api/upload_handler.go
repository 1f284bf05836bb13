package api

import (
	"alcyxob/nutrition-app/internal/service"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is the allowance for multipart framing on top of the file itself.
const multipartOverhead = 1 << 20

// UploadHandler serves photo uploads.
type UploadHandler struct {
	uploadService service.UploadService
}

func NewUploadHandler(uploadService service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

type UploadResponse struct {
	URL       string    `json:"url"`
	Success   bool      `json:"success"`
	S3Key     string    `json:"s3_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Upload godoc
// @Summary Upload a food photo
// @Description Stores a JPEG, PNG, WebP or GIF photo (max 5MB) and returns a time-limited signed URL for it.
// @Tags Analysis
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Photo to analyze"
// @Success 200 {object} UploadResponse "Photo stored"
// @Failure 400 {object} gin.H "No file provided"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 413 {object} gin.H "File too large"
// @Failure 415 {object} gin.H "Unsupported file type"
// @Failure 500 {object} gin.H "Storage failure"
// @Security BearerAuth
// @Router /upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortUploadError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// Reject oversized bodies before parsing the multipart form
	limit := service.MaxUploadBytes + multipartOverhead
	if c.Request.ContentLength > limit {
		abortUploadError(c, http.StatusRequestEntityTooLarge, service.ErrPayloadTooLarge.Error())
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			abortUploadError(c, http.StatusRequestEntityTooLarge, service.ErrPayloadTooLarge.Error())
		case errors.Is(err, http.ErrMissingFile):
			abortUploadError(c, http.StatusBadRequest, "No file provided")
		default:
			abortUploadError(c, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		}
		return
	}

	// Size and type are known from the part header; check them before opening
	if fileHeader.Size > service.MaxUploadBytes {
		abortUploadError(c, http.StatusRequestEntityTooLarge, service.ErrPayloadTooLarge.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("ERROR: Could not open uploaded file '%s': %v", fileHeader.Filename, err)
		abortUploadError(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	defer file.Close()

	obj, err := h.uploadService.Upload(c.Request.Context(), userID, service.UploadRequest{
		Body:        file,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		FileName:    fileHeader.Filename,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			abortUploadError(c, http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, service.ErrNoFile):
			abortUploadError(c, http.StatusBadRequest, "No file provided")
		case errors.Is(err, service.ErrPayloadTooLarge):
			abortUploadError(c, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrUnsupportedMediaType):
			abortUploadError(c, http.StatusUnsupportedMediaType, err.Error())
		default:
			abortUploadError(c, http.StatusInternalServerError, "Failed to upload file")
		}
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		URL:       obj.URL,
		Success:   true,
		S3Key:     obj.Key,
		ExpiresAt: obj.ExpiresAt,
	})
}
