package api

import (
	"alcyxob/nutrition-app/internal/service"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AnalysisHandler serves photo analysis and the analysis history.
type AnalysisHandler struct {
	analysisService service.AnalysisService
}

func NewAnalysisHandler(analysisService service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// AnalyzeRequest is the analyze endpoint body.
type AnalyzeRequest struct {
	ImageURL string `json:"imageUrl"`
	S3Key    string `json:"s3Key,omitempty"`
}

// Analyze godoc
// @Summary Analyze a food photo
// @Description Fetches the photo behind imageUrl, asks the vision model for a nutrition breakdown and stores food results in the history.
// @Tags Analysis
// @Accept json
// @Produce json
// @Param request body AnalyzeRequest true "Signed photo URL"
// @Success 200 {object} domain.AnalysisResult "Normalized analysis"
// @Failure 400 {object} AnalysisErrorResponse "Bad URL or image could not be fetched"
// @Failure 401 {object} AnalysisErrorResponse "Unauthorized"
// @Failure 500 {object} AnalysisErrorResponse "Analysis failed"
// @Failure 503 {object} AnalysisErrorResponse "Vision model not configured"
// @Security BearerAuth
// @Router /analyze [post]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortAnalysisError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortAnalysisError(c, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.analysisService.Analyze(c.Request.Context(), userID, service.AnalyzeRequest{
		ImageURL: req.ImageURL,
		S3Key:    req.S3Key,
	})
	if err != nil {
		var fetchErr *service.ImageFetchError
		var failedErr *service.AnalysisFailedError
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			abortAnalysisError(c, http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, service.ErrInvalidImageURL):
			abortAnalysisError(c, http.StatusBadRequest, err.Error())
		case errors.As(err, &fetchErr):
			abortAnalysisError(c, http.StatusBadRequest, "Failed to fetch image: "+fetchErr.Reason)
		case errors.Is(err, service.ErrVisionUnavailable):
			abortAnalysisError(c, http.StatusServiceUnavailable, err.Error())
		case errors.As(err, &failedErr):
			abortAnalysis(c, http.StatusInternalServerError, dishNameAnalysisFailed, failedErr.Reason)
		default:
			log.Printf("ERROR: Unexpected analysis error for user %s: %v", userID, err)
			abortAnalysisError(c, http.StatusInternalServerError, "An unexpected error occurred during analysis")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAnalyses godoc
// @Summary List analysis history
// @Description Returns the caller's stored analyses, newest first, each with a freshly signed view_url.
// @Tags Analysis
// @Produce json
// @Param limit query int false "Maximum entries (default 20, max 100)"
// @Success 200 {array} service.HistoryEntry
// @Failure 400 {object} gin.H "Invalid limit"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Security BearerAuth
// @Router /analyses [get]
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			abortWithError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	entries, err := h.analysisService.ListHistory(c.Request.Context(), userID, limit)
	if err != nil {
		log.Printf("ERROR: Failed to list analyses for user %s: %v", userID, err)
		abortWithError(c, http.StatusInternalServerError, "Failed to load analysis history")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// DeleteAnalysis godoc
// @Summary Delete an analysis
// @Tags Analysis
// @Param id path string true "Analysis ID"
// @Success 204 "Deleted"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Security BearerAuth
// @Router /analyses/{id} [delete]
func (h *AnalysisHandler) DeleteAnalysis(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	err = h.analysisService.DeleteAnalysis(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrAnalysisNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("ERROR: Failed to delete analysis %s for user %s: %v", c.Param("id"), userID, err)
		abortWithError(c, http.StatusInternalServerError, "Failed to delete analysis")
		return
	}
	c.Status(http.StatusNoContent)
}
