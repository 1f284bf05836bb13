package api

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/session"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Constants for context keys
const (
	ContextUserIDKey    = "userID"
	ContextUserEmailKey = "userEmail"
)

// denyFunc writes an error response in the shape a route group expects and aborts.
type denyFunc func(c *gin.Context, code int, message string)

// SessionMiddleware resolves the caller through guard. Requests without a
// valid session never reach the handler.
func SessionMiddleware(guard session.Guard, deny denyFunc) gin.HandlerFunc {
	if deny == nil {
		deny = abortWithError
	}
	return func(c *gin.Context) {
		identity, err := guard.GetSession(c.Request)
		if err != nil || identity == nil || identity.UserID == "" {
			switch {
			case errors.Is(err, session.ErrExpiredSession):
				deny(c, http.StatusUnauthorized, "Session has expired")
			case errors.Is(err, session.ErrNoSession):
				deny(c, http.StatusUnauthorized, "Unauthorized")
			default:
				// The verification detail stays in the server log
				log.Printf("WARN: Rejected session for %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
				deny(c, http.StatusUnauthorized, "Unauthorized")
			}
			return
		}

		c.Set(ContextUserIDKey, identity.UserID)
		c.Set(ContextUserEmailKey, identity.Email)
		c.Next()
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// abortUploadError answers in the upload endpoint's {error, success} shape.
func abortUploadError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message, "success": false})
}

// Dish names carried by analyze error bodies.
const (
	dishNameAnalysisFailed = "Analysis Failed"
	dishNameAnalysisError  = "Analysis Error"
)

// AnalysisErrorResponse is the safe default body of a failed analysis.
type AnalysisErrorResponse struct {
	ContainsFood bool   `json:"contains_food"`
	DishName     string `json:"dish_name"`
	Error        string `json:"error"`
}

// abortAnalysisError answers with a renderable non-food result.
func abortAnalysisError(c *gin.Context, code int, message string) {
	abortAnalysis(c, code, dishNameAnalysisError, message)
}

func abortAnalysis(c *gin.Context, code int, dishName, message string) {
	c.AbortWithStatusJSON(code, AnalysisErrorResponse{
		ContainsFood: false,
		DishName:     dishName,
		Error:        message,
	})
}

// Helper function to get User ID from context (used by handlers)
func getUserIDFromContext(c *gin.Context) (string, error) {
	idRaw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", errors.New("user ID not found in context")
	}
	idStr, ok := idRaw.(string)
	if !ok || idStr == "" {
		return "", errors.New("invalid user ID type in context")
	}
	return idStr, nil
}

func getIdentityFromContext(c *gin.Context) (domain.Identity, error) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: userID, Email: c.GetString(ContextUserEmailKey)}, nil
}
