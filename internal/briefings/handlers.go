package briefings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/tophive/internal/catalog"
	"github.com/jimdaga/tophive/internal/content"
)

const dashboardPath = "/dashboard"

// respondError maps service errors to HTTP responses
func respondError(c *gin.Context, err error) {
	var (
		validationErr *ValidationError
		requestErr    *RequestCreationFailedError
		generationErr *GenerationFailedError
		storageErr    *StorageError
	)

	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "Briefing not found",
			"returnTo": dashboardPath,
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validationErr.Error()})
	case errors.As(err, &requestErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to create briefing request. Please try again."})
	case errors.As(err, &generationErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "Briefing generation failed. You can retry without creating a new request.",
			"requestId": generationErr.RequestID,
			"retry":     "/api/requests/" + generationErr.RequestID + "/retry",
		})
	case errors.As(err, &storageErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage is temporarily unavailable. Please try again."})
	default:
		slog.Error("Unhandled briefing error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// GetBriefingHandler serves a normalized briefing
func GetBriefingHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svc.Get(c.Request.Context(), c.GetUint("user_id"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// UpdateNotesHandler replaces the notes of a briefing
func UpdateNotesHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Notes *string `json:"notes" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "notes is required"})
			return
		}

		id := c.Param("id")
		if err := svc.UpdateNotes(c.Request.Context(), c.GetUint("user_id"), id, *body.Notes); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "notes": *body.Notes})
	}
}

// DashboardHandler lists the signed-in user's recent briefings
func DashboardHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ListRecent(c.Request.Context(), c.GetUint("user_id"), 10)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user": gin.H{
				"email": c.GetString("user_email"),
				"name":  c.GetString("user_name"),
			},
			"briefings": list,
		})
	}
}

// NewBriefingFormHandler returns the choices offered when requesting a briefing
func NewBriefingFormHandler(cat *catalog.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"meetingTypes": content.MeetingTypes,
			"contacts":     cat.Contacts(),
			"focusAreas":   cat.FocusAreas(),
		})
	}
}

// CreateBriefingHandler submits a briefing request. With async set the
// request is only recorded and generation happens in the worker.
func CreateBriefingHandler(svc *Service, async bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in CreateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		userID := c.GetUint("user_id")
		if async {
			result, err := svc.Enqueue(c.Request.Context(), userID, in)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{
				"requestId": result.RequestID,
				"status":    result.Status,
				"poll":      "/api/requests/" + result.RequestID,
			})
			return
		}

		result, err := svc.Create(c.Request.Context(), userID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"requestId":  result.RequestID,
			"briefingId": result.BriefingID,
			"status":     result.Status,
			"redirect":   "/briefing/" + result.BriefingID,
		})
	}
}

// RetryRequestHandler completes a request left without a briefing
func RetryRequestHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := svc.Retry(c.Request.Context(), c.GetUint("user_id"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"requestId":  result.RequestID,
			"briefingId": result.BriefingID,
			"status":     result.Status,
			"redirect":   "/briefing/" + result.BriefingID,
		})
	}
}

// RequestStatusHandler reports the state of a request for polling clients
func RequestStatusHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := svc.RequestStatus(c.Request.Context(), c.GetUint("user_id"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}
