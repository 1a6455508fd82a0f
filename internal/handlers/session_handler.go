package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sabaq-center/sabaq-service/internal/livestore"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
	"github.com/sabaq-center/sabaq-service/internal/services"
	"github.com/sabaq-center/sabaq-service/internal/utils"
	"github.com/sabaq-center/sabaq-service/internal/validator"
)

// reportTimeout bounds a background reconciliation run after the HTTP
// request that launched it has returned.
const reportTimeout = 10 * time.Minute

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	validator      *validator.Validator
	qrTokens       *QRTokenIssuer
	progress       *livestore.ProgressPublisher
}

func NewSessionHandler(
	sessionService services.SessionService,
	validator *validator.Validator,
	qrTokens *QRTokenIssuer,
	progress *livestore.ProgressPublisher,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		validator:      validator,
		qrTokens:       qrTokens,
		progress:       progress,
	}
}

// CreateSession schedules a new session.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	h.LogRequest(c, "Creating session")

	var req services.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	session, err := h.sessionService.Create(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession retrieves a session by ID.
func (h *SessionHandler) GetSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	session, err := h.sessionService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListSessions lists sessions with optional filters.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	h.LogRequest(c, "Listing sessions")

	filters := h.parseSessionFilters(c)
	sessions, err := h.sessionService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// StartSession transitions a session to ACTIVE.
func (h *SessionHandler) StartSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Starting session", "session_id", id)

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// EndSession transitions a session to ENDED without running the report flow.
func (h *SessionHandler) EndSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Ending session", "session_id", id)

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	session, err := h.sessionService.End(c.Request.Context(), id, services.EndSessionOptions{}, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ResumeSession reopens an ended session.
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Resuming session", "session_id", id)

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	session, err := h.sessionService.Resume(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// DeleteSession removes a session that never started.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting session", "session_id", id)

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if err := h.sessionService.Delete(c.Request.Context(), id, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Session deleted successfully",
	})
}

// EndSessionWithReport runs the full reconciliation and report flow.
// With ?async=true the flow runs in the background and the response carries
// only the job ID; progress is available on the progress endpoint.
func (h *SessionHandler) EndSessionWithReport(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Ending session with report", "session_id", id)

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if c.Query("async") == "true" {
		jobID := uuid.New().String()
		opts := services.EndSessionOptions{JobID: jobID}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
			defer cancel()
			if _, err := h.sessionService.EndWithReport(ctx, id, opts, actorID, nil); err != nil {
				h.logger.Error("Background session report failed", "session_id", id, "job_id", jobID, "error", err)
			}
		}()

		c.JSON(http.StatusAccepted, gin.H{
			"job_id":  jobID,
			"message": "Report generation started",
		})
		return
	}

	result, err := h.sessionService.EndWithReport(c.Request.Context(), id, services.EndSessionOptions{}, actorID, nil)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetReportProgress returns the last known progress of a report job.
func (h *SessionHandler) GetReportProgress(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid job_id"})
		return
	}

	update, err := h.progress.LastState(c.Request.Context(), jobID)
	if err != nil {
		h.LogError(c, err, "Failed to read job progress", "job_id", jobID)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
		return
	}
	if update == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Unknown job"})
		return
	}

	c.JSON(http.StatusOK, update)
}

// IssueQRToken mints a short-lived QR token for an active session.
func (h *SessionHandler) IssueQRToken(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Issuing QR token", "session_id", id)

	session, err := h.sessionService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if !session.IsActive {
		h.handleServiceError(c, services.ErrSessionNotActive)
		return
	}

	token, expiresAt, err := h.qrTokens.IssueSessionToken(id)
	if err != nil {
		h.LogError(c, err, "Failed to issue QR token", "session_id", id)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}

func (h *SessionHandler) parseSessionFilters(c *gin.Context) repositories.SessionFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.SessionFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.DefaultQuery("sort_by", "scheduled_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if sabaqID := uint(h.parseIntQuery(c, "sabaq_id", 0)); sabaqID != 0 {
		filters.SabaqID = &sabaqID
	}
	if active := c.Query("is_active"); active != "" {
		isActive := active == "true"
		filters.IsActive = &isActive
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.DateFrom = &t
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.DateTo = &t
		}
	}

	return filters
}
