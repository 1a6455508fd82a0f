package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sabaq-center/sabaq-service/internal/services"
	"github.com/sabaq-center/sabaq-service/internal/utils"
	"github.com/sabaq-center/sabaq-service/internal/validator"
)

type AttendanceHandler struct {
	BaseHandler
	attendanceService services.AttendanceService
	validator         *validator.Validator
	qrTokens          *QRTokenIssuer
}

func NewAttendanceHandler(
	attendanceService services.AttendanceService,
	validator *validator.Validator,
	qrTokens *QRTokenIssuer,
	logger utils.Logger,
) *AttendanceHandler {
	return &AttendanceHandler{
		BaseHandler:       NewBaseHandler(logger),
		attendanceService: attendanceService,
		validator:         validator,
		qrTokens:          qrTokens,
	}
}

// MarkManual records attendance on behalf of a user identified by ITS number.
func (h *AttendanceHandler) MarkManual(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Marking attendance manually", "session_id", sessionID)

	var req services.ManualMarkRequest
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

	attendance, err := h.attendanceService.MarkManual(c.Request.Context(), sessionID, &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attendance)
}

// MarkByLocation is the geofenced self-service channel.
func (h *AttendanceHandler) MarkByLocation(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Marking attendance by location", "session_id", sessionID)

	var req services.LocationMarkRequest
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

	attendance, err := h.attendanceService.MarkByLocation(c.Request.Context(), sessionID, &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attendance)
}

// MarkByQR marks attendance from a scanned QR token. The session identity is
// taken from the verified token, not from the URL.
func (h *AttendanceHandler) MarkByQR(c *gin.Context) {
	h.LogRequest(c, "Marking attendance by QR")

	var req validator.QRMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	sessionID, err := h.qrTokens.ParseSessionToken(req.Token)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	attendance, err := h.attendanceService.MarkByQR(c.Request.Context(), sessionID, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attendance)
}

// BulkMark applies PRESENT/LATE/ABSENT corrections for a session.
func (h *AttendanceHandler) BulkMark(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Bulk marking attendance", "session_id", sessionID)

	var req services.BulkMarkRequest
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

	result, err := h.attendanceService.BulkMark(c.Request.Context(), sessionID, &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAttendance lists the attendance rows of a session.
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Listing attendance", "session_id", sessionID)

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	attendances, err := h.attendanceService.ListBySession(c.Request.Context(), sessionID, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  attendances,
		"total": len(attendances),
	})
}

// DeleteAttendance removes one user's mark from a session.
func (h *AttendanceHandler) DeleteAttendance(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	userID := h.parseIDParam(c, "user_id")
	if userID == 0 {
		return
	}

	h.LogRequest(c, "Deleting attendance", "session_id", sessionID, "user_id", userID)

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if err := h.attendanceService.Delete(c.Request.Context(), sessionID, userID, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attendance removed successfully",
	})
}
