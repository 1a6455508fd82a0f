package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
	"github.com/sabaq-center/sabaq-service/internal/services"
	"github.com/sabaq-center/sabaq-service/internal/utils"
)

type EnrollmentHandler struct {
	BaseHandler
	enrollmentService services.EnrollmentService
}

func NewEnrollmentHandler(enrollmentService services.EnrollmentService, logger utils.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		enrollmentService: enrollmentService,
	}
}

// RequestEnrollment files a pending enrollment request for the caller.
func (h *EnrollmentHandler) RequestEnrollment(c *gin.Context) {
	h.LogRequest(c, "Requesting enrollment")

	var req services.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	enrollment, err := h.enrollmentService.Request(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

type reviewEnrollmentRequest struct {
	Approve bool `json:"approve"`
}

// ReviewEnrollment approves or rejects a pending request.
func (h *EnrollmentHandler) ReviewEnrollment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Reviewing enrollment", "enrollment_id", id)

	var req reviewEnrollmentRequest
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

	enrollment, err := h.enrollmentService.Review(c.Request.Context(), id, req.Approve, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// ListEnrollments lists a sabaq's enrollment requests.
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	sabaqID := h.parseIDParam(c, "id")
	if sabaqID == 0 {
		return
	}

	h.LogRequest(c, "Listing enrollments", "sabaq_id", sabaqID)

	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 50)

	filters := repositories.EnrollmentFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}
	if status := c.Query("status"); status != "" {
		enrollmentStatus := models.EnrollmentStatus(status)
		filters.Status = &enrollmentStatus
	}

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	enrollments, err := h.enrollmentService.ListBySabaq(c.Request.Context(), sabaqID, filters, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollments)
}
