package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sabaq-center/sabaq-service/internal/repositories"
	"github.com/sabaq-center/sabaq-service/internal/services"
	"github.com/sabaq-center/sabaq-service/internal/utils"
)

type SabaqHandler struct {
	BaseHandler
	sabaqService services.SabaqService
}

func NewSabaqHandler(sabaqService services.SabaqService, logger utils.Logger) *SabaqHandler {
	return &SabaqHandler{
		BaseHandler:  NewBaseHandler(logger),
		sabaqService: sabaqService,
	}
}

// CreateSabaq creates a new sabaq.
func (h *SabaqHandler) CreateSabaq(c *gin.Context) {
	h.LogRequest(c, "Creating sabaq")

	var req services.CreateSabaqRequest
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

	sabaq, err := h.sabaqService.Create(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sabaq)
}

// GetSabaq retrieves a sabaq with its janab and location.
func (h *SabaqHandler) GetSabaq(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	sabaq, err := h.sabaqService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sabaq)
}

// ListSabaqs lists sabaqs with optional filters.
func (h *SabaqHandler) ListSabaqs(c *gin.Context) {
	h.LogRequest(c, "Listing sabaqs")

	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.SabaqFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.DefaultQuery("sort_by", "name"),
		SortOrder: c.DefaultQuery("sort_order", "asc"),
	}
	if janabID := uint(h.parseIntQuery(c, "janab_id", 0)); janabID != 0 {
		filters.JanabID = &janabID
	}
	if level := c.Query("level"); level != "" {
		filters.Level = &level
	}

	sabaqs, err := h.sabaqService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sabaqs)
}

// DeleteSabaq removes a sabaq.
func (h *SabaqHandler) DeleteSabaq(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting sabaq", "sabaq_id", id)

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if err := h.sabaqService.Delete(c.Request.Context(), id, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Sabaq deleted successfully",
	})
}

// AddAdmin grants a user sabaq-scoped admin rights.
func (h *SabaqHandler) AddAdmin(c *gin.Context) {
	sabaqID := h.parseIDParam(c, "id")
	if sabaqID == 0 {
		return
	}
	userID := h.parseIDParam(c, "user_id")
	if userID == 0 {
		return
	}

	h.LogRequest(c, "Adding sabaq admin", "sabaq_id", sabaqID, "user_id", userID)

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if err := h.sabaqService.AddAdmin(c.Request.Context(), sabaqID, userID, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Admin added successfully",
	})
}

// RemoveAdmin revokes sabaq-scoped admin rights.
func (h *SabaqHandler) RemoveAdmin(c *gin.Context) {
	sabaqID := h.parseIDParam(c, "id")
	if sabaqID == 0 {
		return
	}
	userID := h.parseIDParam(c, "user_id")
	if userID == 0 {
		return
	}

	h.LogRequest(c, "Removing sabaq admin", "sabaq_id", sabaqID, "user_id", userID)

	actorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if err := h.sabaqService.RemoveAdmin(c.Request.Context(), sabaqID, userID, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Admin removed successfully",
	})
}
