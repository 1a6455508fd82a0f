package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sabaq-center/sabaq-service/internal/services"
	"github.com/sabaq-center/sabaq-service/internal/utils"
)

type EmailHandler struct {
	BaseHandler
	notificationService services.NotificationService
}

func NewEmailHandler(notificationService services.NotificationService, logger utils.Logger) *EmailHandler {
	return &EmailHandler{
		BaseHandler:         NewBaseHandler(logger),
		notificationService: notificationService,
	}
}

// ProcessQueue drains the pending email queue once.
func (h *EmailHandler) ProcessQueue(c *gin.Context) {
	h.LogRequest(c, "Processing email queue")

	result, err := h.notificationService.ProcessEmailQueue(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RetryFailed resets failed emails back to pending.
func (h *EmailHandler) RetryFailed(c *gin.Context) {
	h.LogRequest(c, "Retrying failed emails")

	reset, err := h.notificationService.RetryFailedEmails(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Failed emails queued for retry",
		Data:    gin.H{"reset_count": reset},
	})
}
