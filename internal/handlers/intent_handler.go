package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-intents/internal/models"
	"github.com/akylbek/payment-system/payment-intents/internal/service"
	"github.com/akylbek/payment-system/payment-intents/internal/telemetry"
)

type IntentHandler struct {
	svc *service.IntentService
}

func NewIntentHandler(svc *service.IntentService) *IntentHandler {
	return &IntentHandler{svc: svc}
}

type createIntentRequest struct {
	OrderID     models.OrderRef `json:"order_id"`
	UserID      *int64          `json:"user_id"`
	Amount      int64           `json:"amount"`
	CallbackURL string          `json:"callback_url"`
	TxID        string          `json:"tx_id"`
}

func (h *IntentHandler) CreateIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		telemetry.Logger.Info("Error decoding payment request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	intent, created, err := h.svc.CreateIntent(c.Request.Context(), models.CreateIntentCommand{
		OrderRef:         req.OrderID,
		UserID:           req.UserID,
		Amount:           req.Amount,
		CallbackURL:      req.CallbackURL,
		CorrelationToken: req.TxID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, intent)
}

func (h *IntentHandler) ConfirmIntent(c *gin.Context) {
	intent, err := h.svc.ConfirmIntent(c.Request.Context(), models.ConfirmCommand{ID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (h *IntentHandler) GetIntent(c *gin.Context) {
	intent, err := h.svc.GetIntent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (h *IntentHandler) ListIntents(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ListIntents(c.Request.Context()))
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidAmount), errors.Is(err, models.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment intent not found"})
	case errors.Is(err, models.ErrAlreadyFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": "Payment intent already processed"})
	case errors.Is(err, models.ErrIdempotencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrWebhooksDisabled):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		telemetry.Logger.Error("Unexpected payment intent error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
