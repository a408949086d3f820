package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"cleanclip/service"
	"cleanclip/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MaxWebhookBodySize Stripe 事件体上限
const MaxWebhookBodySize = 64 * 1024

// WebhookProcessor webhook 依赖的服务
type WebhookProcessor interface {
	ParseWebhook(payload []byte, signature string) (*service.BillingEvent, error)
	HandleEvent(ctx context.Context, event *service.BillingEvent) error
}

type WebhookHandler struct {
	processor WebhookProcessor
}

func NewWebhookHandler(processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// Stripe 处理 Stripe webhook。验签失败或事件无法解析返回 400，处理失败返回 500 让 Stripe 重试。
func (h *WebhookHandler) Stripe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodySize)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		utils.BadRequest(c, "failed to read payload")
		return
	}

	event, err := h.processor.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBillingDisabled):
			respondError(c, err)
		case errors.Is(err, service.ErrMalformedEvent):
			// 签名有效，重试也无法解析
			utils.Log.WithError(err).Error("failed to decode signed stripe webhook")
			utils.BadRequest(c, "malformed event")
		default:
			utils.Log.WithError(err).Warn("rejected stripe webhook")
			utils.BadRequest(c, "invalid signature")
		}
		return
	}

	if err := h.processor.HandleEvent(c.Request.Context(), event); err != nil {
		utils.Log.WithError(err).WithFields(logrus.Fields{
			"event_id": event.ID,
			"type":     event.Type,
		}).Error("failed to handle stripe webhook")
		utils.InternalServerError(c, "failed to process event")
		return
	}

	utils.SuccessResponse(c, gin.H{"received": true})
}
