package handler

import (
	"context"
	"time"

	"cleanclip/middleware"
	"cleanclip/service"
	"cleanclip/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Billing 订阅接口依赖的服务
type Billing interface {
	Prices() []service.Price
	GetStatus(ctx context.Context, userID uuid.UUID) (*service.SubscriptionStatusView, error)
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, priceID, successURL, cancelURL string) (string, error)
	CancelSubscription(ctx context.Context, userID uuid.UUID) (time.Time, error)
	RequestRefund(ctx context.Context, userID uuid.UUID, reason string) (*service.RefundOutcome, error)
	BillingPortalURL(ctx context.Context, userID uuid.UUID, returnURL string) (string, error)
}

type SubscriptionHandler struct {
	billing Billing
	baseURL string
}

// NewSubscriptionHandler baseURL 为前端地址，用于拼接 Stripe 回跳链接
func NewSubscriptionHandler(billing Billing, baseURL string) *SubscriptionHandler {
	return &SubscriptionHandler{billing: billing, baseURL: baseURL}
}

// GetPrices 订阅价格（公开）
func (h *SubscriptionHandler) GetPrices(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{"prices": h.billing.Prices()})
}

// GetStatus 当前订阅状态
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	status, err := h.billing.GetStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, status)
}

// Checkout 创建结账会话
func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	var req struct {
		PriceID string `json:"price_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "price_id is required")
		return
	}

	url, err := h.billing.CreateCheckoutSession(c.Request.Context(), userID, req.PriceID,
		h.baseURL+"/subscription/success", h.baseURL+"/subscription/cancel")
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"checkout_url": url})
}

// Cancel 到期取消
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	endsAt, err := h.billing.CancelSubscription(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "subscription will cancel at period end", gin.H{"ends_at": endsAt})
}

// Refund 自助退款
func (h *SubscriptionHandler) Refund(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// 请求体可选
	_ = c.ShouldBindJSON(&req)

	outcome, err := h.billing.RequestRefund(c.Request.Context(), userID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "refund issued", outcome)
}

// Portal Stripe 客户门户
func (h *SubscriptionHandler) Portal(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	url, err := h.billing.BillingPortalURL(c.Request.Context(), userID, h.baseURL+"/settings")
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"portal_url": url})
}
