package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// 订阅相关的 webhook 事件类型
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// BillingEvent 解析并验签后的支付事件
type BillingEvent struct {
	ID             string
	Type           string
	CustomerID     string
	SubscriptionID string
	Status         string
	CancelAt       *time.Time
}

// CheckoutRequest 订阅结账参数
type CheckoutRequest struct {
	CustomerID string
	UserID     uuid.UUID
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// RefundResult 退款结果
type RefundResult struct {
	ID          string
	AmountCents int64
}

// BillingGateway 支付平台接口
type BillingGateway interface {
	CreateCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	// CancelAtPeriodEnd 到期取消，返回当前计费周期结束时间
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error)
	CancelNow(ctx context.Context, subscriptionID string) error
	// LatestCharge 客户最近一笔扣款，没有时返回 ErrNoCharges
	LatestCharge(ctx context.Context, customerID string) (string, error)
	Refund(ctx context.Context, chargeID string) (*RefundResult, error)
	PortalURL(ctx context.Context, customerID, returnURL string) (string, error)
	// ParseWebhook 验签并解析 webhook 请求体
	ParseWebhook(payload []byte, signature string) (*BillingEvent, error)
}
