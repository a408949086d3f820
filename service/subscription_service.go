package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cleanclip/metrics"
	"cleanclip/model"
	"cleanclip/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Price 订阅价格
type Price struct {
	ID          string `json:"id"`
	Interval    string `json:"interval"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Label       string `json:"label"`
}

// PriceConfig Stripe 价格 ID
type PriceConfig struct {
	Monthly string
	Yearly  string
}

// SubscriptionStatusView 订阅状态
type SubscriptionStatusView struct {
	Status    model.SubscriptionStatus `json:"status"`
	StartedAt *time.Time               `json:"started_at,omitempty"`
	EndsAt    *time.Time               `json:"ends_at,omitempty"`
	CanRefund bool                     `json:"can_refund"`
}

// RefundOutcome 自助退款结果
type RefundOutcome struct {
	RefundID    string `json:"refund_id"`
	AmountCents int64  `json:"amount_cents"`
}

type SubscriptionService struct {
	users        UserStore
	gateway      BillingGateway
	prices       PriceConfig
	refundWindow time.Duration
	now          func() time.Time
	metrics      *metrics.Metrics
	log          *logrus.Entry
}

// NewSubscriptionService gateway 为 nil 时计费相关操作返回 ErrBillingDisabled
func NewSubscriptionService(users UserStore, gateway BillingGateway, prices PriceConfig, refundWindowDays int) *SubscriptionService {
	return &SubscriptionService{
		users:        users,
		gateway:      gateway,
		prices:       prices,
		refundWindow: time.Duration(refundWindowDays) * 24 * time.Hour,
		now:          time.Now,
		metrics:      metrics.Default(),
		log:          utils.Log.WithField("component", "subscription_service"),
	}
}

// Prices 可选的订阅方案
func (s *SubscriptionService) Prices() []Price {
	return []Price{
		{ID: s.prices.Monthly, Interval: "month", AmountCents: 900, Currency: "usd", Label: "$9/month"},
		{ID: s.prices.Yearly, Interval: "year", AmountCents: 7900, Currency: "usd", Label: "$79/year"},
	}
}

// GetStatus 订阅状态和退款资格
func (s *SubscriptionService) GetStatus(ctx context.Context, userID uuid.UUID) (*SubscriptionStatusView, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SubscriptionStatusView{
		Status:    user.SubscriptionStatus,
		StartedAt: user.SubscriptionStartedAt,
		EndsAt:    user.SubscriptionEndsAt,
		CanRefund: canRequestRefund(user.SubscriptionStartedAt, user.RefundUsed, s.refundWindow, s.now()),
	}, nil
}

// CreateCheckoutSession 创建订阅结账页面，必要时先创建 Stripe 客户
func (s *SubscriptionService) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, priceID, successURL, cancelURL string) (string, error) {
	if s.gateway == nil {
		return "", ErrBillingDisabled
	}
	if priceID == "" || (priceID != s.prices.Monthly && priceID != s.prices.Yearly) {
		return "", ErrInvalidPrice
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}

	customerID := ""
	if user.StripeCustomerID != nil {
		customerID = *user.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, userID, user.Email)
		if err != nil {
			return "", err
		}
		if err := s.users.UpdateUser(ctx, userID, map[string]interface{}{"stripe_customer_id": customerID}); err != nil {
			return "", err
		}
	}

	return s.gateway.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID: customerID,
		UserID:     userID,
		PriceID:    priceID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
}

// CancelSubscription 到期取消，返回访问截止时间
func (s *SubscriptionService) CancelSubscription(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	if s.gateway == nil {
		return time.Time{}, ErrBillingDisabled
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	if user.StripeSubscriptionID == nil || *user.StripeSubscriptionID == "" {
		return time.Time{}, ErrNoSubscription
	}

	endsAt, err := s.gateway.CancelAtPeriodEnd(ctx, *user.StripeSubscriptionID)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.users.UpdateUser(ctx, userID, map[string]interface{}{"subscription_ends_at": endsAt}); err != nil {
		return time.Time{}, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "ends_at": endsAt}).Info("subscription set to cancel at period end")
	return endsAt, nil
}

// RequestRefund 自助退款：退款窗口内且从未退过款。退款后立即取消订阅。
func (s *SubscriptionService) RequestRefund(ctx context.Context, userID uuid.UUID, reason string) (*RefundOutcome, error) {
	if s.gateway == nil {
		return nil, ErrBillingDisabled
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !canRequestRefund(user.SubscriptionStartedAt, user.RefundUsed, s.refundWindow, s.now()) {
		return nil, ErrNotEligibleForRefund
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return nil, ErrNoCharges
	}

	chargeID, err := s.gateway.LatestCharge(ctx, *user.StripeCustomerID)
	if err != nil {
		return nil, err
	}
	refund, err := s.gateway.Refund(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	if user.StripeSubscriptionID != nil && *user.StripeSubscriptionID != "" {
		if err := s.gateway.CancelNow(ctx, *user.StripeSubscriptionID); err != nil {
			// 退款已完成，仍需落库，订阅状态稍后由 webhook 修正
			s.log.WithError(err).WithField("user_id", userID).Error("failed to cancel subscription after refund")
		}
	}

	entry := &model.RefundLog{
		UserID:         &userID,
		StripeRefundID: refund.ID,
		AmountCents:    refund.AmountCents,
	}
	if reason != "" {
		entry.Reason = &reason
	}
	updates := map[string]interface{}{
		"subscription_status":  model.SubscriptionCanceled,
		"refund_used":          true,
		"subscription_ends_at": s.now().UTC(),
	}
	if err := s.users.RecordRefund(ctx, userID, updates, entry); err != nil {
		return nil, fmt.Errorf("refund %s issued but not recorded: %w", refund.ID, err)
	}

	s.metrics.RecordRefund()
	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"refund_id": refund.ID,
		"amount":    refund.AmountCents,
	}).Info("refund issued")

	return &RefundOutcome{RefundID: refund.ID, AmountCents: refund.AmountCents}, nil
}

// BillingPortalURL Stripe 客户门户地址
func (s *SubscriptionService) BillingPortalURL(ctx context.Context, userID uuid.UUID, returnURL string) (string, error) {
	if s.gateway == nil {
		return "", ErrBillingDisabled
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", ErrNoBillingAccount
	}
	return s.gateway.PortalURL(ctx, *user.StripeCustomerID, returnURL)
}

// ParseWebhook 验签并解析 webhook
func (s *SubscriptionService) ParseWebhook(payload []byte, signature string) (*BillingEvent, error) {
	if s.gateway == nil {
		return nil, ErrBillingDisabled
	}
	return s.gateway.ParseWebhook(payload, signature)
}

// HandleEvent 根据订阅事件同步用户状态。未知客户和无关事件直接忽略。
func (s *SubscriptionService) HandleEvent(ctx context.Context, event *BillingEvent) error {
	s.metrics.RecordWebhook(event.Type)

	var updates map[string]interface{}
	now := s.now().UTC()

	switch event.Type {
	case EventSubscriptionCreated:
		updates = map[string]interface{}{
			"subscription_status":     model.SubscriptionActive,
			"stripe_subscription_id":  event.SubscriptionID,
			"subscription_started_at": now,
		}
	case EventSubscriptionUpdated:
		status := mapStripeStatus(event.Status)
		updates = map[string]interface{}{"subscription_status": status}
		if status == model.SubscriptionCanceled && event.CancelAt != nil {
			updates["subscription_ends_at"] = *event.CancelAt
		}
	case EventSubscriptionDeleted:
		updates = map[string]interface{}{
			"subscription_status":  model.SubscriptionCanceled,
			"subscription_ends_at": now,
		}
	default:
		return nil
	}

	logger := s.log.WithFields(logrus.Fields{"event": event.Type, "customer_id": event.CustomerID})
	if event.CustomerID == "" {
		logger.Warn("subscription event without customer, ignored")
		return nil
	}

	user, err := s.users.GetUserByCustomerID(ctx, event.CustomerID)
	if errors.Is(err, ErrUserNotFound) {
		logger.Warn("subscription event for unknown customer, ignored")
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.users.UpdateUser(ctx, user.ID, updates); err != nil {
		return err
	}
	logger.WithField("user_id", user.ID).Info("subscription synced")
	return nil
}

// canRequestRefund 未退过款且距首次扣款不超过退款窗口
func canRequestRefund(startedAt *time.Time, refundUsed bool, window time.Duration, now time.Time) bool {
	if refundUsed || startedAt == nil {
		return false
	}
	return !now.After(startedAt.Add(window))
}

func mapStripeStatus(status string) model.SubscriptionStatus {
	switch status {
	case "active":
		return model.SubscriptionActive
	case "past_due", "unpaid":
		return model.SubscriptionPastDue
	case "trialing":
		return model.SubscriptionTrialing
	default:
		return model.SubscriptionCanceled
	}
}
