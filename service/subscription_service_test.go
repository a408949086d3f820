package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cleanclip/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	customers   int
	checkouts   []CheckoutRequest
	canceledNow []string
	refunded    []string
	charge      string
	periodEnd   time.Time
	event       *BillingEvent
	err         error
}

func (g *fakeGateway) CreateCustomer(_ context.Context, _ uuid.UUID, _ string) (string, error) {
	g.customers++
	return "cus_new", g.err
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (string, error) {
	g.checkouts = append(g.checkouts, req)
	return "https://checkout.stripe.test/session", g.err
}

func (g *fakeGateway) CancelAtPeriodEnd(_ context.Context, _ string) (time.Time, error) {
	return g.periodEnd, g.err
}

func (g *fakeGateway) CancelNow(_ context.Context, id string) error {
	g.canceledNow = append(g.canceledNow, id)
	return g.err
}

func (g *fakeGateway) LatestCharge(_ context.Context, _ string) (string, error) {
	if g.charge == "" {
		return "", ErrNoCharges
	}
	return g.charge, nil
}

func (g *fakeGateway) Refund(_ context.Context, chargeID string) (*RefundResult, error) {
	g.refunded = append(g.refunded, chargeID)
	return &RefundResult{ID: "re_1", AmountCents: 900}, g.err
}

func (g *fakeGateway) PortalURL(_ context.Context, customerID, returnURL string) (string, error) {
	return "https://billing.stripe.test/" + customerID, g.err
}

func (g *fakeGateway) ParseWebhook(_ []byte, signature string) (*BillingEvent, error) {
	if signature != "valid" {
		return nil, errors.New("bad signature")
	}
	return g.event, nil
}

func strPtr(s string) *string { return &s }

func newSubscriptionFixture(now time.Time) (*SubscriptionService, *memUserStore, *fakeGateway) {
	store := newMemUserStore()
	gateway := &fakeGateway{}
	svc := NewSubscriptionService(store, gateway, PriceConfig{Monthly: "price_m", Yearly: "price_y"}, 7)
	svc.now = func() time.Time { return now }
	return svc, store, gateway
}

func TestCanRequestRefund(t *testing.T) {
	window := 7 * 24 * time.Hour
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, canRequestRefund(&started, false, window, started.Add(24*time.Hour)))
	assert.True(t, canRequestRefund(&started, false, window, started.Add(window)))
	assert.False(t, canRequestRefund(&started, false, window, started.Add(window+time.Second)))
	assert.False(t, canRequestRefund(&started, true, window, started.Add(time.Hour)))
	assert.False(t, canRequestRefund(nil, false, window, started))
}

func TestMapStripeStatus(t *testing.T) {
	cases := map[string]model.SubscriptionStatus{
		"active":             model.SubscriptionActive,
		"past_due":           model.SubscriptionPastDue,
		"unpaid":             model.SubscriptionPastDue,
		"trialing":           model.SubscriptionTrialing,
		"canceled":           model.SubscriptionCanceled,
		"incomplete_expired": model.SubscriptionCanceled,
	}
	for in, want := range cases {
		assert.Equal(t, want, mapStripeStatus(in), in)
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	svc, store, gateway := newSubscriptionFixture(time.Now())
	ctx := context.Background()
	id := uuid.New()
	store.put(&model.User{ID: id, Email: "a@b.test"})

	_, err := svc.CreateCheckoutSession(ctx, id, "price_other", "s", "c")
	assert.ErrorIs(t, err, ErrInvalidPrice)

	url, err := svc.CreateCheckoutSession(ctx, id, "price_m", "https://app/success", "https://app/cancel")
	require.NoError(t, err)
	assert.NotEmpty(t, url)
	assert.Equal(t, 1, gateway.customers)
	require.NotNil(t, store.user(id).StripeCustomerID)
	assert.Equal(t, "cus_new", *store.user(id).StripeCustomerID)

	// 已有客户不再重复创建
	_, err = svc.CreateCheckoutSession(ctx, id, "price_y", "s", "c")
	require.NoError(t, err)
	assert.Equal(t, 1, gateway.customers)
	require.Len(t, gateway.checkouts, 2)
	assert.Equal(t, "cus_new", gateway.checkouts[1].CustomerID)
	assert.Equal(t, "price_y", gateway.checkouts[1].PriceID)
}

func TestCancelSubscription(t *testing.T) {
	svc, store, gateway := newSubscriptionFixture(time.Now())
	ctx := context.Background()
	id := uuid.New()
	store.put(&model.User{ID: id})

	_, err := svc.CancelSubscription(ctx, id)
	assert.ErrorIs(t, err, ErrNoSubscription)

	gateway.periodEnd = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	store.put(&model.User{ID: id, StripeSubscriptionID: strPtr("sub_1")})
	endsAt, err := svc.CancelSubscription(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, gateway.periodEnd, endsAt)
	assert.Equal(t, gateway.periodEnd, *store.user(id).SubscriptionEndsAt)
}

func TestRequestRefund(t *testing.T) {
	now := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	svc, store, gateway := newSubscriptionFixture(now)
	ctx := context.Background()
	id := uuid.New()
	started := now.Add(-72 * time.Hour)
	store.put(&model.User{
		ID:                    id,
		SubscriptionStatus:    model.SubscriptionActive,
		StripeCustomerID:      strPtr("cus_1"),
		StripeSubscriptionID:  strPtr("sub_1"),
		SubscriptionStartedAt: &started,
	})

	_, err := svc.RequestRefund(ctx, id, "")
	assert.ErrorIs(t, err, ErrNoCharges)

	gateway.charge = "ch_1"
	outcome, err := svc.RequestRefund(ctx, id, "not for me")
	require.NoError(t, err)
	assert.Equal(t, "re_1", outcome.RefundID)
	assert.EqualValues(t, 900, outcome.AmountCents)
	assert.Equal(t, []string{"ch_1"}, gateway.refunded)
	assert.Equal(t, []string{"sub_1"}, gateway.canceledNow)

	user := store.user(id)
	assert.True(t, user.RefundUsed)
	assert.Equal(t, model.SubscriptionCanceled, user.SubscriptionStatus)
	require.Len(t, store.refunds, 1)
	assert.Equal(t, "not for me", *store.refunds[0].Reason)

	// 每个账户只能退款一次
	_, err = svc.RequestRefund(ctx, id, "")
	assert.ErrorIs(t, err, ErrNotEligibleForRefund)
}

func TestRequestRefund_OutsideWindow(t *testing.T) {
	now := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	svc, store, gateway := newSubscriptionFixture(now)
	id := uuid.New()
	started := now.AddDate(0, 0, -8)
	store.put(&model.User{ID: id, StripeCustomerID: strPtr("cus_1"), SubscriptionStartedAt: &started})
	gateway.charge = "ch_1"

	_, err := svc.RequestRefund(context.Background(), id, "")
	assert.ErrorIs(t, err, ErrNotEligibleForRefund)
	assert.Empty(t, gateway.refunded)
}

func TestBillingPortalURL(t *testing.T) {
	svc, store, _ := newSubscriptionFixture(time.Now())
	id := uuid.New()
	store.put(&model.User{ID: id})

	_, err := svc.BillingPortalURL(context.Background(), id, "https://app")
	assert.ErrorIs(t, err, ErrNoBillingAccount)

	store.put(&model.User{ID: id, StripeCustomerID: strPtr("cus_9")})
	url, err := svc.BillingPortalURL(context.Background(), id, "https://app")
	require.NoError(t, err)
	assert.Contains(t, url, "cus_9")
}

func TestBillingDisabled(t *testing.T) {
	svc := NewSubscriptionService(newMemUserStore(), nil, PriceConfig{}, 7)
	_, err := svc.CreateCheckoutSession(context.Background(), uuid.New(), "price_m", "", "")
	assert.ErrorIs(t, err, ErrBillingDisabled)
	_, err = svc.ParseWebhook([]byte("{}"), "valid")
	assert.ErrorIs(t, err, ErrBillingDisabled)
}

func TestHandleEvent_Lifecycle(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, _ := newSubscriptionFixture(now)
	ctx := context.Background()
	id := uuid.New()
	store.put(&model.User{ID: id, SubscriptionStatus: model.SubscriptionTrialing, StripeCustomerID: strPtr("cus_1")})

	require.NoError(t, svc.HandleEvent(ctx, &BillingEvent{
		Type: EventSubscriptionCreated, CustomerID: "cus_1", SubscriptionID: "sub_1", Status: "active",
	}))
	user := store.user(id)
	assert.Equal(t, model.SubscriptionActive, user.SubscriptionStatus)
	assert.Equal(t, "sub_1", *user.StripeSubscriptionID)
	assert.Equal(t, now, *user.SubscriptionStartedAt)

	require.NoError(t, svc.HandleEvent(ctx, &BillingEvent{
		Type: EventSubscriptionUpdated, CustomerID: "cus_1", Status: "unpaid",
	}))
	assert.Equal(t, model.SubscriptionPastDue, store.user(id).SubscriptionStatus)

	cancelAt := now.AddDate(0, 1, 0)
	require.NoError(t, svc.HandleEvent(ctx, &BillingEvent{
		Type: EventSubscriptionUpdated, CustomerID: "cus_1", Status: "canceled", CancelAt: &cancelAt,
	}))
	user = store.user(id)
	assert.Equal(t, model.SubscriptionCanceled, user.SubscriptionStatus)
	assert.Equal(t, cancelAt, *user.SubscriptionEndsAt)

	require.NoError(t, svc.HandleEvent(ctx, &BillingEvent{Type: EventSubscriptionDeleted, CustomerID: "cus_1"}))
	assert.Equal(t, now, *store.user(id).SubscriptionEndsAt)
}

func TestHandleEvent_IgnoresUnknown(t *testing.T) {
	svc, store, _ := newSubscriptionFixture(time.Now())
	id := uuid.New()
	store.put(&model.User{ID: id, SubscriptionStatus: model.SubscriptionTrialing, StripeCustomerID: strPtr("cus_1")})

	assert.NoError(t, svc.HandleEvent(context.Background(), &BillingEvent{Type: "invoice.paid", CustomerID: "cus_1"}))
	assert.NoError(t, svc.HandleEvent(context.Background(), &BillingEvent{Type: EventSubscriptionDeleted, CustomerID: "cus_unknown"}))
	assert.Equal(t, model.SubscriptionTrialing, store.user(id).SubscriptionStatus)
}
