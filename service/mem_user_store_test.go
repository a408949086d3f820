package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cleanclip/model"

	"github.com/google/uuid"
)

// memUserStore 内存版 UserStore，updates 只支持服务层实际用到的字段
type memUserStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*model.User
	profiles map[uuid.UUID]*model.Profile
	refunds  []model.RefundLog
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		users:    make(map[uuid.UUID]*model.User),
		profiles: make(map[uuid.UUID]*model.Profile),
	}
}

func (s *memUserStore) put(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *memUserStore) user(id uuid.UUID) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *memUserStore) GetUser(_ context.Context, userID uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (s *memUserStore) GetUserByCustomerID(_ context.Context, customerID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memUserStore) UpsertUser(ctx context.Context, userID uuid.UUID, email string, loginAt time.Time) (*model.User, error) {
	s.mu.Lock()
	u, ok := s.users[userID]
	if !ok {
		u = &model.User{ID: userID, Email: email, CreatedAt: loginAt, SubscriptionStatus: model.SubscriptionTrialing}
		s.users[userID] = u
	}
	u.LastLoginAt = &loginAt
	s.mu.Unlock()
	return s.GetUser(ctx, userID)
}

func (s *memUserStore) UpdateUser(_ context.Context, userID uuid.UUID, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	return applyUserUpdates(u, updates)
}

func (s *memUserStore) RecordRefund(_ context.Context, userID uuid.UUID, updates map[string]interface{}, entry *model.RefundLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if err := applyUserUpdates(u, updates); err != nil {
		return err
	}
	s.refunds = append(s.refunds, *entry)
	return nil
}

func applyUserUpdates(u *model.User, updates map[string]interface{}) error {
	for key, value := range updates {
		switch key {
		case "subscription_status":
			u.SubscriptionStatus = value.(model.SubscriptionStatus)
		case "stripe_customer_id":
			v := value.(string)
			u.StripeCustomerID = &v
		case "stripe_subscription_id":
			v := value.(string)
			u.StripeSubscriptionID = &v
		case "subscription_started_at":
			v := value.(time.Time)
			u.SubscriptionStartedAt = &v
		case "subscription_ends_at":
			v := value.(time.Time)
			u.SubscriptionEndsAt = &v
		case "refund_used":
			u.RefundUsed = value.(bool)
		default:
			return fmt.Errorf("unsupported user field %q", key)
		}
	}
	return nil
}

func (s *memUserStore) GetProfile(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	out := *p
	return &out, nil
}

func (s *memUserStore) UpsertProfile(_ context.Context, profile *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *profile
	s.profiles[profile.UserID] = &out
	return nil
}

func (s *memUserStore) UpdateProfile(_ context.Context, userID uuid.UUID, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return ErrProfileNotFound
	}
	for key, value := range updates {
		switch key {
		case "service_type":
			p.ServiceType = value.(model.ServiceType)
		case "timezone":
			p.Timezone = value.(string)
		default:
			return fmt.Errorf("unsupported profile field %q", key)
		}
	}
	return nil
}
