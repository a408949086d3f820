package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cleanclip/model"
	"cleanclip/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// 未完成引导的用户看到的默认偏好
const (
	DefaultServiceType = model.ServiceTypeDeepClean
	DefaultTimezone    = "America/New_York"
)

type UserService struct {
	store UserStore
	now   func() time.Time
	log   *logrus.Entry
}

func NewUserService(store UserStore) *UserService {
	return &UserService{
		store: store,
		now:   time.Now,
		log:   utils.Log.WithField("component", "user_service"),
	}
}

// EnsureUser 认证通过后确保用户存在，并记录登录时间
func (s *UserService) EnsureUser(ctx context.Context, userID uuid.UUID, email string) (*model.User, error) {
	user, err := s.store.UpsertUser(ctx, userID, email, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser 获取用户
func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return s.store.GetUser(ctx, userID)
}

// GetProfile 获取用户偏好，不存在时返回默认值（不落库）
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return &model.Profile{
			UserID:              userID,
			ServiceType:         DefaultServiceType,
			Timezone:            DefaultTimezone,
			OnboardingCompleted: false,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Onboard 设置业务类型和时区，完成引导
func (s *UserService) Onboard(ctx context.Context, userID uuid.UUID, serviceType model.ServiceType, timezone string) (*model.Profile, error) {
	if !serviceType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServiceType, serviceType)
	}
	if _, err := LoadTimezone(timezone); err != nil {
		return nil, err
	}

	profile := &model.Profile{
		UserID:              userID,
		ServiceType:         serviceType,
		Timezone:            timezone,
		OnboardingCompleted: true,
	}
	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"service_type": serviceType,
		"timezone":     timezone,
	}).Info("onboarding completed")
	return profile, nil
}

// UpdateServiceType 切换业务类型，不影响历史交付记录
func (s *UserService) UpdateServiceType(ctx context.Context, userID uuid.UUID, serviceType model.ServiceType) error {
	if !serviceType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidServiceType, serviceType)
	}
	return s.updateProfile(ctx, userID, map[string]interface{}{"service_type": serviceType})
}

// UpdateTimezone 修改时区，决定"今天"何时切换
func (s *UserService) UpdateTimezone(ctx context.Context, userID uuid.UUID, timezone string) error {
	if _, err := LoadTimezone(timezone); err != nil {
		return err
	}
	return s.updateProfile(ctx, userID, map[string]interface{}{"timezone": timezone})
}

func (s *UserService) updateProfile(ctx context.Context, userID uuid.UUID, updates map[string]interface{}) error {
	err := s.store.UpdateProfile(ctx, userID, updates)
	if errors.Is(err, ErrProfileNotFound) {
		return ErrInvalidState
	}
	return err
}
