package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cleanclip/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserStore 用户、profile 与退款记录的持久化
type UserStore interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
	GetUserByCustomerID(ctx context.Context, customerID string) (*model.User, error)
	// UpsertUser 首次登录时创建用户，已存在时刷新 last_login_at
	UpsertUser(ctx context.Context, userID uuid.UUID, email string, loginAt time.Time) (*model.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, updates map[string]interface{}) error
	// RecordRefund 在同一事务中更新用户并写入退款记录
	RecordRefund(ctx context.Context, userID uuid.UUID, updates map[string]interface{}, entry *model.RefundLog) error

	GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	UpsertProfile(ctx context.Context, profile *model.Profile) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, updates map[string]interface{}) error

}

type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *GormUserStore) GetUserByCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "stripe_customer_id = ?", customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by customer: %w", err)
	}
	return &user, nil
}

func (s *GormUserStore) UpsertUser(ctx context.Context, userID uuid.UUID, email string, loginAt time.Time) (*model.User, error) {
	user := model.User{
		ID:                 userID,
		Email:              email,
		SubscriptionStatus: model.SubscriptionTrialing,
		LastLoginAt:        &loginAt,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_login_at"}),
		}).
		Create(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return s.GetUser(ctx, userID)
}

func (s *GormUserStore) UpdateUser(ctx context.Context, userID uuid.UUID, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *GormUserStore) RecordRefund(ctx context.Context, userID uuid.UUID, updates map[string]interface{}, entry *model.RefundLog) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.User{}).Where("id = ?", userID).Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to write refund log: %w", err)
		}
		return nil
	})
}

func (s *GormUserStore) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

func (s *GormUserStore) UpsertProfile(ctx context.Context, profile *model.Profile) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"service_type", "timezone", "onboarding_completed", "updated_at"}),
		}).
		Create(profile).Error
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (s *GormUserStore) UpdateProfile(ctx context.Context, userID uuid.UUID, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&model.Profile{}).Where("user_id = ?", userID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}
