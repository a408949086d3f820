package service

import (
	"context"
	"fmt"
	"time"

	"cleanclip/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminStats 运营统计
type AdminStats struct {
	Users               int64 `json:"users"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	Templates           int64 `json:"templates"`
	ActiveTemplates     int64 `json:"active_templates"`
	Deliveries          int64 `json:"deliveries"`
	Refunds             int64 `json:"refunds"`
}

// UserSummary 管理端用户列表项
type UserSummary struct {
	ID                 uuid.UUID                `json:"id"`
	Email              string                   `json:"email"`
	SubscriptionStatus model.SubscriptionStatus `json:"subscription_status"`
	CreatedAt          time.Time                `json:"created_at"`
}

type AdminService struct {
	db *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// GetStats 全局统计
func (s *AdminService) GetStats(ctx context.Context) (*AdminStats, error) {
	db := s.db.WithContext(ctx)
	stats := &AdminStats{}

	counts := []struct {
		name  string
		query *gorm.DB
		dest  *int64
	}{
		{"users", db.Model(&model.User{}), &stats.Users},
		{"active subscriptions", db.Model(&model.User{}).Where("subscription_status = ?", model.SubscriptionActive), &stats.ActiveSubscriptions},
		{"templates", db.Model(&model.ContentTemplate{}), &stats.Templates},
		{"active templates", db.Model(&model.ContentTemplate{}).Where("is_active = ?", true), &stats.ActiveTemplates},
		{"deliveries", db.Model(&model.DailyDelivery{}), &stats.Deliveries},
		{"refunds", db.Model(&model.RefundLog{}), &stats.Refunds},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.name, err)
		}
	}
	return stats, nil
}

// RecentUsers 最近注册的用户
func (s *AdminService) RecentUsers(ctx context.Context, limit int) ([]UserSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var users []UserSummary
	err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Select("id, email, subscription_status, created_at").
		Order("created_at DESC").
		Limit(limit).
		Scan(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
