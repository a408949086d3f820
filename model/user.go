package model

import (
	"time"

	"github.com/google/uuid"
)

// User 用户表：身份 + 订阅状态
type User struct {
	ID                    uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	Email                 string             `json:"email" gorm:"type:varchar(255);uniqueIndex"`
	CreatedAt             time.Time          `json:"created_at" gorm:"autoCreateTime"`
	SubscriptionStatus    SubscriptionStatus `json:"subscription_status" gorm:"type:varchar(20);default:'trialing';index"`
	StripeCustomerID      *string            `json:"-" gorm:"type:varchar(100);uniqueIndex"`
	StripeSubscriptionID  *string            `json:"-" gorm:"type:varchar(100)"`
	SubscriptionStartedAt *time.Time         `json:"subscription_started_at,omitempty"`
	SubscriptionEndsAt    *time.Time         `json:"subscription_ends_at,omitempty"`
	RefundUsed            bool               `json:"refund_used" gorm:"default:false"`
	LastLoginAt           *time.Time         `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Profile 用户偏好：业务类型 + 时区
type Profile struct {
	ID                  int64       `json:"-" gorm:"primaryKey;autoIncrement"`
	UserID              uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`
	ServiceType         ServiceType `json:"service_type" gorm:"type:varchar(20);default:'deep_clean'"`
	Timezone            string      `json:"timezone" gorm:"type:varchar(64);default:'America/New_York'"`
	OnboardingCompleted bool        `json:"onboarding_completed" gorm:"default:false"`
	CreatedAt           time.Time   `json:"-" gorm:"autoCreateTime"`
	UpdatedAt           time.Time   `json:"-" gorm:"autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}
