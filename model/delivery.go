package model

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout 交付日期格式
const DateLayout = "2006-01-02"

// DailyDelivery 每个用户每个本地日期最多一条交付记录
type DailyDelivery struct {
	ID           int64       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_deliveries_user_date,priority:1;index:idx_deliveries_user_service,priority:1"`
	TemplateID   int64       `json:"template_id" gorm:"not null;index"`
	ServiceType  ServiceType `json:"service_type" gorm:"type:varchar(20);not null;index:idx_deliveries_user_service,priority:2"`
	Cycle        int         `json:"cycle" gorm:"not null;default:1"`
	DeliveryDate time.Time   `json:"delivery_date" gorm:"type:date;not null;uniqueIndex:idx_deliveries_user_date,priority:2"`
	DeliveredAt  time.Time   `json:"delivered_at" gorm:"not null"`

	// 外键：被交付记录引用的模板只能停用，不能删除
	Template *ContentTemplate `json:"template,omitempty" gorm:"foreignKey:TemplateID;constraint:OnDelete:RESTRICT"`
}

func (DailyDelivery) TableName() string {
	return "daily_deliveries"
}

// RefundLog 退款审计记录
type RefundLog struct {
	ID             int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID         *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	StripeRefundID string     `json:"stripe_refund_id" gorm:"type:varchar(100)"`
	AmountCents    int64      `json:"amount_cents"`
	Reason         *string    `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (RefundLog) TableName() string {
	return "refund_log"
}

// AllModels 需要迁移的全部表
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&ContentTemplate{},
		&DailyDelivery{},
		&RefundLog{},
	}
}
