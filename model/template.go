package model

import "time"

// DefaultCTA 模板默认行动号召
const DefaultCTA = "DM 'CLEAN' for pricing & availability."

// MaxCaptionLength 标题最大长度
const MaxCaptionLength = 180

// ContentTemplate 预先编写的内容模板表
type ContentTemplate struct {
	ID          int64       `json:"id" gorm:"primaryKey;autoIncrement"`
	ServiceType ServiceType `json:"service_type" gorm:"type:varchar(20);not null;index:idx_templates_service_active,priority:1"`
	Category    *Category   `json:"category,omitempty" gorm:"type:varchar(30);index"`
	Script      string      `json:"script" gorm:"type:text;not null"`
	Caption     string      `json:"caption" gorm:"type:varchar(180);not null"`
	CTA         string      `json:"cta" gorm:"column:cta;type:text;default:'DM ''CLEAN'' for pricing & availability.'"`
	IsActive    bool        `json:"is_active" gorm:"default:true;index:idx_templates_service_active,priority:2"`
	CreatedAt   time.Time   `json:"created_at" gorm:"autoCreateTime"`
}

func (ContentTemplate) TableName() string {
	return "content_templates"
}
