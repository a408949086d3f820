package service

import "errors"

var (
	// ErrNoTemplates 用户业务类型下没有任何启用的模板
	ErrNoTemplates = errors.New("no active content templates for service type")

	// ErrInvalidState 用户未完成引导（缺少时区或业务类型）
	ErrInvalidState = errors.New("onboarding not completed")

	// ErrDeliveryConflict (user, date) 已有交付记录，由内容服务内部处理
	ErrDeliveryConflict = errors.New("delivery already recorded for this day")

	ErrUserNotFound         = errors.New("user not found")
	ErrTemplateNotFound     = errors.New("template not found")
	ErrInvalidServiceType   = errors.New("invalid service type")
	ErrInvalidTimezone      = errors.New("invalid timezone")
	ErrInvalidPrice         = errors.New("unknown price id")
	ErrNoSubscription       = errors.New("no active subscription")
	ErrNoBillingAccount     = errors.New("no billing account found")
	ErrNotEligibleForRefund = errors.New("not eligible for refund")
	ErrNoCharges            = errors.New("no charges found")
	ErrBillingDisabled      = errors.New("billing is not configured")
)

// ErrDeliveryNotFound (user, date) 尚无交付记录
var ErrDeliveryNotFound = errors.New("delivery not found")

// ErrTemplateInUse 模板已被交付记录引用，只能停用
var ErrTemplateInUse = errors.New("template is referenced by delivery history, deactivate it instead")

// ErrInvalidSignature webhook 签名头缺失、格式错误、不匹配或已过期
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrMalformedEvent 签名有效但事件内容无法解析
var ErrMalformedEvent = errors.New("malformed webhook event")

// ErrProfileNotFound 用户尚未创建 profile
var ErrProfileNotFound = errors.New("profile not found")
