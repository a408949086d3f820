package model

// ServiceType 清洁业务类型，每个用户固定一种
type ServiceType string

const (
	ServiceTypeDeepClean ServiceType = "deep_clean"
	ServiceTypeAirbnb    ServiceType = "airbnb"
	ServiceTypeMoveOut   ServiceType = "move_out"
)

// ServiceTypes 所有合法的业务类型（按固定顺序）
var ServiceTypes = []ServiceType{ServiceTypeDeepClean, ServiceTypeAirbnb, ServiceTypeMoveOut}

// Valid 是否为已知业务类型
func (s ServiceType) Valid() bool {
	for _, st := range ServiceTypes {
		if s == st {
			return true
		}
	}
	return false
}

// Category 模板分类
type Category string

const (
	CategoryBeforeAfter Category = "before_after"
	CategoryProcess     Category = "process"
	CategoryPricing     Category = "pricing"
	CategoryObjections  Category = "objections"
	CategoryTrust       Category = "trust"
	CategoryUrgency     Category = "urgency"
)

var categories = map[Category]bool{
	CategoryBeforeAfter: true,
	CategoryProcess:     true,
	CategoryPricing:     true,
	CategoryObjections:  true,
	CategoryTrust:       true,
	CategoryUrgency:     true,
}

// Valid 空分类视为合法（分类可选）
func (c Category) Valid() bool {
	return c == "" || categories[c]
}

// SubscriptionStatus 订阅状态（由 Stripe webhook 维护）
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionTrialing SubscriptionStatus = "trialing"
)

// GrantsAccess 只有 active 和 trialing 可以获取内容
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == SubscriptionActive || s == SubscriptionTrialing
}
