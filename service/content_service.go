package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cleanclip/metrics"
	"cleanclip/model"
	"cleanclip/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProfileReader 内容服务读取用户的业务类型与时区
type ProfileReader interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
}

// TodayContent 返回给用户的当日内容
type TodayContent struct {
	TemplateID    int64             `json:"template_id"`
	Script        string            `json:"script"`
	Caption       string            `json:"caption"`
	CTA           string            `json:"cta"`
	ServiceType   model.ServiceType `json:"service_type"`
	Category      *model.Category   `json:"category,omitempty"`
	DeliveryDate  string            `json:"delivery_date"`
	Cycle         int               `json:"cycle"`
	CanRegenerate bool              `json:"can_regenerate"`
}

// DeliveryStats 用户内容消费统计
type DeliveryStats struct {
	ServiceType      model.ServiceType `json:"service_type"`
	TotalTemplates   int               `json:"total_templates"`
	Delivered        int64             `json:"delivered"`
	Cycle            int               `json:"cycle"`
	SeenInCycle      int               `json:"seen_in_cycle"`
	RemainingInCycle int               `json:"remaining"`
	LastDeliveryDate *string           `json:"last_delivery_date,omitempty"`
}

// HistoryItem 历史交付
type HistoryItem struct {
	DeliveryDate string            `json:"delivery_date"`
	DeliveredAt  time.Time         `json:"delivered_at"`
	TemplateID   int64             `json:"template_id"`
	ServiceType  model.ServiceType `json:"service_type"`
	Cycle        int               `json:"cycle"`
	Script       string            `json:"script,omitempty"`
	Caption      string            `json:"caption,omitempty"`
	CTA          string            `json:"cta,omitempty"`
}

// ContentService 确定性内容分配：每个用户每个本地日期一个模板，
// 一轮内不重复，模板池用尽后开始新一轮
type ContentService struct {
	store    DeliveryStore
	profiles ProfileReader
	cache    TemplatePoolCache
	metrics  *metrics.Metrics
	log      *logrus.Entry
}

func NewContentService(store DeliveryStore, profiles ProfileReader) *ContentService {
	return &ContentService{
		store:    store,
		profiles: profiles,
		metrics:  metrics.Default(),
		log:      utils.Log.WithField("component", "content_service"),
	}
}

// SetPoolCache 设置模板池缓存（可选）
func (s *ContentService) SetPoolCache(cache TemplatePoolCache) {
	s.cache = cache
}

// GetTodayContent 返回用户在 asOf 所在本地日期的内容。调用方负责校验订阅状态。
func (s *ContentService) GetTodayContent(ctx context.Context, userID uuid.UUID, asOf time.Time) (*TodayContent, error) {
	start := time.Now()

	profile, loc, err := s.resolveProfile(ctx, userID)
	if err != nil {
		s.metrics.RecordError("invalid_state")
		return nil, err
	}
	date := LocalDate(asOf, loc)

	// 1. 当天已有记录，直接返回（幂等）
	existing, err := s.store.GetDelivery(ctx, userID, date)
	if err == nil {
		content, err := s.render(ctx, existing)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordReused(time.Since(start).Seconds())
		return content, nil
	}
	if !errors.Is(err, ErrDeliveryNotFound) {
		s.metrics.RecordError("store")
		return nil, err
	}

	// 2. 分配新模板
	delivery, template, err := s.assign(ctx, userID, profile.ServiceType, date, asOf)
	if errors.Is(err, ErrDeliveryConflict) {
		// 并发请求已写入当天记录，以胜出者为准
		s.metrics.RecordConflict()
		winner, err := s.store.GetDelivery(ctx, userID, date)
		if err != nil {
			s.metrics.RecordError("store")
			return nil, fmt.Errorf("failed to re-read delivery after conflict: %w", err)
		}
		return s.render(ctx, winner)
	}
	if err != nil {
		if errors.Is(err, ErrNoTemplates) {
			s.metrics.RecordError("no_templates")
		} else {
			s.metrics.RecordError("store")
		}
		return nil, err
	}

	s.metrics.RecordAssigned(string(profile.ServiceType), time.Since(start).Seconds())
	s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"date":        date.Format(model.DateLayout),
		"template_id": template.ID,
		"cycle":       delivery.Cycle,
	}).Debug("delivery assigned")

	return toTodayContent(delivery, template), nil
}

// assign 选择模板并写入交付记录。模板池缓存过期（选中的模板已停用）时绕过缓存重试一次。
func (s *ContentService) assign(ctx context.Context, userID uuid.UUID, serviceType model.ServiceType, date, now time.Time) (*model.DailyDelivery, *model.ContentTemplate, error) {
	for attempt := 0; attempt < 2; attempt++ {
		active, err := s.activeTemplateIDs(ctx, serviceType, attempt > 0)
		if err != nil {
			return nil, nil, err
		}
		if len(active) == 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoTemplates, serviceType)
		}

		cycle, seen, err := s.store.CycleState(ctx, userID, serviceType)
		if err != nil {
			return nil, nil, err
		}

		unseen := unseenTemplates(active, seen)
		newCycle := cycle == 0 || len(unseen) == 0
		if newCycle {
			cycle++
			unseen = active
		}

		templateID, _ := PickTemplate(userID, date, unseen)
		template, err := s.store.GetTemplate(ctx, templateID)
		if errors.Is(err, ErrTemplateNotFound) || (err == nil && (!template.IsActive || template.ServiceType != serviceType)) {
			s.invalidatePool(ctx, serviceType)
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		delivery := &model.DailyDelivery{
			UserID:       userID,
			TemplateID:   template.ID,
			ServiceType:  serviceType,
			Cycle:        cycle,
			DeliveryDate: date,
			DeliveredAt:  now.UTC(),
		}
		if err := s.store.CreateDelivery(ctx, delivery); err != nil {
			return nil, nil, err
		}

		if newCycle {
			s.metrics.RecordCycleStarted(string(serviceType))
			s.log.WithFields(logrus.Fields{
				"user_id":      userID,
				"service_type": serviceType,
				"cycle":        cycle,
			}).Info("template cycle started")
		}
		return delivery, template, nil
	}
	return nil, nil, fmt.Errorf("template pool for %s changed during assignment", serviceType)
}

func (s *ContentService) activeTemplateIDs(ctx context.Context, serviceType model.ServiceType, bypassCache bool) ([]int64, error) {
	if s.cache != nil && !bypassCache {
		if ids, ok := s.cache.Get(ctx, serviceType); ok {
			return ids, nil
		}
	}

	ids, err := s.store.ActiveTemplateIDs(ctx, serviceType)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && len(ids) > 0 {
		s.cache.Set(ctx, serviceType, ids)
	}
	return ids, nil
}

func (s *ContentService) invalidatePool(ctx context.Context, serviceType model.ServiceType) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, serviceType)
	}
}

// RefreshPools 重新加载所有业务类型的模板池缓存
func (s *ContentService) RefreshPools(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	for _, st := range model.ServiceTypes {
		s.cache.Invalidate(ctx, st)
		if _, err := s.activeTemplateIDs(ctx, st, true); err != nil {
			return err
		}
	}
	return nil
}

// InvalidatePool 模板启停后调用
func (s *ContentService) InvalidatePool(ctx context.Context, serviceType model.ServiceType) {
	s.invalidatePool(ctx, serviceType)
}

// GetDeliveryStats 只读统计，不产生交付记录
func (s *ContentService) GetDeliveryStats(ctx context.Context, userID uuid.UUID) (*DeliveryStats, error) {
	profile, _, err := s.resolveProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	active, err := s.store.ActiveTemplateIDs(ctx, profile.ServiceType)
	if err != nil {
		return nil, err
	}
	delivered, err := s.store.CountDeliveries(ctx, userID, profile.ServiceType)
	if err != nil {
		return nil, err
	}
	cycle, seen, err := s.store.CycleState(ctx, userID, profile.ServiceType)
	if err != nil {
		return nil, err
	}

	stats := &DeliveryStats{
		ServiceType:      profile.ServiceType,
		TotalTemplates:   len(active),
		Delivered:        delivered,
		Cycle:            cycle,
		SeenInCycle:      len(seen),
		RemainingInCycle: len(unseenTemplates(active, seen)),
	}

	latest, err := s.store.ListDeliveries(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(latest) > 0 {
		d := latest[0].DeliveryDate.Format(model.DateLayout)
		stats.LastDeliveryDate = &d
	}
	return stats, nil
}

// GetDeliveryHistory 最近的交付记录，最新在前
func (s *ContentService) GetDeliveryHistory(ctx context.Context, userID uuid.UUID, limit int) ([]HistoryItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}

	deliveries, err := s.store.ListDeliveries(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(deliveries))
	for _, d := range deliveries {
		ids = append(ids, d.TemplateID)
	}
	templates, err := s.store.GetTemplates(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(deliveries))
	for _, d := range deliveries {
		item := HistoryItem{
			DeliveryDate: d.DeliveryDate.Format(model.DateLayout),
			DeliveredAt:  d.DeliveredAt,
			TemplateID:   d.TemplateID,
			ServiceType:  d.ServiceType,
			Cycle:        d.Cycle,
		}
		if t, ok := templates[d.TemplateID]; ok {
			item.Script = t.Script
			item.Caption = t.Caption
			item.CTA = t.CTA
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *ContentService) resolveProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, *time.Location, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) || errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidState
		}
		return nil, nil, err
	}
	if !profile.OnboardingCompleted || !profile.ServiceType.Valid() {
		return nil, nil, ErrInvalidState
	}
	loc, err := LoadTimezone(profile.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return profile, loc, nil
}

// render 历史记录引用的模板即使已停用也照常返回
func (s *ContentService) render(ctx context.Context, delivery *model.DailyDelivery) (*TodayContent, error) {
	template, err := s.store.GetTemplate(ctx, delivery.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivered template %d: %w", delivery.TemplateID, err)
	}
	return toTodayContent(delivery, template), nil
}

func toTodayContent(delivery *model.DailyDelivery, template *model.ContentTemplate) *TodayContent {
	return &TodayContent{
		TemplateID:    template.ID,
		Script:        template.Script,
		Caption:       template.Caption,
		CTA:           template.CTA,
		ServiceType:   template.ServiceType,
		Category:      template.Category,
		DeliveryDate:  delivery.DeliveryDate.Format(model.DateLayout),
		Cycle:         delivery.Cycle,
		CanRegenerate: false,
	}
}
