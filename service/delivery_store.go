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

// DeliveryStore 内容分配所需的持久化契约
type DeliveryStore interface {
	// GetDelivery 查询 (user, date) 的交付记录，不存在返回 ErrDeliveryNotFound
	GetDelivery(ctx context.Context, userID uuid.UUID, date time.Time) (*model.DailyDelivery, error)
	// ActiveTemplateIDs 返回业务类型下启用模板的 ID，按 ID 升序
	ActiveTemplateIDs(ctx context.Context, serviceType model.ServiceType) ([]int64, error)
	GetTemplate(ctx context.Context, id int64) (*model.ContentTemplate, error)
	GetTemplates(ctx context.Context, ids []int64) (map[int64]*model.ContentTemplate, error)
	// CycleState 返回当前轮次（无记录时为 0）以及本轮已展示的模板
	CycleState(ctx context.Context, userID uuid.UUID, serviceType model.ServiceType) (int, map[int64]bool, error)
	// CreateDelivery 插入交付记录；(user, date) 已存在时返回 ErrDeliveryConflict
	CreateDelivery(ctx context.Context, delivery *model.DailyDelivery) error
	CountDeliveries(ctx context.Context, userID uuid.UUID, serviceType model.ServiceType) (int64, error)
	ListDeliveries(ctx context.Context, userID uuid.UUID, limit int) ([]model.DailyDelivery, error)
}

// GormDeliveryStore 基于 Postgres 的 DeliveryStore 实现
type GormDeliveryStore struct {
	db *gorm.DB
}

func NewGormDeliveryStore(db *gorm.DB) *GormDeliveryStore {
	return &GormDeliveryStore{db: db}
}

func (s *GormDeliveryStore) GetDelivery(ctx context.Context, userID uuid.UUID, date time.Time) (*model.DailyDelivery, error) {
	var delivery model.DailyDelivery
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND delivery_date = ?", userID, date.Format(model.DateLayout)).
		First(&delivery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeliveryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery: %w", err)
	}
	return &delivery, nil
}

func (s *GormDeliveryStore) ActiveTemplateIDs(ctx context.Context, serviceType model.ServiceType) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&model.ContentTemplate{}).
		Where("service_type = ? AND is_active = ?", serviceType, true).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active templates: %w", err)
	}
	return ids, nil
}

func (s *GormDeliveryStore) GetTemplate(ctx context.Context, id int64) (*model.ContentTemplate, error) {
	var template model.ContentTemplate
	err := s.db.WithContext(ctx).First(&template, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &template, nil
}

func (s *GormDeliveryStore) GetTemplates(ctx context.Context, ids []int64) (map[int64]*model.ContentTemplate, error) {
	result := make(map[int64]*model.ContentTemplate, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var templates []model.ContentTemplate
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to get templates: %w", err)
	}
	for i := range templates {
		result[templates[i].ID] = &templates[i]
	}
	return result, nil
}

func (s *GormDeliveryStore) CycleState(ctx context.Context, userID uuid.UUID, serviceType model.ServiceType) (int, map[int64]bool, error) {
	var cycle int
	err := currentCycleQuery(s.db.WithContext(ctx), userID, serviceType).Scan(&cycle).Error
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get current cycle: %w", err)
	}

	seen := make(map[int64]bool)
	if cycle == 0 {
		return 0, seen, nil
	}

	var ids []int64
	err = s.db.WithContext(ctx).
		Model(&model.DailyDelivery{}).
		Where("user_id = ? AND service_type = ? AND cycle = ?", userID, serviceType, cycle).
		Pluck("template_id", &ids).Error
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list templates seen in cycle: %w", err)
	}
	for _, id := range ids {
		seen[id] = true
	}
	return cycle, seen, nil
}

// currentCycleQuery 用户在该业务类型下的最大轮次，没有记录时为 0
func currentCycleQuery(tx *gorm.DB, userID uuid.UUID, serviceType model.ServiceType) *gorm.DB {
	return tx.Model(&model.DailyDelivery{}).
		Select("COALESCE(MAX(cycle), 0)").
		Where("user_id = ? AND service_type = ?", userID, serviceType)
}

// insertDelivery 依赖 (user_id, delivery_date) 唯一索引：冲突时不插入，RowsAffected 为 0
func insertDelivery(tx *gorm.DB, delivery *model.DailyDelivery) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "delivery_date"}},
		DoNothing: true,
	}).Create(delivery)
}

func (s *GormDeliveryStore) CreateDelivery(ctx context.Context, delivery *model.DailyDelivery) error {
	result := insertDelivery(s.db.WithContext(ctx), delivery)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDeliveryConflict
		}
		return fmt.Errorf("failed to create delivery: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDeliveryConflict
	}
	return nil
}

func (s *GormDeliveryStore) CountDeliveries(ctx context.Context, userID uuid.UUID, serviceType model.ServiceType) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.DailyDelivery{}).
		Where("user_id = ? AND service_type = ?", userID, serviceType).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return count, nil
}

func (s *GormDeliveryStore) ListDeliveries(ctx context.Context, userID uuid.UUID, limit int) ([]model.DailyDelivery, error) {
	var deliveries []model.DailyDelivery
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("delivery_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	return deliveries, nil
}
