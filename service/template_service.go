package service

import (
	"context"
	"errors"
	"fmt"

	"cleanclip/model"
	"cleanclip/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PoolInvalidator 模板启停后清理模板池缓存
type PoolInvalidator interface {
	InvalidatePool(ctx context.Context, serviceType model.ServiceType)
}

// TemplateCount 每个业务类型的模板数量
type TemplateCount struct {
	ServiceType model.ServiceType `json:"service_type"`
	Total       int64             `json:"total"`
	Active      int64             `json:"active"`
}

// TemplateFilter 模板列表过滤条件
type TemplateFilter struct {
	ServiceType model.ServiceType
	Category    model.Category
	ActiveOnly  bool
	Limit       int
	Offset      int
}

type TemplateService struct {
	db    *gorm.DB
	pools PoolInvalidator
	log   *logrus.Entry
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{
		db:  db,
		log: utils.Log.WithField("component", "template_service"),
	}
}

// SetPoolInvalidator 设置模板池缓存清理器（避免循环依赖）
func (s *TemplateService) SetPoolInvalidator(pools PoolInvalidator) {
	s.pools = pools
}

// GetTemplate 获取模板
func (s *TemplateService) GetTemplate(ctx context.Context, id int64) (*model.ContentTemplate, error) {
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

// ListTemplates 分页获取模板列表
func (s *TemplateService) ListTemplates(ctx context.Context, filter TemplateFilter) ([]model.ContentTemplate, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.ContentTemplate{})
	if filter.ServiceType != "" {
		query = query.Where("service_type = ?", filter.ServiceType)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count templates: %w", err)
	}

	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	var templates []model.ContentTemplate
	err := query.Order("id ASC").Limit(filter.Limit).Offset(filter.Offset).Find(&templates).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, total, nil
}

// CountsByServiceType 每个业务类型的模板总数和启用数
func (s *TemplateService) CountsByServiceType(ctx context.Context) ([]TemplateCount, error) {
	var rows []TemplateCount
	err := s.db.WithContext(ctx).
		Model(&model.ContentTemplate{}).
		Select("service_type, COUNT(*) AS total, COUNT(*) FILTER (WHERE is_active) AS active").
		Group("service_type").
		Order("service_type ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}
	return rows, nil
}

// SetActive 启用/停用模板。已交付的历史记录不受影响。
func (s *TemplateService) SetActive(ctx context.Context, id int64, active bool) (*model.ContentTemplate, error) {
	template, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	if template.IsActive != active {
		err := s.db.WithContext(ctx).
			Model(&model.ContentTemplate{}).
			Where("id = ?", id).
			Update("is_active", active).Error
		if err != nil {
			return nil, fmt.Errorf("failed to update template: %w", err)
		}
		template.IsActive = active
	}

	if s.pools != nil {
		s.pools.InvalidatePool(ctx, template.ServiceType)
	}

	s.log.WithFields(logrus.Fields{
		"template_id":  id,
		"service_type": template.ServiceType,
		"active":       active,
	}).Info("template active flag changed")
	return template, nil
}

// InsertTemplates 批量写入模板。clear 非空时先删除对应业务类型的模板。
//
// 已有交付记录引用的模板无法删除，此时需要改用停用。
func (s *TemplateService) InsertTemplates(ctx context.Context, templates []model.ContentTemplate, clear []model.ServiceType) (int, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(clear) > 0 {
			if err := deleteTemplates(tx, clear).Error; err != nil {
				return clearTemplatesError(err)
			}
		}
		if len(templates) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(templates, templateBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert templates: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.pools != nil {
		for _, st := range model.ServiceTypes {
			s.pools.InvalidatePool(ctx, st)
		}
	}
	return len(templates), nil
}

func deleteTemplates(tx *gorm.DB, serviceTypes []model.ServiceType) *gorm.DB {
	return tx.Where("service_type IN ?", serviceTypes).Delete(&model.ContentTemplate{})
}

// clearTemplatesError 外键拒绝删除时返回 ErrTemplateInUse（需开启 TranslateError）
func clearTemplatesError(err error) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrTemplateInUse
	}
	return fmt.Errorf("failed to clear templates: %w", err)
}
