package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"cleanclip/model"
)

const templateBatchSize = 50

// TemplateInput 模板文件中的一条记录
type TemplateInput struct {
	ServiceType model.ServiceType `json:"service_type"`
	Category    model.Category    `json:"category,omitempty"`
	Script      string            `json:"script"`
	Caption     string            `json:"caption"`
	CTA         string            `json:"cta,omitempty"`
}

// Validate 校验单条模板
func (t TemplateInput) Validate() error {
	if !t.ServiceType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidServiceType, t.ServiceType)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("invalid category %q", t.Category)
	}
	if strings.TrimSpace(t.Script) == "" {
		return fmt.Errorf("script is empty")
	}
	if strings.TrimSpace(t.Caption) == "" {
		return fmt.Errorf("caption is empty")
	}
	if utf8.RuneCountInString(t.Caption) > model.MaxCaptionLength {
		return fmt.Errorf("caption exceeds %d characters", model.MaxCaptionLength)
	}
	return nil
}

// ToModel 转换为数据库模型，新模板默认启用
func (t TemplateInput) ToModel() model.ContentTemplate {
	out := model.ContentTemplate{
		ServiceType: t.ServiceType,
		Script:      t.Script,
		Caption:     t.Caption,
		CTA:         t.CTA,
		IsActive:    true,
	}
	if out.CTA == "" {
		out.CTA = model.DefaultCTA
	}
	if t.Category != "" {
		category := t.Category
		out.Category = &category
	}
	return out
}

// ParseTemplates 解析 JSON 数组并逐条校验
func ParseTemplates(data []byte) ([]TemplateInput, error) {
	var inputs []TemplateInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}
	for i, t := range inputs {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("template #%d: %w", i+1, err)
		}
	}
	return inputs, nil
}

// ReadTemplateDir 读取 <dir>/<service_type>.json。serviceType 为空时读取目录下全部 JSON 文件。
func ReadTemplateDir(dir string, serviceType model.ServiceType) ([]TemplateInput, error) {
	var files []string
	if serviceType != "" {
		if !serviceType.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidServiceType, serviceType)
		}
		files = []string{filepath.Join(dir, string(serviceType)+".json")}
	} else {
		matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("failed to list template files: %w", err)
		}
		sort.Strings(matches)
		files = matches
	}

	var all []TemplateInput
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		inputs, err := ParseTemplates(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		all = append(all, inputs...)
	}
	return all, nil
}

// CountTemplateInputs 按业务类型统计
func CountTemplateInputs(inputs []TemplateInput) map[model.ServiceType]int {
	counts := make(map[model.ServiceType]int)
	for _, t := range inputs {
		counts[t.ServiceType]++
	}
	return counts
}
