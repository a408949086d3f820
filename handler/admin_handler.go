package handler

import (
	"context"
	"strconv"

	"cleanclip/model"
	"cleanclip/service"
	"cleanclip/utils"

	"github.com/gin-gonic/gin"
)

// TemplateManager 模板管理依赖的服务
type TemplateManager interface {
	ListTemplates(ctx context.Context, filter service.TemplateFilter) ([]model.ContentTemplate, int64, error)
	CountsByServiceType(ctx context.Context) ([]service.TemplateCount, error)
	SetActive(ctx context.Context, id int64, active bool) (*model.ContentTemplate, error)
	InsertTemplates(ctx context.Context, templates []model.ContentTemplate, clear []model.ServiceType) (int, error)
}

// AdminReporter 运营统计依赖的服务
type AdminReporter interface {
	GetStats(ctx context.Context) (*service.AdminStats, error)
	RecentUsers(ctx context.Context, limit int) ([]service.UserSummary, error)
}

type AdminHandler struct {
	templateSvc TemplateManager
	adminSvc    AdminReporter
}

func NewAdminHandler(templateSvc TemplateManager, adminSvc AdminReporter) *AdminHandler {
	return &AdminHandler{templateSvc: templateSvc, adminSvc: adminSvc}
}

// GetStats 全局统计
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.adminSvc.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, stats)
}

// ListUsers 最近注册的用户
func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	users, err := h.adminSvc.RecentUsers(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"users": users})
}

// TemplateCounts 每个业务类型的模板数量
func (h *AdminHandler) TemplateCounts(c *gin.Context) {
	counts, err := h.templateSvc.CountsByServiceType(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"templates": counts})
}

// ListTemplates 分页获取模板
func (h *AdminHandler) ListTemplates(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	filter := service.TemplateFilter{
		ServiceType: model.ServiceType(c.Query("service_type")),
		Category:    model.Category(c.Query("category")),
		ActiveOnly:  c.Query("active_only") == "true",
		Limit:       limit,
		Offset:      offset,
	}
	if filter.ServiceType != "" && !filter.ServiceType.Valid() {
		utils.BadRequest(c, "invalid service_type")
		return
	}

	templates, total, err := h.templateSvc.ListTemplates(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"templates": templates, "total": total})
}

// ActivateTemplate 启用模板
func (h *AdminHandler) ActivateTemplate(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateTemplate 停用模板，已交付的历史不受影响
func (h *AdminHandler) DeactivateTemplate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *AdminHandler) setActive(c *gin.Context, active bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.BadRequest(c, "invalid template id")
		return
	}

	template, err := h.templateSvc.SetActive(c.Request.Context(), id, active)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"template": template})
}

type loadTemplatesRequest struct {
	Templates []service.TemplateInput `json:"templates" binding:"required"`
	Clear     bool                    `json:"clear"`
	DryRun    bool                    `json:"dry_run"`
}

// LoadTemplates 批量导入模板
func (h *AdminHandler) LoadTemplates(c *gin.Context) {
	var req loadTemplatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "templates are required")
		return
	}

	records := make([]model.ContentTemplate, 0, len(req.Templates))
	for i, t := range req.Templates {
		if err := t.Validate(); err != nil {
			utils.BadRequest(c, "template #"+strconv.Itoa(i+1)+": "+err.Error())
			return
		}
		records = append(records, t.ToModel())
	}

	counts := service.CountTemplateInputs(req.Templates)
	if req.DryRun {
		utils.SuccessWithMessage(c, "dry run, nothing inserted", gin.H{"by_service_type": counts})
		return
	}

	var clear []model.ServiceType
	if req.Clear {
		for st := range counts {
			clear = append(clear, st)
		}
	}

	inserted, err := h.templateSvc.InsertTemplates(c.Request.Context(), records, clear)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"inserted": inserted, "by_service_type": counts})
}
