package handler

import (
	"context"
	"strconv"
	"time"

	"cleanclip/middleware"
	"cleanclip/service"
	"cleanclip/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContentProvider 内容接口依赖的服务
type ContentProvider interface {
	GetTodayContent(ctx context.Context, userID uuid.UUID, asOf time.Time) (*service.TodayContent, error)
	GetDeliveryStats(ctx context.Context, userID uuid.UUID) (*service.DeliveryStats, error)
	GetDeliveryHistory(ctx context.Context, userID uuid.UUID, limit int) ([]service.HistoryItem, error)
}

type ContentHandler struct {
	contentSvc ContentProvider
	now        func() time.Time
}

func NewContentHandler(contentSvc ContentProvider) *ContentHandler {
	return &ContentHandler{contentSvc: contentSvc, now: time.Now}
}

// GetToday 获取今日内容
func (h *ContentHandler) GetToday(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	content, err := h.contentSvc.GetTodayContent(c.Request.Context(), userID, h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, content)
}

// GetStats 内容消费统计
func (h *ContentHandler) GetStats(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	stats, err := h.contentSvc.GetDeliveryStats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

// GetHistory 历史交付
func (h *ContentHandler) GetHistory(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	items, err := h.contentSvc.GetDeliveryHistory(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"deliveries": items})
}
