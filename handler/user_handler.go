package handler

import (
	"context"

	"cleanclip/middleware"
	"cleanclip/model"
	"cleanclip/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProfileManager 用户偏好接口依赖的服务
type ProfileManager interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	Onboard(ctx context.Context, userID uuid.UUID, serviceType model.ServiceType, timezone string) (*model.Profile, error)
	UpdateServiceType(ctx context.Context, userID uuid.UUID, serviceType model.ServiceType) error
	UpdateTimezone(ctx context.Context, userID uuid.UUID, timezone string) error
}

type UserHandler struct {
	userSvc ProfileManager
}

func NewUserHandler(userSvc ProfileManager) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

type onboardRequest struct {
	ServiceType model.ServiceType `json:"service_type" binding:"required"`
	Timezone    string            `json:"timezone" binding:"required"`
}

// GetProfile 获取用户偏好
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	profile, err := h.userSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"service_type":         profile.ServiceType,
		"timezone":             profile.Timezone,
		"onboarding_completed": profile.OnboardingCompleted,
	})
}

// Onboard 完成引导
func (h *UserHandler) Onboard(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	var req onboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "service_type and timezone are required")
		return
	}

	profile, err := h.userSvc.Onboard(c.Request.Context(), userID, req.ServiceType, req.Timezone)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"service_type": profile.ServiceType,
		"timezone":     profile.Timezone,
	})
}

// UpdateServiceType 切换业务类型
func (h *UserHandler) UpdateServiceType(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	var req struct {
		ServiceType model.ServiceType `json:"service_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "service_type is required")
		return
	}

	if err := h.userSvc.UpdateServiceType(c.Request.Context(), userID, req.ServiceType); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"service_type": req.ServiceType})
}

// UpdateTimezone 修改时区
func (h *UserHandler) UpdateTimezone(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	var req struct {
		Timezone string `json:"timezone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "timezone is required")
		return
	}

	if err := h.userSvc.UpdateTimezone(c.Request.Context(), userID, req.Timezone); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"timezone": req.Timezone})
}
