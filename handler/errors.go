package handler

import (
	"errors"
	"net/http"

	"cleanclip/service"
	"cleanclip/utils"

	"github.com/gin-gonic/gin"
)

// respondError 将服务层错误映射为统一响应
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoTemplates):
		utils.NotFound(c, "no content is set up for your service type yet")
	case errors.Is(err, service.ErrInvalidState):
		utils.Conflict(c, "complete onboarding first")
	case errors.Is(err, service.ErrTemplateInUse):
		utils.Conflict(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrTemplateNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidServiceType),
		errors.Is(err, service.ErrInvalidTimezone),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrNoSubscription),
		errors.Is(err, service.ErrNoBillingAccount),
		errors.Is(err, service.ErrNotEligibleForRefund),
		errors.Is(err, service.ErrNoCharges):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrBillingDisabled):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, err.Error())
	default:
		utils.Log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		utils.InternalServerError(c, "internal server error")
	}
}
