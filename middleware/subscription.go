package middleware

import (
	"context"

	"cleanclip/model"
	"cleanclip/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserEnsurer 首次请求时创建用户记录
type UserEnsurer interface {
	EnsureUser(ctx context.Context, userID uuid.UUID, email string) (*model.User, error)
}

// LoadUser 在 AuthMiddleware 之后执行，加载（必要时创建）当前用户
func LoadUser(users UserEnsurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			utils.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}

		user, err := users.EnsureUser(c.Request.Context(), userID, GetEmail(c))
		if err != nil {
			utils.Log.WithError(err).WithField("user_id", userID).Error("failed to load user")
			utils.InternalServerError(c, "failed to load user")
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

// GetUser 从上下文获取当前用户
func GetUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := value.(*model.User)
	return user, ok
}

// RequireSubscription 只有 active / trialing 订阅可以访问
func RequireSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok {
			utils.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		if !user.SubscriptionStatus.GrantsAccess() {
			utils.PaymentRequired(c, "active subscription required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin 管理员白名单
func RequireAdmin(adminIDs []uuid.UUID) gin.HandlerFunc {
	allowed := make(map[uuid.UUID]bool, len(adminIDs))
	for _, id := range adminIDs {
		allowed[id] = true
	}

	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok || !allowed[userID] {
			utils.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
