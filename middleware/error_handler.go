package middleware

import (
	"cleanclip/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandlerMiddleware 统一错误处理中间件
// 捕获 panic 和未处理的错误，返回统一格式的错误响应
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				utils.Log.WithFields(logrus.Fields{
					"panic":  err,
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
				}).Error("panic recovered")

				if !c.Writer.Written() {
					utils.InternalServerError(c, "internal server error")
				}
				c.Abort()
			}
		}()

		c.Next()

		// 检查是否有未处理的错误（通过 c.Errors）
		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			utils.Log.WithError(err.Err).WithField("path", c.Request.URL.Path).Error("request error")

			if !c.Writer.Written() {
				utils.InternalServerError(c, "internal server error")
			}
		}
	}
}
