package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sf10-api/internal/service"
)

// Audit stamps the request path and method into the request context so that
// services can emit audit entries shaped like the incoming request.
func Audit() gin.HandlerFunc {
	return func(c *gin.Context) {
		info := service.RequestInfo{
			Path:   c.Request.URL.Path,
			Method: c.Request.Method,
		}
		c.Request = c.Request.WithContext(service.WithRequestInfo(c.Request.Context(), info))
		c.Next()
	}
}
