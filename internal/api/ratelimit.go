package api

import (
	"fmt"
	"net/http"
	"strconv"

	"order-assistant/config"
	"order-assistant/internal/apperr"

	"github.com/gin-gonic/gin"
)

// rateLimit counts the request against the tool's budget for the calling
// session, or the client address when the route has no session
func (h *Handler) rateLimit(tool string, limit config.Limit) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter == nil || limit.Max <= 0 {
			c.Next()
			return
		}

		caller := c.Param("sessionID")
		if caller == "" {
			caller = c.ClientIP()
		}
		identifier := fmt.Sprintf("%s:%s:%s", tool, c.Param("tenantID"), caller)

		res := h.limiter.Check(c.Request.Context(), identifier, limit.Window, limit.Max)

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetTime.Unix(), 10))

		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(res.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": apperr.New(apperr.CodeRateLimited,
					"too many requests, please wait %d seconds before trying again", res.RetryAfter),
				"retry_after": res.RetryAfter,
			})
			return
		}

		c.Next()
	}
}
