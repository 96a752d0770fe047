package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub-api/internal/policy"
	"github.com/taskhub/taskhub-api/pkg/metrics"
)

// Authorize enforces a role table keyed by "METHOD /route", where route is the
// matched gin pattern with base stripped. It must run after Protect.
func Authorize(base string, rules map[string]policy.Roles) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := strings.TrimPrefix(c.FullPath(), base)
		required, ok := rules[c.Request.Method+" "+route]
		if !ok {
			c.Next()
			return
		}
		if err := policy.Authorize(CurrentUser(c), required); err != nil {
			metrics.AuthFailures.WithLabelValues("forbidden_role").Inc()
			fail(c, err)
			return
		}
		c.Next()
	}
}
