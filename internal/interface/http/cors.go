package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Browser clients read the export filename, the archive key and the error
// code, so those headers are exposed cross-origin.
var (
	corsAllowHeaders  = strings.Join([]string{"Content-Type", "Accept"}, ", ")
	corsExposeHeaders = strings.Join([]string{"Content-Disposition", "X-Storage-Key", errorCodeHeader, "Retry-After"}, ", ")
)

const corsMaxAge = "600"

// corsMiddleware applies the API group's origin allow list. An empty list or a
// "*" entry allows any origin. Requests from other origins get no
// Access-Control-Allow-Origin header.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	anyOrigin := len(allowed) == 0
	origins := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
		if origin == "*" {
			anyOrigin = true
		}
		origins[origin] = true
	}

	return func(c *gin.Context) {
		headers := c.Writer.Header()
		origin := c.GetHeader("Origin")
		switch {
		case anyOrigin:
			headers.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && origins[strings.ToLower(origin)]:
			headers.Set("Access-Control-Allow-Origin", origin)
			headers.Add("Vary", "Origin")
		}
		headers.Set("Access-Control-Expose-Headers", corsExposeHeaders)

		if c.Request.Method == http.MethodOptions {
			headers.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			headers.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			headers.Set("Access-Control-Max-Age", corsMaxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
