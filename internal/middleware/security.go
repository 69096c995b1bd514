package middleware

import "github.com/gin-gonic/gin"

// apiContentSecurityPolicy forbids every resource type; the server only emits JSON and
// CV downloads, neither of which should execute in a browser context.
const apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'; sandbox"

var securityHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Content-Security-Policy", apiContentSecurityPolicy},
	{"Referrer-Policy", "no-referrer"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Cache-Control", "no-store"},
}

// SecurityHeaders sets hardening headers on every response. Responses carry tenant data
// and are never cacheable.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range securityHeaders {
			h.Set(kv[0], kv[1])
		}
		c.Next()
	}
}
