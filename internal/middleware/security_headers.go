package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders retorna o conjunto fixo de headers de segurança que a
// camada HTTP deve aplicar em toda resposta
func SecurityHeaders() map[string]string {
	return map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"X-XSS-Protection":          "1; mode=block",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Content-Security-Policy":   "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
		"Permissions-Policy":        "geolocation=(), microphone=(), camera=()",
	}
}

// NewSecurityHeadersMiddleware aplica os headers de segurança em toda resposta
func NewSecurityHeadersMiddleware() gin.HandlerFunc {
	headers := SecurityHeaders()

	return func(c *gin.Context) {
		for name, value := range headers {
			c.Header(name, value)
		}
		c.Next()
	}
}
