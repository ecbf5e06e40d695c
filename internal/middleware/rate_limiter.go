package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rate-shield/internal/domain"
	"rate-shield/internal/limiter"
	"rate-shield/internal/logger"
	"rate-shield/internal/metrics"
)

// RateLimiterMiddleware implementa o middleware de proteção de requisições
// Combina o rate limiter primário e o analisador de padrões de DDoS:
// as decisões são combinadas por OU, qualquer negação bloqueia
type RateLimiterMiddleware struct {
	limiter *limiter.RateLimiter
	ddos    *limiter.DDoSProtection
	rules   map[string]*domain.RateLimitRule
	logger  domain.Logger
	metrics *metrics.Metrics
}

// NewRateLimiterMiddleware cria uma nova instância do middleware
func NewRateLimiterMiddleware(
	rl *limiter.RateLimiter,
	ddos *limiter.DDoSProtection,
	rules map[string]*domain.RateLimitRule,
	log domain.Logger,
	mtr *metrics.Metrics,
) gin.HandlerFunc {
	middleware := &RateLimiterMiddleware{
		limiter: rl,
		ddos:    ddos,
		rules:   rules,
		logger:  log,
		metrics: mtr,
	}

	return middleware.Handle
}

// Handle é o handler principal do middleware
func (m *RateLimiterMiddleware) Handle(c *gin.Context) {
	requestID := m.getRequestID(c)

	clientIP := m.extractClientIP(c)
	userAgent := c.GetHeader("User-Agent")
	endpoint := c.Request.URL.Path

	ctx := logger.ContextWithRequestInfo(c.Request.Context(), requestID, clientIP, userAgent, endpoint)
	log := m.logger.WithContext(ctx)

	log.Debug("Rate limiter middleware initiated", map[string]interface{}{
		"method": c.Request.Method,
	})

	rule := m.rules[endpoint]
	result := m.limiter.Check(clientIP, userAgent, rule)
	if m.metrics != nil {
		m.metrics.ObserveCheck(result)
	}

	// Análise de padrões é independente do limiter primário e roda
	// mesmo para clientes permitidos (inclusive whitelist)
	patternOK, patternReason := m.ddos.AnalyzeRequestPattern(clientIP, userAgent, endpoint)
	if !patternOK {
		if m.metrics != nil {
			m.metrics.ObserveDDoSDetection()
		}
		result = &domain.CheckResult{
			Allowed: false,
			Reason:  patternReason,
			Details: map[string]interface{}{"endpoint": endpoint},
		}
	}

	m.setRateLimitHeaders(c, rule, result)

	if !result.Allowed {
		log.Info("Request denied", map[string]interface{}{
			"reason":  result.Reason,
			"details": result.Details,
		})

		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate_limit_exceeded",
			"message": "you have reached the maximum number of requests or actions allowed within a certain time frame",
			"reason":  result.Reason,
			"details": result.Details,
		})
		c.Abort()
		return
	}

	log.Debug("Request allowed", map[string]interface{}{
		"reason": result.Reason,
	})

	c.Next()
}

// extractClientIP extrai o IP do cliente considerando proxies e load balancers
func (m *RateLimiterMiddleware) extractClientIP(c *gin.Context) string {
	// Prioridade: X-Forwarded-For > X-Real-IP > RemoteAddr

	// X-Forwarded-For pode conter múltiplos IPs separados por vírgula;
	// o primeiro é o IP original do cliente
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			clientIP := strings.TrimSpace(ips[0])
			if clientIP != "" {
				return clientIP
			}
		}
	}

	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fallback para RemoteAddr (remove porta se presente)
	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}

	return c.Request.RemoteAddr
}

// setRateLimitHeaders define headers informativos de rate limiting
func (m *RateLimiterMiddleware) setRateLimitHeaders(c *gin.Context, rule *domain.RateLimitRule, result *domain.CheckResult) {
	if rule == nil {
		rule = domain.DefaultRule()
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(rule.RequestsPerMinute))
	c.Header("X-RateLimit-Algorithm", string(rule.Algorithm))

	// Retry-After quando houver bloqueio vigente
	if !result.Allowed {
		if raw, ok := result.Details["blocked_until"].(string); ok {
			if blockedUntil, err := time.Parse(time.RFC3339, raw); err == nil {
				retryAfter := int(time.Until(blockedUntil).Seconds())
				if retryAfter > 0 {
					c.Header("Retry-After", strconv.Itoa(retryAfter))
				}
			}
		}
	}
}

// getRequestID obtém ou gera um Request ID para tracking
func (m *RateLimiterMiddleware) getRequestID(c *gin.Context) string {
	if requestID := c.GetHeader("X-Request-ID"); requestID != "" {
		return requestID
	}

	requestID := uuid.New().String()
	c.Header("X-Request-ID", requestID)
	return requestID
}

// GetClientIP é uma função utilitária exportada para uso externo
func GetClientIP(c *gin.Context) string {
	middleware := &RateLimiterMiddleware{}
	return middleware.extractClientIP(c)
}
