package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"rate-shield/internal/domain"
	"rate-shield/internal/limiter"
	"rate-shield/internal/metrics"
	"rate-shield/internal/middleware"
)

// Handlers contém os handlers da API
type Handlers struct {
	limiter   *limiter.RateLimiter
	ddos      *limiter.DDoSProtection
	rules     map[string]*domain.RateLimitRule
	logger    domain.Logger
	metrics   *metrics.Metrics
	startTime time.Time
}

// NewHandlers cria uma nova instância dos handlers
func NewHandlers(
	rl *limiter.RateLimiter,
	ddos *limiter.DDoSProtection,
	rules map[string]*domain.RateLimitRule,
	log domain.Logger,
	mtr *metrics.Metrics,
) *Handlers {
	return &Handlers{
		limiter:   rl,
		ddos:      ddos,
		rules:     rules,
		logger:    log,
		metrics:   mtr,
		startTime: time.Now(),
	}
}

// SetupRoutes configura as rotas da API
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	// Headers de segurança em toda resposta
	router.Use(middleware.NewSecurityHeadersMiddleware())

	rateLimiterMiddleware := middleware.NewRateLimiterMiddleware(h.limiter, h.ddos, h.rules, h.logger, h.metrics)

	// Rotas públicas (sem rate limiting)
	router.GET("/health", h.HealthHandler)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	// Rotas protegidas por rate limiting
	protected := router.Group("/")
	protected.Use(rateLimiterMiddleware)
	{
		protected.GET("/", h.ExampleHandler)
	}

	// Rotas administrativas (sem rate limiting)
	admin := router.Group("/admin")
	{
		admin.GET("/stats", h.AdminStatsHandler)
		admin.POST("/unblock", h.AdminUnblockHandler)
		admin.POST("/reset", h.AdminResetHandler)
	}
}

// HealthHandler implementa health check básico
func (h *Handlers) HealthHandler(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "Rate Shield API",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startTime).String(),
		"system": gin.H{
			"goroutines":      runtime.NumGoroutine(),
			"memory_alloc_mb": m.Alloc / 1024 / 1024,
		},
	})
}

// ExampleHandler implementa um endpoint de exemplo protegido
func (h *Handlers) ExampleHandler(c *gin.Context) {
	clientIP := middleware.GetClientIP(c)

	c.JSON(http.StatusOK, gin.H{
		"message":   "Hello from Rate Shield API!",
		"service":   "Rate Shield API",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"client_ip": clientIP,
		"path":      c.Request.URL.Path,
		"method":    c.Request.Method,
	})
}

// AdminStatsHandler expõe os snapshots de estatísticas para monitoramento
func (h *Handlers) AdminStatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"rate_limiter":    h.limiter.Stats(),
		"ddos_protection": h.ddos.AttackStats(),
	})
}

// unblockRequest representa o corpo da requisição de desbloqueio
type unblockRequest struct {
	IP string `json:"ip" binding:"required"`
}

// AdminUnblockHandler remove o bloqueio de um IP
func (h *Handlers) AdminUnblockHandler(c *gin.Context) {
	var req unblockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "field 'ip' is required",
		})
		return
	}

	h.limiter.Unblock(req.IP)

	h.logger.Info("Admin unblock executed", map[string]interface{}{
		"ip_address": req.IP,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "IP unblocked",
		"ip":      req.IP,
	})
}

// AdminResetHandler limpa o estado do rate limiter e do analisador de DDoS
func (h *Handlers) AdminResetHandler(c *gin.Context) {
	h.limiter.Reset()
	h.ddos.Reset()

	h.logger.Info("Admin reset executed", nil)

	c.JSON(http.StatusOK, gin.H{
		"message": "rate limiter and DDoS protection state cleared",
	})
}
