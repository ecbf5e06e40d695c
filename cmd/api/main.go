package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"rate-shield/internal/config"
	"rate-shield/internal/handler"
	"rate-shield/internal/limiter"
	"rate-shield/internal/logger"
	"rate-shield/internal/metrics"
)

func main() {
	// Carregar configurações
	configLoader := config.NewLoader()
	limiterConfig, err := configLoader.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	serverConfig := configLoader.GetConfig()

	// Inicializar logger
	appLogger := logger.NewLogger(serverConfig.LogLevel, serverConfig.LogFormat)
	appLogger.Info("Starting Rate Shield API", map[string]interface{}{
		"version":   "1.0.0",
		"log_level": serverConfig.LogLevel,
		"port":      serverConfig.ServerPort,
		"algorithm": serverConfig.Algorithm,
	})

	// Inicializar rate limiter e proteção DDoS
	// Instâncias únicas por processo, construídas aqui e injetadas adiante
	rateLimiter := limiter.New(limiterConfig, appLogger)
	ddosProtection := limiter.NewDDoSProtection(serverConfig.DDoSThreshold, appLogger)

	// Varreduras em background; param junto com o processo
	reaperCtx, stopReapers := context.WithCancel(context.Background())
	defer stopReapers()
	rateLimiter.StartReaper(reaperCtx)
	ddosProtection.StartSweeper(reaperCtx)

	// Regras por endpoint
	endpointRules, err := configLoader.LoadEndpointRules()
	if err != nil {
		log.Fatalf("Failed to load endpoint rules: %v", err)
	}

	// Métricas
	appMetrics := metrics.New()
	appMetrics.RegisterStatsGauges(rateLimiter.Stats, ddosProtection.AttackStats)

	// Inicializar handlers
	handlers := handler.NewHandlers(rateLimiter, ddosProtection, endpointRules, appLogger, appMetrics)

	// Configurar Gin
	if serverConfig.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Middleware de logging customizado
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))

	handlers.SetupRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", serverConfig.ServerPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Iniciar servidor em goroutine
	go func() {
		appLogger.Info("Starting HTTP server", map[string]interface{}{
			"port": serverConfig.ServerPort,
			"addr": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", err, nil)
			os.Exit(1)
		}
	}()

	// Aguardar sinais de interrupção
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	appLogger.Info("Rate Shield API is running", map[string]interface{}{
		"port": serverConfig.ServerPort,
		"endpoints": []string{
			"GET  /health",
			"GET  /metrics",
			"GET  /              (rate limited)",
			"GET  /admin/stats",
			"POST /admin/unblock",
			"POST /admin/reset",
		},
		"rate_limits": map[string]interface{}{
			"requests_per_minute": serverConfig.RequestsPerMinute,
			"requests_per_hour":   serverConfig.RequestsPerHour,
			"requests_per_day":    serverConfig.RequestsPerDay,
			"burst_limit":         serverConfig.BurstLimit,
			"block_duration":      serverConfig.BlockDuration,
			"ddos_threshold":      serverConfig.DDoSThreshold,
		},
	})

	<-quit
	appLogger.Info("Shutting down server...", nil)

	// Graceful shutdown
	stopReapers()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", err, nil)
		os.Exit(1)
	}

	appLogger.Info("Server stopped gracefully", nil)
}
