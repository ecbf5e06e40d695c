package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rate-shield/internal/domain"
	"rate-shield/internal/limiter"
	"rate-shield/internal/metrics"
)

// nopLogger é um logger vazio para os testes de handler
type nopLogger struct{}

func (nopLogger) Debug(msg string, fields map[string]interface{})            {}
func (nopLogger) Info(msg string, fields map[string]interface{})             {}
func (nopLogger) Warn(msg string, fields map[string]interface{})             {}
func (nopLogger) Error(msg string, err error, fields map[string]interface{}) {}
func (nopLogger) SecurityEvent(event string, fields map[string]interface{})  {}
func (nopLogger) WithContext(ctx context.Context) domain.Logger              { return nopLogger{} }

// testAPI agrupa as dependências montadas para os testes de rota
type testAPI struct {
	router  *gin.Engine
	limiter *limiter.RateLimiter
	metrics *metrics.Metrics
}

// newTestAPI monta o router completo com todas as rotas
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := nopLogger{}
	rl := limiter.New(&domain.LimiterConfig{DefaultRule: domain.DefaultRule()}, log)
	ddos := limiter.NewDDoSProtection(0, log)
	mtr := metrics.New()

	h := NewHandlers(rl, ddos, nil, log, mtr)
	router := gin.New()
	h.SetupRoutes(router)

	return &testAPI{router: router, limiter: rl, metrics: mtr}
}

// do executa uma requisição contra o router de teste
func (a *testAPI) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	req.Header.Set("User-Agent", "handler-test")

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// TestHealthHandler testa o endpoint de health check
func TestHealthHandler(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "Rate Shield API", body["service"])
	assert.Contains(t, body, "uptime")
	assert.Contains(t, body, "system")

	// Headers de segurança aplicados também em rotas públicas
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

// TestExampleHandler testa o endpoint protegido por rate limiting
func TestExampleHandler(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "198.51.100.7", body["client_ip"])
	assert.Equal(t, "/", body["path"])
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
}

// TestMetricsEndpoint testa a exposição das métricas Prometheus
func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)

	// Gera tráfego para popular os contadores
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/", "").Code)

	w := api.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	output := w.Body.String()
	assert.Contains(t, output, `rate_shield_checks_total{reason="Allowed"} 1`)
	assert.Contains(t, output, "go_goroutines")
}

// TestAdminStatsHandler testa o endpoint de estatísticas administrativas
func TestAdminStatsHandler(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/", "").Code)

	w := api.do(http.MethodGet, "/admin/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "timestamp")

	rateLimiter, ok := body["rate_limiter"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), rateLimiter["activeClients"])

	_, ok = body["ddos_protection"].(map[string]interface{})
	require.True(t, ok)
}

// TestAdminUnblockHandler testa o desbloqueio administrativo de IPs
func TestAdminUnblockHandler(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/admin/unblock", `{"ip": "203.0.113.50"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "IP unblocked", body["message"])
	assert.Equal(t, "203.0.113.50", body["ip"])
}

// TestAdminUnblockHandler_MissingIP testa a validação do corpo da requisição
func TestAdminUnblockHandler_MissingIP(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body string
	}{
		{"corpo vazio", `{}`},
		{"ip vazio", `{"ip": ""}`},
		{"json inválido", `{ip}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodPost, "/admin/unblock", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "invalid_request", body["error"])
		})
	}
}

// TestAdminResetHandler testa a limpeza administrativa do estado
func TestAdminResetHandler(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/", "").Code)
	require.Equal(t, 1, api.limiter.Stats().ActiveClients)

	w := api.do(http.MethodPost, "/admin/reset", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 0, api.limiter.Stats().ActiveClients)
}
