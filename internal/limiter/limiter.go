package limiter

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"rate-shield/internal/domain"
	"rate-shield/internal/throttle"

	gocache "github.com/patrickmn/go-cache"
)

// clientState agrega o registro do cliente e seu estado de throttling
// Remover o cliente remove junto os primitivos associados
type clientState struct {
	info     *domain.ClientInfo
	strategy domain.ThrottleStrategy
	hourly   *throttle.FixedWindow
	daily    *throttle.FixedWindow
}

// RateLimiter orquestra as decisões de allow/deny: resolve a identidade
// do cliente, aplica a política configurada, escala violações para
// bloqueio de IP e expõe estatísticas agregadas
type RateLimiter struct {
	defaultRule  *domain.RateLimitRule
	maxClients   int
	clientTTL    time.Duration
	reapInterval time.Duration

	clients map[string]*clientState
	blocked *gocache.Cache // ip -> desbloqueio (time.Time), com TTL por entrada
	mutex   sync.Mutex

	logger domain.Logger
	now    func() time.Time
}

// New cria uma nova instância do RateLimiter
// A instância deve ser construída uma única vez na inicialização do
// serviço e injetada no middleware; não há singletons de pacote
func New(cfg *domain.LimiterConfig, log domain.Logger) *RateLimiter {
	rule := cfg.DefaultRule
	if rule == nil {
		rule = domain.DefaultRule()
	}

	maxClients := cfg.MaxClients
	if maxClients <= 0 {
		maxClients = 10000
	}
	clientTTL := cfg.ClientTTL
	if clientTTL <= 0 {
		clientTTL = 24 * time.Hour
	}
	reapInterval := cfg.ReapInterval
	if reapInterval <= 0 {
		reapInterval = 5 * time.Minute
	}

	return &RateLimiter{
		defaultRule:  rule,
		maxClients:   maxClients,
		clientTTL:    clientTTL,
		reapInterval: reapInterval,
		clients:      make(map[string]*clientState),
		blocked:      gocache.New(gocache.NoExpiration, reapInterval),
		logger:       log,
		now:          time.Now,
	}
}

// ClientKey gera a identidade derivada do cliente (hash de ip:user_agent)
// Nota: trocar o User-Agent reinicia o histórico de throttling do cliente;
// o bloqueio de IP cobre essa brecha por ser escopado apenas pelo IP
func ClientKey(ip, userAgent string) string {
	if userAgent == "" {
		userAgent = "unknown"
	}
	sum := md5.Sum([]byte(ip + ":" + userAgent))
	return hex.EncodeToString(sum[:])
}

// Check verifica se uma requisição deve ser permitida
// Negação é um resultado esperado, não um erro: o retorno é sempre um
// CheckResult estruturado com motivo e detalhes de diagnóstico
func (r *RateLimiter) Check(ip, userAgent string, rule *domain.RateLimitRule) *domain.CheckResult {
	if rule == nil {
		rule = r.defaultRule
	}
	clientKey := ClientKey(ip, userAgent)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Bloqueio vigente: a expiração é preguiçosa, o cache não devolve
	// entradas vencidas
	if v, found := r.blocked.Get(ip); found {
		blockedUntil := v.(time.Time)
		return &domain.CheckResult{
			Allowed: false,
			Reason:  domain.ReasonIPBlocked,
			Details: map[string]interface{}{
				"blocked_until": blockedUntil.Format(time.RFC3339),
			},
		}
	}

	// Whitelist libera incondicionalmente, inclusive do throttling
	if containsIP(rule.Whitelist, ip) {
		return &domain.CheckResult{
			Allowed: true,
			Reason:  domain.ReasonWhitelisted,
			Details: map[string]interface{}{},
		}
	}

	// Blacklist bloqueia no primeiro contato
	if containsIP(rule.Blacklist, ip) {
		r.blockIP(ip, "Blacklisted", rule)
		return &domain.CheckResult{
			Allowed: false,
			Reason:  domain.ReasonBlacklisted,
			Details: map[string]interface{}{},
		}
	}

	state := r.touchClient(ip, userAgent, clientKey, rule)

	allowed := true
	window := "minute"
	if state.strategy != nil {
		allowed = state.strategy.Allow()
	}

	// Tetos secundários por hora e por dia
	if allowed && state.hourly != nil && !state.hourly.Allow() {
		allowed = false
		window = "hour"
	}
	if allowed && state.daily != nil && !state.daily.Allow() {
		allowed = false
		window = "day"
	}

	if !allowed {
		state.info.Violations++
		state.info.ThreatLevel = r.assessThreatLevel(state.info)

		if state.info.ThreatLevel == domain.ThreatHigh || state.info.ThreatLevel == domain.ThreatCritical {
			r.blockIP(ip, fmt.Sprintf("High threat level: %s", state.info.ThreatLevel), rule)
			r.logger.SecurityEvent("rate_limit_exceeded", map[string]interface{}{
				"ip_address":   ip,
				"threat_level": string(state.info.ThreatLevel),
				"violations":   state.info.Violations,
			})
		}

		return &domain.CheckResult{
			Allowed: false,
			Reason:  domain.ReasonRateLimitExceeded,
			Details: map[string]interface{}{
				"threat_level": string(state.info.ThreatLevel),
				"violations":   state.info.Violations,
				"window":       window,
			},
		}
	}

	return &domain.CheckResult{
		Allowed: true,
		Reason:  domain.ReasonAllowed,
		Details: map[string]interface{}{},
	}
}

// touchClient atualiza ou cria o registro do cliente e seu estado de throttling
// Deve ser chamado com o mutex adquirido
func (r *RateLimiter) touchClient(ip, userAgent, clientKey string, rule *domain.RateLimitRule) *clientState {
	now := r.now()

	state, exists := r.clients[clientKey]
	if !exists {
		// Teto de registros: ao atingir o limite, o cliente mais
		// antigo por last_request é descartado junto com seu estado
		if len(r.clients) >= r.maxClients {
			r.evictOldest()
		}

		state = &clientState{
			info: &domain.ClientInfo{
				IPAddress:   ip,
				UserAgent:   userAgent,
				FirstSeen:   now,
				LastRequest: now,
				ThreatLevel: domain.ThreatLow,
			},
		}

		strategy, err := throttle.NewStrategy(rule)
		if err != nil {
			// Fail-open deliberado: o rate limiter não pode virar
			// vetor de indisponibilidade por configuração inválida
			r.logger.Warn("Unknown rate limit algorithm, failing open", map[string]interface{}{
				"algorithm": string(rule.Algorithm),
				"ip":        ip,
			})
		} else {
			state.strategy = strategy
		}

		if rule.RequestsPerHour > 0 {
			state.hourly = throttle.NewFixedWindow(time.Hour, rule.RequestsPerHour)
		}
		if rule.RequestsPerDay > 0 {
			state.daily = throttle.NewFixedWindow(24*time.Hour, rule.RequestsPerDay)
		}

		r.clients[clientKey] = state
	}

	state.info.LastRequest = now
	state.info.RequestCount++
	return state
}

// evictOldest remove o cliente com o last_request mais antigo
// Deve ser chamado com o mutex adquirido
func (r *RateLimiter) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, state := range r.clients {
		if oldestKey == "" || state.info.LastRequest.Before(oldest) {
			oldestKey = key
			oldest = state.info.LastRequest
		}
	}
	if oldestKey != "" {
		delete(r.clients, oldestKey)
	}
}

// assessThreatLevel classifica o risco do cliente a partir da taxa
// aproximada de requisições e do histórico de violações
// Heurística de melhor esforço, não um classificador rigoroso
func (r *RateLimiter) assessThreatLevel(client *domain.ClientInfo) domain.ThreatLevel {
	elapsed := r.now().Sub(client.FirstSeen).Seconds()

	var requestsPerMinute float64
	if elapsed > 0 {
		requestsPerMinute = float64(client.RequestCount) * 60 / elapsed
	}

	switch {
	case requestsPerMinute > 1000 || client.Violations > 10:
		return domain.ThreatCritical
	case requestsPerMinute > 500 || client.Violations > 5:
		return domain.ThreatHigh
	case requestsPerMinute > 200 || client.Violations > 2:
		return domain.ThreatMedium
	default:
		return domain.ThreatLow
	}
}

// blockIP registra o bloqueio temporário de um IP
// O bloqueio é escopado por IP, não pela chave de cliente: um IP
// bloqueado fica bloqueado para todos os user-agents que o compartilham
func (r *RateLimiter) blockIP(ip, reason string, rule *domain.RateLimitRule) {
	duration := time.Duration(rule.BlockDuration) * time.Second
	blockedUntil := r.now().Add(duration)
	r.blocked.Set(ip, blockedUntil, duration)

	r.logger.SecurityEvent("ip_blocked", map[string]interface{}{
		"ip_address":    ip,
		"reason":        reason,
		"blocked_until": blockedUntil.Format(time.RFC3339),
	})
}

// Unblock remove o bloqueio de um IP
func (r *RateLimiter) Unblock(ip string) {
	r.blocked.Delete(ip)
	r.logger.Info("IP unblocked", map[string]interface{}{"ip_address": ip})
}

// Reset limpa todo o estado do rate limiter
func (r *RateLimiter) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.clients = make(map[string]*clientState)
	r.blocked.Flush()
	r.logger.Info("Rate limiter state reset", nil)
}

// Stats retorna o snapshot de estatísticas do rate limiter
func (r *RateLimiter) Stats() *domain.Stats {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	distribution := make(map[string]int)
	var totalRequests int64
	for _, state := range r.clients {
		distribution[string(state.info.ThreatLevel)]++
		totalRequests += state.info.RequestCount
	}

	activeClients := len(r.clients)
	divisor := activeClients
	if divisor == 0 {
		divisor = 1
	}

	return &domain.Stats{
		ActiveClients:            activeClients,
		BlockedIPs:               len(r.blocked.Items()),
		ThreatLevelDistribution:  distribution,
		TotalRequests:            totalRequests,
		AverageRequestsPerClient: float64(totalRequests) / float64(divisor),
	}
}

// StartReaper inicia a varredura periódica em background
// A goroutine encerra quando o contexto é cancelado
func (r *RateLimiter) StartReaper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.reapInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.reap()
			}
		}
	}()
}

// reap remove clientes inativos e bloqueios expirados
// Uma varredura com falha não pode interromper as próximas
func (r *RateLimiter) reap() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Rate limiter reaper sweep failed", fmt.Errorf("%v", rec), nil)
		}
	}()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	removed := 0
	for key, state := range r.clients {
		if now.Sub(state.info.LastRequest) > r.clientTTL {
			delete(r.clients, key)
			removed++
		}
	}

	r.blocked.DeleteExpired()

	r.logger.Debug("Rate limiter cleanup completed", map[string]interface{}{
		"removed_clients": removed,
		"active_clients":  len(r.clients),
	})
}

// containsIP verifica se o IP consta na lista
func containsIP(list []string, ip string) bool {
	for _, item := range list {
		if item == ip {
			return true
		}
	}
	return false
}
