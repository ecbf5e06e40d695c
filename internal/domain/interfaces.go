package domain

import "context"

// ThrottleStrategy define a interface comum dos primitivos de throttling
// Implementa o Strategy Pattern: cada algoritmo responde se mais uma
// unidade de trabalho pode prosseguir agora
type ThrottleStrategy interface {
	// Allow verifica se a requisição é permitida e registra o consumo
	Allow() bool
}

// Logger define a interface para logging estruturado
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
	WithContext(ctx context.Context) Logger

	// SecurityEvent registra eventos de segurança nomeados
	// ("rate_limit_exceeded", "ip_blocked", "ddos_attack_detected")
	SecurityEvent(event string, fields map[string]interface{})
}

// ConfigLoader define a interface para carregamento de configurações
type ConfigLoader interface {
	LoadConfig() (*LimiterConfig, error)
	LoadEndpointRules() (map[string]*RateLimitRule, error)
	Reload() error
}
