package domain

import "time"

// Algorithm define os algoritmos de throttling disponíveis
type Algorithm string

const (
	TokenBucketAlgorithm   Algorithm = "token_bucket"
	SlidingWindowAlgorithm Algorithm = "sliding_window"
	FixedWindowAlgorithm   Algorithm = "fixed_window"
	LeakyBucketAlgorithm   Algorithm = "leaky_bucket"
)

// ThreatLevel classifica o risco de abuso de um cliente
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// Motivos retornados nas decisões de allow/deny
const (
	ReasonAllowed           = "Allowed"
	ReasonIPBlocked         = "IP blocked"
	ReasonWhitelisted       = "Whitelisted"
	ReasonBlacklisted       = "Blacklisted"
	ReasonRateLimitExceeded = "Rate limit exceeded"
	ReasonDDoSDetected      = "DDoS attack detected"
	ReasonPatternOK         = "Pattern analysis passed"
)

// RateLimitRule define a política de rate limiting aplicada a um cliente
type RateLimitRule struct {
	RequestsPerMinute int       `json:"requestsPerMinute"`
	RequestsPerHour   int       `json:"requestsPerHour"`
	RequestsPerDay    int       `json:"requestsPerDay"`
	BurstLimit        int       `json:"burstLimit"`
	Algorithm         Algorithm `json:"algorithm"`
	BlockDuration     int       `json:"blockDuration"` // em segundos
	Whitelist         []string  `json:"whitelist,omitempty"`
	Blacklist         []string  `json:"blacklist,omitempty"`
}

// DefaultRule retorna a regra padrão de rate limiting
func DefaultRule() *RateLimitRule {
	return &RateLimitRule{
		RequestsPerMinute: 60,
		RequestsPerHour:   1000,
		RequestsPerDay:    10000,
		BurstLimit:        10,
		Algorithm:         SlidingWindowAlgorithm,
		BlockDuration:     300, // 5 minutos
	}
}

// ClientInfo representa o registro de um cliente rastreado pelo rate limiter
type ClientInfo struct {
	IPAddress    string      `json:"ipAddress"`
	UserAgent    string      `json:"userAgent"`
	FirstSeen    time.Time   `json:"firstSeen"`
	LastRequest  time.Time   `json:"lastRequest"`
	RequestCount int64       `json:"requestCount"`
	BlockedUntil *time.Time  `json:"blockedUntil,omitempty"`
	ThreatLevel  ThreatLevel `json:"threatLevel"`
	Violations   int         `json:"violations"`
}

// CheckResult representa o resultado de uma verificação de rate limit
type CheckResult struct {
	Allowed bool                   `json:"allowed"`
	Reason  string                 `json:"reason"`
	Details map[string]interface{} `json:"details"`
}

// Stats representa o snapshot de estatísticas do rate limiter
type Stats struct {
	ActiveClients            int            `json:"activeClients"`
	BlockedIPs               int            `json:"blockedIps"`
	ThreatLevelDistribution  map[string]int `json:"threatLevelDistribution"`
	TotalRequests            int64          `json:"totalRequests"`
	AverageRequestsPerClient float64        `json:"averageRequestsPerClient"`
}

// PatternCount representa um par (ip:endpoint) e seu volume acumulado
type PatternCount struct {
	Pattern string `json:"pattern"`
	Count   int64  `json:"count"`
}

// AttackStats representa o snapshot de estatísticas do analisador de DDoS
type AttackStats struct {
	SuspiciousPatterns      int            `json:"suspiciousPatterns"`
	TotalSuspiciousRequests int64          `json:"totalSuspiciousRequests"`
	TopAttackers            []PatternCount `json:"topAttackers"`
}

// LimiterConfig agrega os parâmetros operacionais do rate limiter
type LimiterConfig struct {
	DefaultRule  *RateLimitRule
	MaxClients   int
	ClientTTL    time.Duration
	ReapInterval time.Duration
}
