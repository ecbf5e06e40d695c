package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"rate-shield/internal/domain"

	"github.com/joho/godotenv"
)

// Config representa todas as configurações da aplicação
type Config struct {
	// Server Configuration
	ServerPort string
	GinMode    string

	// Logging Configuration
	LogLevel  string
	LogFormat string

	// Rate Limiting Configuration
	RequestsPerMinute int
	RequestsPerHour   int
	RequestsPerDay    int
	BurstLimit        int
	Algorithm         string
	BlockDuration     int // em segundos
	Whitelist         []string
	Blacklist         []string

	// DDoS Protection Configuration
	DDoSThreshold int

	// Registry bounds
	MaxClients   int
	ClientTTL    int // em segundos
	ReapInterval int // em segundos

	// Endpoint Rules File
	RulesConfigFile string
}

// RulesFile representa a estrutura do arquivo rules.json
type RulesFile struct {
	Endpoints map[string]*domain.RateLimitRule `json:"endpoints"`
}

// Loader implementa a interface domain.ConfigLoader
type Loader struct {
	config        *Config
	endpointRules map[string]*domain.RateLimitRule
}

// NewLoader cria uma nova instância do Loader
func NewLoader() *Loader {
	return &Loader{
		endpointRules: make(map[string]*domain.RateLimitRule),
	}
}

// LoadConfig carrega as configurações do .env e monta o LimiterConfig
func (c *Loader) LoadConfig() (*domain.LimiterConfig, error) {
	// Carrega o arquivo .env se existir
	if err := godotenv.Load(); err != nil {
		// Se não encontrar .env, continua com variáveis do sistema
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	config, err := c.loadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	c.config = config

	if _, err := c.LoadEndpointRules(); err != nil {
		return nil, fmt.Errorf("failed to load endpoint rules: %w", err)
	}

	return &domain.LimiterConfig{
		DefaultRule:  c.DefaultRule(),
		MaxClients:   config.MaxClients,
		ClientTTL:    time.Duration(config.ClientTTL) * time.Second,
		ReapInterval: time.Duration(config.ReapInterval) * time.Second,
	}, nil
}

// DefaultRule monta a regra padrão a partir da configuração carregada
func (c *Loader) DefaultRule() *domain.RateLimitRule {
	if c.config == nil {
		return domain.DefaultRule()
	}

	return &domain.RateLimitRule{
		RequestsPerMinute: c.config.RequestsPerMinute,
		RequestsPerHour:   c.config.RequestsPerHour,
		RequestsPerDay:    c.config.RequestsPerDay,
		BurstLimit:        c.config.BurstLimit,
		Algorithm:         domain.Algorithm(c.config.Algorithm),
		BlockDuration:     c.config.BlockDuration,
		Whitelist:         c.config.Whitelist,
		Blacklist:         c.config.Blacklist,
	}
}

// LoadEndpointRules carrega as regras por endpoint do arquivo JSON
func (c *Loader) LoadEndpointRules() (map[string]*domain.RateLimitRule, error) {
	rulesFile := c.getRulesConfigFile()

	// Arquivo de regras é opcional
	if _, err := os.Stat(rulesFile); os.IsNotExist(err) {
		fmt.Printf("Warning: Rules config file %s not found, using only environment defaults\n", rulesFile)
		return make(map[string]*domain.RateLimitRule), nil
	}

	data, err := os.ReadFile(rulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules config file: %w", err)
	}

	var rules RulesFile
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules config file: %w", err)
	}

	defaults := c.DefaultRule()
	for endpoint, rule := range rules.Endpoints {
		if rule == nil {
			return nil, fmt.Errorf("invalid rule for endpoint %s: rule cannot be empty", endpoint)
		}
		// Campos omitidos herdam da regra padrão
		applyRuleDefaults(rule, defaults)
		if rule.RequestsPerMinute <= 0 {
			return nil, fmt.Errorf("invalid rule for endpoint %s: requestsPerMinute must be greater than 0", endpoint)
		}
	}

	if rules.Endpoints == nil {
		rules.Endpoints = make(map[string]*domain.RateLimitRule)
	}
	c.endpointRules = rules.Endpoints
	return rules.Endpoints, nil
}

// Reload recarrega todas as configurações
func (c *Loader) Reload() error {
	_, err := c.LoadConfig()
	return err
}

// GetConfig retorna a configuração atual
func (c *Loader) GetConfig() *Config {
	return c.config
}

// GetEndpointRule retorna a regra configurada para um endpoint específico
func (c *Loader) GetEndpointRule(endpoint string) (*domain.RateLimitRule, bool) {
	rule, exists := c.endpointRules[endpoint]
	return rule, exists
}

// applyRuleDefaults preenche campos omitidos com os valores da regra padrão
func applyRuleDefaults(rule, defaults *domain.RateLimitRule) {
	if rule.RequestsPerMinute == 0 {
		rule.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if rule.RequestsPerHour == 0 {
		rule.RequestsPerHour = defaults.RequestsPerHour
	}
	if rule.RequestsPerDay == 0 {
		rule.RequestsPerDay = defaults.RequestsPerDay
	}
	if rule.BurstLimit == 0 {
		rule.BurstLimit = defaults.BurstLimit
	}
	if rule.Algorithm == "" {
		rule.Algorithm = defaults.Algorithm
	}
	if rule.BlockDuration == 0 {
		rule.BlockDuration = defaults.BlockDuration
	}
}

// loadFromEnv carrega configurações das variáveis de ambiente
func (c *Loader) loadFromEnv() (*Config, error) {
	config := &Config{
		// Server defaults
		ServerPort: getEnvWithDefault("SERVER_PORT", "8080"),
		GinMode:    getEnvWithDefault("GIN_MODE", "debug"),

		// Logging defaults
		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "json"),

		// Rate limiting defaults
		Algorithm: getEnvWithDefault("RATE_ALGORITHM", "sliding_window"),
		Whitelist: splitList(getEnvWithDefault("RATE_WHITELIST", "")),
		Blacklist: splitList(getEnvWithDefault("RATE_BLACKLIST", "")),

		// Rules config file
		RulesConfigFile: getEnvWithDefault("RULES_CONFIG_FILE", "internal/config/rules.json"),
	}

	intVars := []struct {
		name string
		def  string
		dst  *int
	}{
		{"REQUESTS_PER_MINUTE", "60", &config.RequestsPerMinute},
		{"REQUESTS_PER_HOUR", "1000", &config.RequestsPerHour},
		{"REQUESTS_PER_DAY", "10000", &config.RequestsPerDay},
		{"BURST_LIMIT", "10", &config.BurstLimit},
		{"BLOCK_DURATION", "300", &config.BlockDuration},
		{"DDOS_THRESHOLD", "100", &config.DDoSThreshold},
		{"MAX_CLIENTS", "10000", &config.MaxClients},
		{"CLIENT_TTL", "86400", &config.ClientTTL},
		{"REAP_INTERVAL", "300", &config.ReapInterval},
	}
	for _, v := range intVars {
		parsed, err := strconv.Atoi(getEnvWithDefault(v.name, v.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s value: %w", v.name, err)
		}
		*v.dst = parsed
	}

	if err := c.validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateConfig valida se as configurações são válidas
func (c *Loader) validateConfig(config *Config) error {
	if config.RequestsPerMinute <= 0 {
		return fmt.Errorf("REQUESTS_PER_MINUTE must be greater than 0")
	}

	if config.BurstLimit <= 0 {
		return fmt.Errorf("BURST_LIMIT must be greater than 0")
	}

	if config.BlockDuration <= 0 {
		return fmt.Errorf("BLOCK_DURATION must be greater than 0")
	}

	if config.DDoSThreshold <= 0 {
		return fmt.Errorf("DDOS_THRESHOLD must be greater than 0")
	}

	if config.MaxClients <= 0 {
		return fmt.Errorf("MAX_CLIENTS must be greater than 0")
	}

	switch domain.Algorithm(config.Algorithm) {
	case domain.TokenBucketAlgorithm, domain.SlidingWindowAlgorithm,
		domain.FixedWindowAlgorithm, domain.LeakyBucketAlgorithm:
	default:
		return fmt.Errorf("RATE_ALGORITHM must be one of token_bucket, sliding_window, fixed_window, leaky_bucket")
	}

	return nil
}

// getRulesConfigFile retorna o caminho do arquivo de regras por endpoint
func (c *Loader) getRulesConfigFile() string {
	if c.config != nil && c.config.RulesConfigFile != "" {
		return c.config.RulesConfigFile
	}
	return getEnvWithDefault("RULES_CONFIG_FILE", "internal/config/rules.json")
}

// splitList converte uma lista separada por vírgulas em slice
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// getEnvWithDefault retorna o valor da variável de ambiente ou um valor padrão
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
