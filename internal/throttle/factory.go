package throttle

import (
	"fmt"
	"time"

	"rate-shield/internal/domain"
)

// NewStrategy cria o primitivo de throttling adequado para a regra
// seguindo o Strategy Pattern: a seleção acontece aqui, não espalhada
// em comparações de enum pelo código
func NewStrategy(rule *domain.RateLimitRule) (domain.ThrottleStrategy, error) {
	if rule == nil {
		return nil, fmt.Errorf("rate limit rule cannot be nil")
	}

	switch rule.Algorithm {
	case domain.TokenBucketAlgorithm:
		return NewTokenBucket(rule.BurstLimit, float64(rule.RequestsPerMinute)/60.0), nil
	case domain.SlidingWindowAlgorithm:
		return NewSlidingWindow(time.Minute, rule.RequestsPerMinute), nil
	case domain.FixedWindowAlgorithm:
		return NewFixedWindow(time.Minute, rule.RequestsPerMinute), nil
	case domain.LeakyBucketAlgorithm:
		return NewLeakyBucket(rule.BurstLimit, float64(rule.RequestsPerMinute)/60.0), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit algorithm: %s", rule.Algorithm)
	}
}

// SupportedAlgorithms retorna os algoritmos suportados pela factory
func SupportedAlgorithms() []domain.Algorithm {
	return []domain.Algorithm{
		domain.TokenBucketAlgorithm,
		domain.SlidingWindowAlgorithm,
		domain.FixedWindowAlgorithm,
		domain.LeakyBucketAlgorithm,
	}
}
