package throttle

import (
	"math"
	"sync"
	"time"
)

// TokenBucket implementa o algoritmo token bucket
// Permite rajadas curtas até a capacidade e depois limita à taxa de recarga
type TokenBucket struct {
	capacity   float64
	tokens     float64
	refillRate float64 // tokens por segundo
	lastRefill time.Time
	mutex      sync.Mutex
	now        func() time.Time
}

// NewTokenBucket cria um novo token bucket cheio
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Allow consome um token do bucket
func (t *TokenBucket) Allow() bool {
	return t.Consume(1)
}

// Consume tenta consumir n tokens do bucket
// Retorna true apenas se houver tokens suficientes; nunca consome parcialmente
func (t *TokenBucket) Consume(n int) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	now := t.now()

	// Recarrega tokens com base no tempo decorrido, limitado à capacidade
	elapsed := now.Sub(t.lastRefill).Seconds()
	t.tokens = math.Min(t.capacity, t.tokens+elapsed*t.refillRate)
	t.lastRefill = now

	if t.tokens >= float64(n) {
		t.tokens -= float64(n)
		return true
	}
	return false
}

// Tokens retorna a quantidade atual de tokens disponíveis
func (t *TokenBucket) Tokens() float64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.tokens
}
