package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock permite controlar o relógio dos primitivos nos testes
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Now()}
}

func (f *fakeClock) Now() time.Time {
	return f.current
}

func (f *fakeClock) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}

// TestTokenBucket_BurstThenThrottle testa rajada até a capacidade seguida de negação
func TestTokenBucket_BurstThenThrottle(t *testing.T) {
	clock := newFakeClock()
	bucket := NewTokenBucket(3, 1.0)
	bucket.lastRefill = clock.Now()
	bucket.now = clock.Now

	// Rajada inicial consome toda a capacidade
	assert.True(t, bucket.Allow())
	assert.True(t, bucket.Allow())
	assert.True(t, bucket.Allow())

	// Sem tokens restantes
	assert.False(t, bucket.Allow())
}

// TestTokenBucket_NoPartialConsumption testa que negação não altera o estado
func TestTokenBucket_NoPartialConsumption(t *testing.T) {
	clock := newFakeClock()
	bucket := NewTokenBucket(5, 1.0)
	bucket.lastRefill = clock.Now()
	bucket.now = clock.Now

	assert.True(t, bucket.Consume(3))
	before := bucket.Tokens()

	// Pedido maior que o saldo falha sem consumo parcial
	assert.False(t, bucket.Consume(3))
	assert.Equal(t, before, bucket.Tokens())
}

// TestTokenBucket_RefillOverTime testa a recarga proporcional ao tempo decorrido
func TestTokenBucket_RefillOverTime(t *testing.T) {
	clock := newFakeClock()
	bucket := NewTokenBucket(3, 1.0)
	bucket.lastRefill = clock.Now()
	bucket.now = clock.Now

	assert.True(t, bucket.Consume(3))
	assert.False(t, bucket.Allow())

	// Dois segundos geram dois tokens
	clock.Advance(2 * time.Second)
	assert.True(t, bucket.Allow())
	assert.True(t, bucket.Allow())
	assert.False(t, bucket.Allow())
}

// TestTokenBucket_RefillCappedAtCapacity testa que a recarga nunca ultrapassa a capacidade
func TestTokenBucket_RefillCappedAtCapacity(t *testing.T) {
	clock := newFakeClock()
	bucket := NewTokenBucket(3, 10.0)
	bucket.lastRefill = clock.Now()
	bucket.now = clock.Now

	// Longo tempo ocioso não acumula além da capacidade
	clock.Advance(time.Hour)
	assert.True(t, bucket.Allow())

	tokens := bucket.Tokens()
	assert.LessOrEqual(t, tokens, float64(3))
	assert.GreaterOrEqual(t, tokens, float64(0))
}

// TestTokenBucket_BoundsInvariant testa os limites [0, capacidade] sob sequência arbitrária
func TestTokenBucket_BoundsInvariant(t *testing.T) {
	clock := newFakeClock()
	bucket := NewTokenBucket(5, 2.0)
	bucket.lastRefill = clock.Now()
	bucket.now = clock.Now

	for i := 0; i < 50; i++ {
		bucket.Allow()
		if i%7 == 0 {
			clock.Advance(500 * time.Millisecond)
		}

		tokens := bucket.Tokens()
		assert.GreaterOrEqual(t, tokens, float64(0))
		assert.LessOrEqual(t, tokens, float64(5))
	}
}
