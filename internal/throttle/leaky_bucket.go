package throttle

import (
	"math"
	"sync"
	"time"
)

// LeakyBucket implementa o algoritmo leaky bucket
// O nível de preenchimento vaza a uma taxa constante; rajadas são
// suavizadas em vez de rejeitadas de imediato, até a capacidade
type LeakyBucket struct {
	capacity float64
	level    float64
	leakRate float64 // unidades por segundo
	lastLeak time.Time
	mutex    sync.Mutex
	now      func() time.Time
}

// NewLeakyBucket cria um novo leaky bucket vazio
func NewLeakyBucket(capacity int, leakRate float64) *LeakyBucket {
	return &LeakyBucket{
		capacity: float64(capacity),
		leakRate: leakRate,
		lastLeak: time.Now(),
		now:      time.Now,
	}
}

// Allow adiciona uma requisição ao bucket se houver espaço após o vazamento
func (l *LeakyBucket) Allow() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.now()

	// Vaza com base no tempo decorrido, nunca abaixo de zero
	elapsed := now.Sub(l.lastLeak).Seconds()
	l.level = math.Max(0, l.level-elapsed*l.leakRate)
	l.lastLeak = now

	if l.level < l.capacity {
		l.level++
		return true
	}
	return false
}

// Level retorna o nível atual de preenchimento do bucket
func (l *LeakyBucket) Level() float64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.level
}
