package throttle

import (
	"sync"
	"time"
)

// FixedWindow implementa o algoritmo de janela fixa clássica
// O contador é zerado na virada de cada janela; também serve como
// verificação secundária para os tetos por hora e por dia
type FixedWindow struct {
	window      time.Duration
	maxRequests int
	count       int
	windowStart time.Time
	mutex       sync.Mutex
	now         func() time.Time
}

// NewFixedWindow cria uma nova janela fixa
func NewFixedWindow(window time.Duration, maxRequests int) *FixedWindow {
	return &FixedWindow{
		window:      window,
		maxRequests: maxRequests,
		windowStart: time.Now(),
		now:         time.Now,
	}
}

// Allow verifica se a requisição cabe na janela corrente e incrementa o contador
func (f *FixedWindow) Allow() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	now := f.now()
	if now.Sub(f.windowStart) >= f.window {
		f.count = 0
		f.windowStart = now
	}

	if f.count < f.maxRequests {
		f.count++
		return true
	}
	return false
}

// Count retorna o contador da janela corrente
func (f *FixedWindow) Count() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.count
}
