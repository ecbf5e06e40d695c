package throttle

import (
	"sync"
	"time"
)

// SlidingWindow implementa o algoritmo de janela deslizante exata
// Mantém uma fila ordenada de timestamps e descarta entradas expiradas
// a cada verificação (O(k) por chamada, amortizado O(1) em tráfego regular)
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mutex       sync.Mutex
	now         func() time.Time
}

// NewSlidingWindow cria uma nova janela deslizante
func NewSlidingWindow(windowSize time.Duration, maxRequests int) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		now:         time.Now,
	}
}

// Allow verifica se a requisição cabe na janela e registra o timestamp
func (s *SlidingWindow) Allow() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	s.trim(now)

	if len(s.requests) < s.maxRequests {
		s.requests = append(s.requests, now)
		return true
	}
	return false
}

// Len retorna a quantidade de requisições ainda dentro da janela
func (s *SlidingWindow) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.trim(s.now())
	return len(s.requests)
}

// trim remove da frente da fila as requisições fora da janela
func (s *SlidingWindow) trim(now time.Time) {
	cutoff := now.Add(-s.windowSize)
	idx := 0
	for idx < len(s.requests) && !s.requests[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		s.requests = append(s.requests[:0], s.requests[idx:]...)
	}
}
