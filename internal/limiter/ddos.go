package limiter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"rate-shield/internal/domain"
	"rate-shield/internal/throttle"
)

// DefaultAttackThreshold é o teto de requisições por minuto para um
// mesmo par (ip, endpoint) antes da detecção de ataque
const DefaultAttackThreshold = 100

// patternTrack acompanha um par (ip, endpoint)
// A janela deslizante decide a negação; o total acumulado alimenta as
// estatísticas de ataque
type patternTrack struct {
	window   *throttle.SlidingWindow
	total    int64
	lastSeen time.Time
}

// DDoSProtection é a heurística secundária de detecção de DDoS, keyed
// por (ip, endpoint) e independente do rate limiter primário: captura
// o martelamento sustentado de uma única rota mesmo quando o cliente
// está na whitelist do limiter
type DDoSProtection struct {
	threshold     int
	windowSize    time.Duration
	patternTTL    time.Duration
	sweepInterval time.Duration

	patterns map[string]*patternTrack
	mutex    sync.Mutex

	logger domain.Logger
	now    func() time.Time
}

// NewDDoSProtection cria uma nova instância do analisador de padrões
func NewDDoSProtection(threshold int, log domain.Logger) *DDoSProtection {
	if threshold <= 0 {
		threshold = DefaultAttackThreshold
	}

	return &DDoSProtection{
		threshold:     threshold,
		windowSize:    time.Minute,
		patternTTL:    24 * time.Hour,
		sweepInterval: 5 * time.Minute,
		patterns:      make(map[string]*patternTrack),
		logger:        log,
		now:           time.Now,
	}
}

// AnalyzeRequestPattern analisa o padrão de requisições em busca de
// indicadores de DDoS; o user-agent não participa da chave do padrão
func (d *DDoSProtection) AnalyzeRequestPattern(ip, userAgent, endpoint string) (bool, string) {
	patternKey := ip + ":" + endpoint

	d.mutex.Lock()
	defer d.mutex.Unlock()

	track, exists := d.patterns[patternKey]
	if !exists {
		// Contadores com decaimento temporal: reutiliza a janela
		// deslizante em vez de um inteiro que só cresce
		track = &patternTrack{
			window: throttle.NewSlidingWindow(d.windowSize, d.threshold),
		}
		d.patterns[patternKey] = track
	}

	track.total++
	track.lastSeen = d.now()

	if !track.window.Allow() {
		d.logger.SecurityEvent("ddos_attack_detected", map[string]interface{}{
			"ip_address":    ip,
			"endpoint":      endpoint,
			"request_count": track.total,
		})
		return false, domain.ReasonDDoSDetected
	}

	return true, domain.ReasonPatternOK
}

// AttackStats retorna o snapshot de estatísticas de ataque
func (d *DDoSProtection) AttackStats() *domain.AttackStats {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	var total int64
	counts := make([]domain.PatternCount, 0, len(d.patterns))
	for pattern, track := range d.patterns {
		total += track.total
		counts = append(counts, domain.PatternCount{Pattern: pattern, Count: track.total})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Pattern < counts[j].Pattern
	})
	if len(counts) > 10 {
		counts = counts[:10]
	}

	return &domain.AttackStats{
		SuspiciousPatterns:      len(d.patterns),
		TotalSuspiciousRequests: total,
		TopAttackers:            counts,
	}
}

// Reset limpa todos os padrões rastreados
func (d *DDoSProtection) Reset() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.patterns = make(map[string]*patternTrack)
	d.logger.Info("DDoS protection state reset", nil)
}

// StartSweeper inicia a varredura periódica de padrões inativos
// A goroutine encerra quando o contexto é cancelado
func (d *DDoSProtection) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(d.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.sweep()
			}
		}
	}()
}

// sweep remove padrões sem atividade além do TTL
func (d *DDoSProtection) sweep() {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("DDoS protection sweep failed", fmt.Errorf("%v", rec), nil)
		}
	}()

	d.mutex.Lock()
	defer d.mutex.Unlock()

	now := d.now()
	removed := 0
	for key, track := range d.patterns {
		if now.Sub(track.lastSeen) > d.patternTTL {
			delete(d.patterns, key)
			removed++
		}
	}

	d.logger.Debug("DDoS protection cleanup completed", map[string]interface{}{
		"removed_patterns": removed,
		"active_patterns":  len(d.patterns),
	})
}
