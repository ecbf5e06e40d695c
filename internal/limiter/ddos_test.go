package limiter

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rate-shield/internal/domain"
)

// TestDDoSProtection_ThresholdDetection testa a detecção no limiar de 100
func TestDDoSProtection_ThresholdDetection(t *testing.T) {
	log := &spyLogger{}
	ddos := NewDDoSProtection(100, log)

	for i := 0; i < 100; i++ {
		allowed, reason := ddos.AnalyzeRequestPattern("1.2.3.4", "agent", "/api/search")
		require.True(t, allowed, "request %d should pass", i+1)
		require.Equal(t, domain.ReasonPatternOK, reason)
	}

	// A 101ª requisição do mesmo par (ip, endpoint) dispara a detecção
	allowed, reason := ddos.AnalyzeRequestPattern("1.2.3.4", "agent", "/api/search")
	assert.False(t, allowed)
	assert.Equal(t, domain.ReasonDDoSDetected, reason)
	assert.Contains(t, log.securityEvents(), "ddos_attack_detected")
}

// TestDDoSProtection_IndependentOfWhitelist testa a independência do rate limiter primário
func TestDDoSProtection_IndependentOfWhitelist(t *testing.T) {
	rule := &domain.RateLimitRule{
		RequestsPerMinute: 10,
		Algorithm:         domain.SlidingWindowAlgorithm,
		BlockDuration:     300,
		Whitelist:         []string{"10.0.0.1"},
	}
	rl, _ := newTestLimiter(rule)
	ddos := NewDDoSProtection(100, &spyLogger{})

	var patternAllowed bool
	for i := 0; i < 101; i++ {
		result := rl.Check("10.0.0.1", "agent", rule)
		require.True(t, result.Allowed)
		patternAllowed, _ = ddos.AnalyzeRequestPattern("10.0.0.1", "agent", "/")
	}

	// Whitelist não protege contra a análise de padrões
	assert.False(t, patternAllowed)
}

// TestDDoSProtection_PatternsAreIndependent testa isolamento entre pares (ip, endpoint)
func TestDDoSProtection_PatternsAreIndependent(t *testing.T) {
	ddos := NewDDoSProtection(3, &spyLogger{})

	for i := 0; i < 3; i++ {
		allowed, _ := ddos.AnalyzeRequestPattern("1.1.1.1", "agent", "/a")
		require.True(t, allowed)
	}
	allowed, _ := ddos.AnalyzeRequestPattern("1.1.1.1", "agent", "/a")
	assert.False(t, allowed)

	// Outro endpoint do mesmo IP e outro IP no mesmo endpoint seguem liberados
	allowed, _ = ddos.AnalyzeRequestPattern("1.1.1.1", "agent", "/b")
	assert.True(t, allowed)
	allowed, _ = ddos.AnalyzeRequestPattern("2.2.2.2", "agent", "/a")
	assert.True(t, allowed)
}

// TestDDoSProtection_WindowDecay testa o decaimento temporal dos contadores
func TestDDoSProtection_WindowDecay(t *testing.T) {
	ddos := NewDDoSProtection(3, &spyLogger{})
	ddos.windowSize = 50 * time.Millisecond

	for i := 0; i < 3; i++ {
		allowed, _ := ddos.AnalyzeRequestPattern("1.1.1.1", "agent", "/a")
		require.True(t, allowed)
	}
	allowed, _ := ddos.AnalyzeRequestPattern("1.1.1.1", "agent", "/a")
	require.False(t, allowed)

	// Depois de uma janela ociosa o padrão volta a ser aceito
	time.Sleep(60 * time.Millisecond)
	allowed, _ = ddos.AnalyzeRequestPattern("1.1.1.1", "agent", "/a")
	assert.True(t, allowed)
}

// TestDDoSProtection_AttackStats testa o snapshot de estatísticas de ataque
func TestDDoSProtection_AttackStats(t *testing.T) {
	ddos := NewDDoSProtection(1000, &spyLogger{})

	for i := 0; i < 5; i++ {
		ddos.AnalyzeRequestPattern("1.1.1.1", "agent", "/a")
	}
	for i := 0; i < 2; i++ {
		ddos.AnalyzeRequestPattern("2.2.2.2", "agent", "/b")
	}

	stats := ddos.AttackStats()
	assert.Equal(t, 2, stats.SuspiciousPatterns)
	assert.Equal(t, int64(7), stats.TotalSuspiciousRequests)
	require.Len(t, stats.TopAttackers, 2)
	assert.Equal(t, "1.1.1.1:/a", stats.TopAttackers[0].Pattern)
	assert.Equal(t, int64(5), stats.TopAttackers[0].Count)
	assert.Equal(t, "2.2.2.2:/b", stats.TopAttackers[1].Pattern)
}

// TestDDoSProtection_TopAttackersCapped testa o corte do top-10
func TestDDoSProtection_TopAttackersCapped(t *testing.T) {
	ddos := NewDDoSProtection(1000, &spyLogger{})

	for i := 0; i < 15; i++ {
		ip := fmt.Sprintf("10.0.0.%d", i)
		for j := 0; j <= i; j++ {
			ddos.AnalyzeRequestPattern(ip, "agent", "/a")
		}
	}

	stats := ddos.AttackStats()
	assert.Equal(t, 15, stats.SuspiciousPatterns)
	assert.Len(t, stats.TopAttackers, 10)
	assert.Equal(t, "10.0.0.14:/a", stats.TopAttackers[0].Pattern)
	assert.Equal(t, int64(15), stats.TopAttackers[0].Count)
}

// TestDDoSProtection_SweepRemovesIdlePatterns testa a varredura de padrões inativos
func TestDDoSProtection_SweepRemovesIdlePatterns(t *testing.T) {
	ddos := NewDDoSProtection(1000, &spyLogger{})

	base := time.Now()
	current := base
	ddos.now = func() time.Time { return current }

	ddos.AnalyzeRequestPattern("1.1.1.1", "agent", "/a")

	current = base.Add(25 * time.Hour)
	ddos.AnalyzeRequestPattern("2.2.2.2", "agent", "/b")

	ddos.sweep()

	stats := ddos.AttackStats()
	assert.Equal(t, 1, stats.SuspiciousPatterns)
	assert.Equal(t, "2.2.2.2:/b", stats.TopAttackers[0].Pattern)
}

// TestDDoSProtection_Reset testa a limpeza completa do estado
func TestDDoSProtection_Reset(t *testing.T) {
	ddos := NewDDoSProtection(1000, &spyLogger{})

	ddos.AnalyzeRequestPattern("1.1.1.1", "agent", "/a")
	require.Equal(t, 1, ddos.AttackStats().SuspiciousPatterns)

	ddos.Reset()
	assert.Equal(t, 0, ddos.AttackStats().SuspiciousPatterns)
	assert.Equal(t, int64(0), ddos.AttackStats().TotalSuspiciousRequests)
}
