package browser

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestConfigTimeoutFallbacks(t *testing.T) {
	var zero Config
	assert.Equal(t, 60*time.Second, zero.pageLoadTimeout())
	assert.Equal(t, 30*time.Second, zero.navigationTimeout())
	assert.Equal(t, 10*time.Second, zero.elementTimeout())

	cfg := Config{
		PageLoadTimeout:   5 * time.Second,
		NavigationTimeout: 4 * time.Second,
		ElementTimeout:    3 * time.Second,
	}
	assert.Equal(t, 5*time.Second, cfg.pageLoadTimeout())
	assert.Equal(t, 4*time.Second, cfg.navigationTimeout())
	assert.Equal(t, 3*time.Second, cfg.elementTimeout())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Headless)
	assert.Equal(t, 1920, cfg.ViewportWidth)
	assert.Equal(t, 1080, cfg.ViewportHeight)
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	s := &Session{cfg: DefaultConfig(), log: zap.NewNop()}

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close(), "second close must be a no-op")

	// Concurrent closes during teardown races must also collapse to one.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Close())
		}()
	}
	wg.Wait()
}
