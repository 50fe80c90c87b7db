package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithIsolatedRegistry(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())
	// A second collector on its own registry must not collide.
	NewWith(prometheus.NewRegistry())

	m.TabsCreated.Inc()
	m.TabsCreated.Inc()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TabsCreated))

	m.StoreErrors.WithLabelValues("save_session").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues("save_session")))
}

func TestUptimeAdvances(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())
	require.GreaterOrEqual(t, m.Uptime(), time.Duration(0))

	m.startTime = time.Now().Add(-time.Minute)
	assert.GreaterOrEqual(t, m.Uptime(), time.Minute)
}
