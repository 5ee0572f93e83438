package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainMetrics(t *testing.T) {
	r := prometheus.NewRegistry()
	m, err := NewChain(r)
	require.NoError(t, err)

	m.BlockSealed(3)
	m.TransactionProcessed("increase", true)
	m.TransactionProcessed("increase", true)
	m.TransactionProcessed("deploy", false)
	m.SetPending(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.blocks))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.height))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transactions.WithLabelValues("increase", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactions.WithLabelValues("deploy", "false")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.pending))

	// a second registration on the same registry collides
	_, err = NewChain(r)
	assert.Error(t, err)
}

func TestPollObserver(t *testing.T) {
	o, err := NewPollObserver(prometheus.NewRegistry())
	require.NoError(t, err)
	o.OnAttempt(1)
	o.OnAttempt(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(o.attempts))
}
