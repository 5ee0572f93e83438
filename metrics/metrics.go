// Package metrics exposes prometheus instrumentation for the chain and for
// client side confirmation polling.
package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "counter"

// Chain instruments block production
type Chain struct {
	blocks       prometheus.Counter
	transactions *prometheus.CounterVec
	pending      prometheus.Gauge
	height       prometheus.Gauge
}

// NewChain registers the chain metrics on r
func NewChain(r prometheus.Registerer) (*Chain, error) {
	m := &Chain{
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "blocks",
			Help:      "number of sealed blocks",
		}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "transactions",
			Help:      "number of processed messages by kind and outcome",
		}, []string{"kind", "success"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "pending_messages",
			Help:      "number of messages waiting for the next block",
		}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "height",
			Help:      "height of the last sealed block",
		}),
	}
	err := errors.Join(
		r.Register(m.blocks),
		r.Register(m.transactions),
		r.Register(m.pending),
		r.Register(m.height),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// BlockSealed records a new block
func (m *Chain) BlockSealed(height uint64) {
	m.blocks.Inc()
	m.height.Set(float64(height))
}

// TransactionProcessed records the outcome of one message
func (m *Chain) TransactionProcessed(kind string, success bool) {
	m.transactions.WithLabelValues(kind, strconv.FormatBool(success)).Inc()
}

// SetPending records the mempool size
func (m *Chain) SetPending(n int) {
	m.pending.Set(float64(n))
}

// PollObserver counts confirmation poll attempts. It satisfies
// poller.Observer.
type PollObserver struct {
	attempts prometheus.Counter
}

// NewPollObserver registers the poll metrics on r
func NewPollObserver(r prometheus.Registerer) (*PollObserver, error) {
	o := &PollObserver{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "poll_attempts",
			Help:      "number of reads issued while waiting for confirmations",
		}),
	}
	if err := r.Register(o.attempts); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *PollObserver) OnAttempt(int) {
	o.attempts.Inc()
}
