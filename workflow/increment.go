package workflow

import (
	"context"
	"fmt"

	"github.com/govm-net/counter/contract"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/poller"
	"go.uber.org/zap"
)

// IncrementRequest targets a deployed counter. IncreaseBy must be positive;
// a nil Value attaches DefaultValue.
type IncrementRequest struct {
	Address    core.Address
	IncreaseBy int64
	Value      *core.Coins
}

// IncrementResult reports a confirmed increment
type IncrementResult struct {
	Address     core.Address
	Before      int64
	After       int64
	Attempts    int
	MessageHash core.Hash
}

// Incrementer increments counters and waits for the new value
type Incrementer struct {
	transport contract.Transport
	sender    contract.Sender
	poller    *poller.Poller
	submitted func(core.Hash)
	log       *zap.Logger
}

// IncrementerOption configures NewIncrementer
type IncrementerOption func(*Incrementer)

func WithPoller(p *poller.Poller) IncrementerOption {
	return func(i *Incrementer) {
		i.poller = p
	}
}

// WithSubmitted calls fn once the increase is accepted, before polling starts
func WithSubmitted(fn func(core.Hash)) IncrementerOption {
	return func(i *Incrementer) {
		i.submitted = fn
	}
}

func WithIncrementLogger(log *zap.Logger) IncrementerOption {
	return func(i *Incrementer) {
		i.log = log
	}
}

func NewIncrementer(transport contract.Transport, sender contract.Sender, opts ...IncrementerOption) *Incrementer {
	i := &Incrementer{
		transport: transport,
		sender:    sender,
		poller:    poller.New(),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Increment submits one increase and polls the counter until it changes.
// Nothing is submitted when the counter is not deployed. If the wait fails
// after submission the partial result is returned with the error; a
// *poller.ConfirmationTimeoutError carries the last observed counter.
func (i *Incrementer) Increment(ctx context.Context, req IncrementRequest) (*IncrementResult, error) {
	by := req.IncreaseBy
	if by <= 0 {
		return nil, fmt.Errorf("%w: increase by %d", core.ErrInvalidAmount, by)
	}
	value := DefaultValue
	if req.Value != nil {
		value = *req.Value
	}

	counter := contract.CreateFromAddress(req.Address).Open(i.transport)
	deployed, err := counter.IsDeployed(ctx)
	if err != nil {
		return nil, err
	}
	if !deployed {
		return nil, fmt.Errorf("%w: %s", core.ErrNotDeployed, req.Address)
	}

	before, err := counter.GetCounter(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := counter.SendIncrease(ctx, i.sender, contract.IncreaseRequest{IncreaseBy: by, Value: value})
	if err != nil {
		return nil, err
	}
	res := &IncrementResult{
		Address:     req.Address,
		Before:      before,
		After:       before,
		MessageHash: hash,
	}
	i.log.Info("increase submitted",
		zap.Stringer("address", req.Address),
		zap.Int64("counter", before),
		zap.Int64("by", by),
		zap.Stringer("message", hash),
	)
	if i.submitted != nil {
		i.submitted(hash)
	}

	changed, err := poller.WaitForChange(ctx, i.poller, before, counter.GetCounter)
	if err != nil {
		return res, fmt.Errorf("waiting for counter %s: %w", req.Address, err)
	}
	res.After = changed.Value
	res.Attempts = changed.Attempts
	i.log.Info("counter increased",
		zap.Stringer("address", req.Address),
		zap.Int64("counter", res.After),
		zap.Int("attempts", res.Attempts),
	)
	return res, nil
}
