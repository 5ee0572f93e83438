// Package contract provides typed access to a single counter contract on a
// remote chain.
package contract

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/govm-net/counter/core"
)

// Transport is the remote collaborator the client talks to
type Transport interface {
	// SendMessage submits a message and returns its hash as the receipt
	SendMessage(ctx context.Context, msg *core.Message) (core.Hash, error)
	// GetState returns the counter state at addr, or core.ErrNotFound
	GetState(ctx context.Context, addr core.Address) (*core.CounterState, error)
}

// Sender authorizes and funds a submitted message
type Sender interface {
	Address() core.Address
}

// SenderAddress is a Sender identified only by its address
type SenderAddress core.Address

func (s SenderAddress) Address() core.Address {
	return core.Address(s)
}

// IncreaseRequest asks the counter to add IncreaseBy to its value
type IncreaseRequest struct {
	IncreaseBy int64
	Value      core.Coins
}

var errNoTransport = errors.New("contract is not opened with a transport")

// queryIDs keeps message hashes unique across identical submissions
var queryIDs atomic.Uint64

func init() {
	queryIDs.Store(uint64(time.Now().UnixNano()))
}

// Counter is a handle to one counter contract
type Counter struct {
	address   core.Address
	init      *core.StateInit
	workchain int8
	transport Transport
}

// Option configures CreateFromConfig
type Option func(*Counter)

// WithWorkchain overrides the network discriminator used to derive the address
func WithWorkchain(workchain int8) Option {
	return func(c *Counter) {
		c.workchain = workchain
	}
}

// CreateFromConfig builds a handle for a counter that is not deployed yet. The
// address is derived from the initial state and the code; no I/O happens.
func CreateFromConfig(state core.CounterState, code []byte, opts ...Option) (*Counter, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: empty contract code", core.ErrInvalidConfig)
	}

	c := &Counter{workchain: core.DefaultWorkchain}
	for _, opt := range opts {
		opt(c)
	}
	c.init = &core.StateInit{Code: code, Data: state}
	c.address = core.DeriveAddress(c.workchain, *c.init)
	return c, nil
}

// CreateFromAddress wraps an existing address. Existence is not checked.
func CreateFromAddress(addr core.Address) *Counter {
	return &Counter{address: addr, workchain: core.DefaultWorkchain}
}

// Open returns a copy of the handle bound to transport
func (c *Counter) Open(transport Transport) *Counter {
	opened := *c
	opened.transport = transport
	return &opened
}

// Address returns the contract address
func (c *Counter) Address() core.Address {
	return c.address
}

// Init returns the deploy payload, or nil for handles created from an address
func (c *Counter) Init() *core.StateInit {
	return c.init
}

// GetState reads the full contract state
func (c *Counter) GetState(ctx context.Context) (*core.CounterState, error) {
	if c.transport == nil {
		return nil, core.NewTransportError("getState", errNoTransport)
	}
	state, err := c.transport.GetState(ctx, c.address)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotDeployed, c.address)
	}
	if err != nil {
		return nil, core.NewTransportError("getState", err)
	}
	return state, nil
}

// IsDeployed reports whether the contract exists at its address
func (c *Counter) IsDeployed(ctx context.Context) (bool, error) {
	_, err := c.GetState(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, core.ErrNotDeployed):
		return false, nil
	default:
		return false, err
	}
}

// GetID returns the id the contract was deployed with
func (c *Counter) GetID(ctx context.Context) (int64, error) {
	state, err := c.GetState(ctx)
	if err != nil {
		return 0, err
	}
	return state.ID, nil
}

// GetCounter returns the current counter value
func (c *Counter) GetCounter(ctx context.Context) (int64, error) {
	state, err := c.GetState(ctx)
	if err != nil {
		return 0, err
	}
	return state.Counter, nil
}

// SendDeploy submits the deploy message. Deploying over an existing contract
// with the same id is a no-op that returns the zero hash; a different id
// fails with core.ErrDeployConflict.
func (c *Counter) SendDeploy(ctx context.Context, sender Sender, value core.Coins) (core.Hash, error) {
	if c.init == nil {
		return core.ZeroHash, fmt.Errorf("%w: contract has no initial state", core.ErrInvalidConfig)
	}
	if sender == nil {
		return core.ZeroHash, fmt.Errorf("%w: missing sender", core.ErrInvalidConfig)
	}

	existing, err := c.GetState(ctx)
	switch {
	case err == nil:
		if existing.ID != c.init.Data.ID {
			return core.ZeroHash, fmt.Errorf("%w: %s holds id %d, want %d",
				core.ErrDeployConflict, c.address, existing.ID, c.init.Data.ID)
		}
		return core.ZeroHash, nil
	case !errors.Is(err, core.ErrNotDeployed):
		return core.ZeroHash, err
	}

	return c.send(ctx, &core.Message{
		Kind:  core.KindDeploy,
		From:  sender.Address(),
		To:    c.address,
		Value: value,
		Init:  c.init,
	})
}

// SendIncrease submits an increment. It does not wait for the result.
func (c *Counter) SendIncrease(ctx context.Context, sender Sender, req IncreaseRequest) (core.Hash, error) {
	if req.IncreaseBy <= 0 {
		return core.ZeroHash, fmt.Errorf("%w: increase by %d", core.ErrInvalidAmount, req.IncreaseBy)
	}
	if sender == nil {
		return core.ZeroHash, fmt.Errorf("%w: missing sender", core.ErrInvalidConfig)
	}

	return c.send(ctx, &core.Message{
		Kind:       core.KindIncrease,
		From:       sender.Address(),
		To:         c.address,
		Value:      req.Value,
		IncreaseBy: req.IncreaseBy,
	})
}

func (c *Counter) send(ctx context.Context, msg *core.Message) (core.Hash, error) {
	if c.transport == nil {
		return core.ZeroHash, core.NewTransportError("sendMessage", errNoTransport)
	}
	msg.QueryID = queryIDs.Add(1)
	hash, err := c.transport.SendMessage(ctx, msg)
	if err != nil {
		return core.ZeroHash, core.NewTransportError("sendMessage", err)
	}
	return hash, nil
}
