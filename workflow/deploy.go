// Package workflow runs the deploy and increment procedures against a
// counter contract and waits for their effects to become visible.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/govm-net/counter/contract"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/poller"
	"github.com/govm-net/counter/repository"
	"go.uber.org/zap"
)

const (
	// MaxRandomID bounds the ids picked when a deploy request has none
	MaxRandomID = 10000
	// DefaultDeployAttempts caps the existence checks after a deploy
	DefaultDeployAttempts = 30
)

// DefaultValue is attached to deploy and increase messages
var DefaultValue = core.MustToNano("0.05")

// DeployState tracks a deployment
type DeployState int

const (
	DeployBuilt DeployState = iota
	DeploySubmitted
	DeployConfirmed
	DeployFailed
)

func (s DeployState) String() string {
	switch s {
	case DeployBuilt:
		return "built"
	case DeploySubmitted:
		return "submitted"
	case DeployConfirmed:
		return "confirmed"
	case DeployFailed:
		return "failed"
	default:
		return fmt.Sprintf("DeployState(%d)", int(s))
	}
}

// DeployRequest describes the counter to deploy. A nil ID picks a random one
// in [0, MaxRandomID); a nil Value attaches DefaultValue; empty Code uses the
// bundled contract.
type DeployRequest struct {
	ID    *int64
	Value *core.Coins
	Code  []byte
}

// DeployResult is filled as far as the deployment got
type DeployResult struct {
	Address     core.Address
	ID          int64
	MessageHash core.Hash
	State       DeployState
}

// DeployTimeoutError reports a deploy that never became visible
type DeployTimeoutError struct {
	Address  core.Address
	Attempts int
}

func (e *DeployTimeoutError) Error() string {
	return fmt.Sprintf("%s: contract %s not visible after %d attempts", core.ErrDeployTimeout, e.Address, e.Attempts)
}

func (e *DeployTimeoutError) Unwrap() error {
	return core.ErrDeployTimeout
}

// DeployWaiter blocks until a submitted counter exists and returns the
// number of checks it made
type DeployWaiter interface {
	WaitDeployed(ctx context.Context, counter *contract.Counter) (int, error)
}

// PollingWaiter checks existence with a poller
type PollingWaiter struct {
	Poller *poller.Poller
}

// WaitDeployed returns *DeployTimeoutError when the poller gives up
func (w PollingWaiter) WaitDeployed(ctx context.Context, counter *contract.Counter) (int, error) {
	res, err := poller.WaitForChange(ctx, w.Poller, false, counter.IsDeployed)
	var timeout *poller.ConfirmationTimeoutError
	if errors.As(err, &timeout) {
		return timeout.Attempts, &DeployTimeoutError{Address: counter.Address(), Attempts: timeout.Attempts}
	}
	return res.Attempts, err
}

// Deployer deploys counters
type Deployer struct {
	transport contract.Transport
	sender    contract.Sender
	waiter    DeployWaiter
	records   *repository.Manager
	endpoint  string
	randomID  func() int64
	workchain int8
	log       *zap.Logger
}

// DeployerOption configures NewDeployer
type DeployerOption func(*Deployer)

func WithDeployWaiter(w DeployWaiter) DeployerOption {
	return func(d *Deployer) {
		d.waiter = w
	}
}

// WithRecords stores every confirmed deployment in m
func WithRecords(m *repository.Manager, endpoint string) DeployerOption {
	return func(d *Deployer) {
		d.records = m
		d.endpoint = endpoint
	}
}

func WithDeployLogger(log *zap.Logger) DeployerOption {
	return func(d *Deployer) {
		d.log = log
	}
}

// WithWorkchain derives counter addresses for another workchain
func WithWorkchain(workchain int8) DeployerOption {
	return func(d *Deployer) {
		d.workchain = workchain
	}
}

// WithIDSource replaces the random id generator
func WithIDSource(next func() int64) DeployerOption {
	return func(d *Deployer) {
		d.randomID = next
	}
}

// NewDeployer creates a Deployer submitting through transport on behalf of
// sender
func NewDeployer(transport contract.Transport, sender contract.Sender, opts ...DeployerOption) *Deployer {
	d := &Deployer{
		transport: transport,
		sender:    sender,
		waiter:    PollingWaiter{Poller: poller.New(poller.WithMaxAttempts(DefaultDeployAttempts))},
		randomID:  func() int64 { return rand.Int64N(MaxRandomID) },
		workchain: core.DefaultWorkchain,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deploy submits the counter and waits until it exists. The returned result
// is non-nil whenever the address could be derived, also on failure.
func (d *Deployer) Deploy(ctx context.Context, req DeployRequest) (*DeployResult, error) {
	id := d.randomID()
	if req.ID != nil {
		id = *req.ID
	}
	code := req.Code
	if len(code) == 0 {
		code = contract.Code()
	}
	value := DefaultValue
	if req.Value != nil {
		value = *req.Value
	}

	counter, err := contract.CreateFromConfig(core.CounterState{ID: id}, code, contract.WithWorkchain(d.workchain))
	if err != nil {
		return nil, err
	}
	counter = counter.Open(d.transport)
	res := &DeployResult{Address: counter.Address(), ID: id, State: DeployBuilt}

	d.log.Info("deploying counter",
		zap.Stringer("address", res.Address),
		zap.Int64("id", id),
		zap.Stringer("value", value),
	)
	res.MessageHash, err = counter.SendDeploy(ctx, d.sender, value)
	if err != nil {
		res.State = DeployFailed
		return res, err
	}
	res.State = DeploySubmitted

	attempts, err := d.waiter.WaitDeployed(ctx, counter)
	if err != nil {
		res.State = DeployFailed
		return res, err
	}

	res.ID, err = counter.GetID(ctx)
	if err != nil {
		res.State = DeployFailed
		return res, err
	}
	res.State = DeployConfirmed
	d.log.Info("counter deployed",
		zap.Stringer("address", res.Address),
		zap.Int64("id", res.ID),
		zap.Int("attempts", attempts),
	)

	d.record(res, code)
	return res, nil
}

// record failures do not fail a deployment that already happened
func (d *Deployer) record(res *DeployResult, code []byte) {
	if d.records == nil {
		return
	}
	err := d.records.RegisterDeployment(&repository.Deployment{
		Address:     res.Address,
		ID:          res.ID,
		MessageHash: res.MessageHash,
		Endpoint:    d.endpoint,
	}, code)
	if err != nil && !errors.Is(err, repository.ErrExists) {
		d.log.Warn("failed to record deployment", zap.Stringer("address", res.Address), zap.Error(err))
	}
}
