// Package chain implements an in-process ledger that hosts counter contracts.
// Submitted messages queue until a block is sealed; a sealed block applies
// them in order and persists the result through a store backend.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/govm-net/counter/chain/store"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/metrics"
	"go.uber.org/zap"
)

// DefaultTreasuryBalance funds every new treasury
var DefaultTreasuryBalance = core.MustToNano("1000000")

// Chain is safe for concurrent use
type Chain struct {
	store     store.Store
	validator *CodeValidator
	log       *zap.Logger
	metrics   *metrics.Chain
	now       func() time.Time

	autoSeal        bool
	workchain       int8
	maxCodeSize     int
	treasuryBalance core.Coins

	mu      sync.Mutex
	pending []*core.Message
	queued  map[core.Hash]struct{}
	height  uint64
	last    core.Hash
}

// Option configures New
type Option func(*Chain)

func WithLogger(log *zap.Logger) Option {
	return func(c *Chain) {
		c.log = log
	}
}

func WithMetrics(m *metrics.Chain) Option {
	return func(c *Chain) {
		c.metrics = m
	}
}

// WithAutoSeal seals a block after every submission
func WithAutoSeal() Option {
	return func(c *Chain) {
		c.autoSeal = true
	}
}

func WithTreasuryBalance(balance core.Coins) Option {
	return func(c *Chain) {
		c.treasuryBalance = balance
	}
}

func WithWorkchain(workchain int8) Option {
	return func(c *Chain) {
		c.workchain = workchain
	}
}

// WithMaxCodeSize bounds the code accepted by deploys
func WithMaxCodeSize(n int) Option {
	return func(c *Chain) {
		c.maxCodeSize = n
	}
}

// WithClock replaces the block timestamp source
func WithClock(now func() time.Time) Option {
	return func(c *Chain) {
		c.now = now
	}
}

// New creates a chain on top of st and resumes from its last block
func New(ctx context.Context, st store.Store, opts ...Option) (*Chain, error) {
	if st == nil {
		return nil, errors.New("store cannot be nil")
	}
	c := &Chain{
		store:           st,
		log:             zap.NewNop(),
		now:             time.Now,
		workchain:       core.DefaultWorkchain,
		treasuryBalance: DefaultTreasuryBalance,
		queued:          make(map[core.Hash]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	last, err := st.LastBlock()
	switch {
	case err == nil:
		c.height = last.Height
		c.last = last.Hash
	case !store.IsNotFound(err):
		return nil, fmt.Errorf("failed to load last block: %w", err)
	}

	c.validator = NewCodeValidator(ctx, c.maxCodeSize)
	return c, nil
}

// SendMessage queues msg for the next block and returns its hash. Messages
// that can never be applied are rejected here; everything else is recorded
// as a transaction, successful or not.
func (c *Chain) SendMessage(ctx context.Context, msg *core.Message) (core.Hash, error) {
	if err := checkMessage(msg); err != nil {
		return core.ZeroHash, err
	}
	hash := msg.Hash()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.queued[hash]; exists {
		return core.ZeroHash, fmt.Errorf("%w: %s", ErrDuplicateMessage, hash)
	}
	done, err := c.store.TransactionsByMessage(hash)
	if err != nil {
		return core.ZeroHash, fmt.Errorf("failed to look up message %s: %w", hash, err)
	}
	if len(done) > 0 {
		return core.ZeroHash, fmt.Errorf("%w: %s", ErrDuplicateMessage, hash)
	}

	queued := *msg
	if msg.Init != nil {
		init := *msg.Init
		init.Code = append([]byte(nil), msg.Init.Code...)
		queued.Init = &init
	}
	c.pending = append(c.pending, &queued)
	c.queued[hash] = struct{}{}
	c.setPending()

	c.log.Debug("message accepted",
		zap.Stringer("hash", hash),
		zap.Stringer("kind", msg.Kind),
		zap.Stringer("from", msg.From),
		zap.Stringer("to", msg.To),
		zap.Stringer("value", msg.Value),
	)

	if c.autoSeal {
		if _, err := c.sealLocked(ctx); err != nil {
			c.dropLocked(hash)
			return core.ZeroHash, err
		}
	}
	return hash, nil
}

// dropLocked removes a queued message that was reported as failed
func (c *Chain) dropLocked(hash core.Hash) {
	if _, ok := c.queued[hash]; !ok {
		return
	}
	delete(c.queued, hash)
	for i, msg := range c.pending {
		if msg.Hash() == hash {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
	c.setPending()
}

func checkMessage(msg *core.Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if msg.To.IsZero() {
		return fmt.Errorf("%w: missing destination", ErrInvalidMessage)
	}
	if msg.From.IsZero() {
		return fmt.Errorf("%w: missing sender", ErrInvalidMessage)
	}
	switch msg.Kind {
	case core.KindDeploy, core.KindIncrease:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidMessage, msg.Kind)
	}
}

// Seal applies every pending message in a new block. It returns nil when
// nothing is pending.
func (c *Chain) Seal(ctx context.Context) (*store.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sealLocked(ctx)
}

func (c *Chain) sealLocked(ctx context.Context) (*store.Block, error) {
	if len(c.pending) == 0 {
		return nil, nil
	}

	height := c.height + 1
	ws := newWorkingSet(c.store)
	txs := make([]*store.Transaction, 0, len(c.pending))
	var events []*store.Event
	for _, msg := range c.pending {
		tx, event, err := c.execute(ctx, ws, msg, height)
		if err != nil {
			return nil, fmt.Errorf("failed to execute message %s: %w", msg.Hash(), err)
		}
		txs = append(txs, tx)
		if event != nil {
			events = append(events, event)
		}
	}

	block := &store.Block{
		Height:  height,
		Time:    c.now().Unix(),
		Hash:    blockHash(c.last, height, txs),
		TxCount: len(txs),
	}
	err := c.store.Commit(&store.Commit{
		Block:        block,
		Accounts:     ws.changed(),
		Transactions: txs,
		Events:       events,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit block %d: %w", height, err)
	}

	c.pending = nil
	c.queued = make(map[core.Hash]struct{})
	c.height = height
	c.last = block.Hash
	c.setPending()

	for _, tx := range txs {
		if c.metrics != nil {
			c.metrics.TransactionProcessed(tx.Kind.String(), tx.Success)
		}
	}
	for _, ev := range events {
		c.log.Info("Contract event",
			zap.String("event", ev.Name),
			zap.Stringer("contract", ev.Contract),
			zap.Any("fields", ev.Fields),
		)
	}
	if c.metrics != nil {
		c.metrics.BlockSealed(height)
	}
	c.log.Info("block sealed",
		zap.Uint64("height", height),
		zap.Stringer("hash", block.Hash),
		zap.Int("transactions", len(txs)),
	)
	return block, nil
}

func (c *Chain) setPending() {
	if c.metrics != nil {
		c.metrics.SetPending(len(c.pending))
	}
}

// Run seals a block every interval until ctx is done
func (c *Chain) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid block interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Seal(ctx); err != nil {
				c.log.Error("failed to seal block", zap.Error(err))
			}
		}
	}
}

// Pending returns the number of queued messages
func (c *Chain) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Height returns the height of the last sealed block
func (c *Chain) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// GetState returns the counter at addr, or core.ErrNotFound when no contract
// is deployed there
func (c *Chain) GetState(_ context.Context, addr core.Address) (*core.CounterState, error) {
	acc, err := c.store.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if !acc.IsContract() {
		return nil, core.ErrNotFound
	}
	state := *acc.State
	return &state, nil
}

// Balance returns zero for unknown accounts
func (c *Chain) Balance(addr core.Address) (core.Coins, error) {
	acc, err := c.store.GetAccount(addr)
	if store.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

func (c *Chain) Transactions(addr core.Address) ([]*store.Transaction, error) {
	return c.store.Transactions(addr)
}

func (c *Chain) TransactionsByMessage(hash core.Hash) ([]*store.Transaction, error) {
	return c.store.TransactionsByMessage(hash)
}

func (c *Chain) Events(contract core.Address) ([]*store.Event, error) {
	return c.store.Events(contract)
}

// LastBlock returns store.ErrNotFound before the first seal
func (c *Chain) LastBlock() (*store.Block, error) {
	return c.store.LastBlock()
}

// Close releases the code validator and the store
func (c *Chain) Close(ctx context.Context) error {
	return errors.Join(c.validator.Close(ctx), c.store.Close())
}
