package chain_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/govm-net/counter/chain"
	"github.com/govm-net/counter/chain/chaintest"
	"github.com/govm-net/counter/chain/store"
	"github.com/govm-net/counter/chain/store/db"
	"github.com/govm-net/counter/chain/store/memory"
	"github.com/govm-net/counter/contract"
	"github.com/govm-net/counter/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var value = core.MustToNano("0.05")

func deployCounter(t *testing.T, c *chain.Chain, deployer *chain.Treasury, state core.CounterState) *contract.Counter {
	t.Helper()
	counter, err := contract.CreateFromConfig(state, contract.Code())
	require.NoError(t, err)
	counter = counter.Open(c)

	_, err = counter.SendDeploy(context.Background(), deployer, value)
	require.NoError(t, err)
	return counter
}

func TestDeploy(t *testing.T) {
	ctx := context.Background()
	c := chaintest.NewSandbox(t)
	deployer, err := c.Treasury("deployer")
	require.NoError(t, err)

	id := rand.Int64N(10000)
	counter := deployCounter(t, c, deployer, core.CounterState{ID: id})

	txs, err := c.Transactions(counter.Address())
	require.NoError(t, err)
	chaintest.HasTransaction(t, txs,
		chaintest.From(deployer.Address()),
		chaintest.To(counter.Address()),
		chaintest.Deploy(true),
		chaintest.Success(true),
	)

	gotID, err := counter.GetID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)

	balance, err := c.Balance(deployer.Address())
	require.NoError(t, err)
	assert.Equal(t, chain.DefaultTreasuryBalance-value, balance)

	balance, err = c.Balance(counter.Address())
	require.NoError(t, err)
	assert.Equal(t, value, balance)

	events, err := c.Events(counter.Address())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, chain.EventCounterDeployed, events[0].Name)
	assert.Equal(t, id, events[0].Fields["id"])
}

func TestDeployZeroState(t *testing.T) {
	ctx := context.Background()
	c := chaintest.NewSandbox(t)
	deployer, err := c.Treasury("deployer")
	require.NoError(t, err)

	counter := deployCounter(t, c, deployer, core.CounterState{ID: 0, Counter: 0})

	id, err := counter.GetID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)

	got, err := counter.GetCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestRedeploy(t *testing.T) {
	ctx := context.Background()
	c := chaintest.NewSandbox(t)
	deployer, err := c.Treasury("deployer")
	require.NoError(t, err)

	counter := deployCounter(t, c, deployer, core.CounterState{ID: 7})

	// the chain accepts the same deploy again without touching the state
	hash, err := c.SendMessage(ctx, &core.Message{
		Kind:    core.KindDeploy,
		From:    deployer.Address(),
		To:      counter.Address(),
		Value:   value,
		QueryID: 1,
		Init:    counter.Init(),
	})
	require.NoError(t, err)

	txs, err := c.TransactionsByMessage(hash)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Success)
	assert.False(t, txs[0].Deploy)

	events, err := c.Events(counter.Address())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestIncrease(t *testing.T) {
	ctx := context.Background()
	c := chaintest.NewSandbox(t)
	deployer, err := c.Treasury("deployer")
	require.NoError(t, err)

	counter := deployCounter(t, c, deployer, core.CounterState{ID: rand.Int64N(10000)})

	var total int64
	for i := 0; i < 3; i++ {
		increaser, err := c.Treasury(fmt.Sprintf("increaser%d", i))
		require.NoError(t, err)

		before, err := counter.GetCounter(ctx)
		require.NoError(t, err)
		assert.Equal(t, total, before)

		by := rand.Int64N(100) + 1
		hash, err := counter.SendIncrease(ctx, increaser, contract.IncreaseRequest{
			IncreaseBy: by,
			Value:      value,
		})
		require.NoError(t, err)
		total += by

		txs, err := c.TransactionsByMessage(hash)
		require.NoError(t, err)
		chaintest.HasTransaction(t, txs,
			chaintest.From(increaser.Address()),
			chaintest.To(counter.Address()),
			chaintest.Kind(core.KindIncrease),
			chaintest.Success(true),
		)

		after, err := counter.GetCounter(ctx)
		require.NoError(t, err)
		assert.Equal(t, total, after)
	}

	events, err := c.Events(counter.Address())
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, chain.EventCounterIncreased, events[3].Name)
	assert.Equal(t, total, events[3].Fields["counter"])
}

func TestFailedMessages(t *testing.T) {
	ctx := context.Background()
	c := chaintest.NewSandbox(t)
	sender, err := c.Treasury("sender")
	require.NoError(t, err)
	deployed := deployCounter(t, c, sender, core.CounterState{ID: 1})
	stranger := core.NamedAddress("nothing here")

	badCode, err := contract.CreateFromConfig(core.CounterState{ID: 2}, []byte("not wasm"))
	require.NoError(t, err)
	other, err := contract.CreateFromConfig(core.CounterState{ID: 3}, contract.Code())
	require.NoError(t, err)
	conflict := *deployed.Init()
	conflict.Data.ID = 99

	tests := []struct {
		name string
		msg  *core.Message
		exit int
	}{
		{
			name: "increase not deployed",
			msg:  &core.Message{Kind: core.KindIncrease, To: stranger, IncreaseBy: 1, Value: value},
			exit: chain.ExitNotDeployed,
		},
		{
			name: "increase by zero",
			msg:  &core.Message{Kind: core.KindIncrease, To: deployed.Address(), Value: value},
			exit: chain.ExitInvalidAmount,
		},
		{
			name: "insufficient funds",
			msg:  &core.Message{Kind: core.KindIncrease, To: deployed.Address(), IncreaseBy: 1, Value: chain.DefaultTreasuryBalance},
			exit: chain.ExitInsufficientFunds,
		},
		{
			name: "deploy without init",
			msg:  &core.Message{Kind: core.KindDeploy, To: stranger, Value: value},
			exit: chain.ExitInvalidState,
		},
		{
			name: "address mismatch",
			msg:  &core.Message{Kind: core.KindDeploy, To: stranger, Value: value, Init: other.Init()},
			exit: chain.ExitAddressMismatch,
		},
		{
			name: "invalid code",
			msg:  &core.Message{Kind: core.KindDeploy, To: badCode.Address(), Value: value, Init: badCode.Init()},
			exit: chain.ExitInvalidCode,
		},
		{
			name: "id conflict",
			msg:  &core.Message{Kind: core.KindDeploy, To: deployed.Address(), Value: value, Init: &conflict},
			exit: chain.ExitIDConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := c.Balance(sender.Address())
			require.NoError(t, err)

			tt.msg.From = sender.Address()
			hash, err := c.SendMessage(ctx, tt.msg)
			require.NoError(t, err)

			txs, err := c.TransactionsByMessage(hash)
			require.NoError(t, err)
			chaintest.HasTransaction(t, txs,
				chaintest.Success(false),
				chaintest.ExitCode(tt.exit),
			)

			after, err := c.Balance(sender.Address())
			require.NoError(t, err)
			assert.Equal(t, before, after, "value must stay with the sender")
		})
	}

	state, err := deployed.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.CounterState{ID: 1}, *state)
}

func TestSendMessageRejected(t *testing.T) {
	ctx := context.Background()
	c := chaintest.NewSandbox(t)
	from := core.NamedAddress("a")
	to := core.NamedAddress("b")

	tests := []struct {
		name string
		msg  *core.Message
	}{
		{name: "nil", msg: nil},
		{name: "no destination", msg: &core.Message{Kind: core.KindIncrease, From: from}},
		{name: "no sender", msg: &core.Message{Kind: core.KindIncrease, To: to}},
		{name: "unknown kind", msg: &core.Message{Kind: 9, From: from, To: to}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.SendMessage(ctx, tt.msg)
			assert.ErrorIs(t, err, chain.ErrInvalidMessage)
		})
	}
}

func TestPendingUntilSealed(t *testing.T) {
	ctx := context.Background()
	c, err := chain.New(ctx, memory.New())
	require.NoError(t, err)
	defer c.Close(ctx)

	deployer, err := c.Treasury("deployer")
	require.NoError(t, err)
	counter, err := contract.CreateFromConfig(core.CounterState{ID: 5}, contract.Code())
	require.NoError(t, err)
	counter = counter.Open(c)

	msg := &core.Message{
		Kind:  core.KindDeploy,
		From:  deployer.Address(),
		To:    counter.Address(),
		Value: value,
		Init:  counter.Init(),
	}
	_, err = c.SendMessage(ctx, msg)
	require.NoError(t, err)
	_, err = c.SendMessage(ctx, msg)
	assert.ErrorIs(t, err, chain.ErrDuplicateMessage)

	assert.Equal(t, 1, c.Pending())
	deployed, err := counter.IsDeployed(ctx)
	require.NoError(t, err)
	assert.False(t, deployed)

	_, err = c.LastBlock()
	assert.True(t, store.IsNotFound(err))

	block, err := c.Seal(ctx)
	require.NoError(t, err)
	require.NotNil(t, block)
	assert.Equal(t, uint64(1), block.Height)
	assert.Equal(t, 1, block.TxCount)
	assert.Equal(t, 0, c.Pending())

	deployed, err = counter.IsDeployed(ctx)
	require.NoError(t, err)
	assert.True(t, deployed)

	// nothing pending
	block, err = c.Seal(ctx)
	require.NoError(t, err)
	assert.Nil(t, block)

	// processed messages are not accepted twice
	_, err = c.SendMessage(ctx, msg)
	assert.ErrorIs(t, err, chain.ErrDuplicateMessage)
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := chain.New(context.Background(), memory.New())
	require.NoError(t, err)
	defer c.Close(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, 10*time.Millisecond)
	}()

	deployer, err := c.Treasury("deployer")
	require.NoError(t, err)
	counter, err := contract.CreateFromConfig(core.CounterState{ID: 11}, contract.Code())
	require.NoError(t, err)
	counter = counter.Open(c)

	_, err = counter.SendDeploy(ctx, deployer, value)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		deployed, err := counter.IsDeployed(ctx)
		return err == nil && deployed
	}, time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, c.Height(), uint64(1))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("block loop did not stop")
	}

	assert.Error(t, c.Run(context.Background(), 0))
}

func TestDBBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chain.db")

	st, err := db.Open(path)
	require.NoError(t, err)
	c, err := chain.New(ctx, st, chain.WithAutoSeal())
	require.NoError(t, err)

	deployer, err := c.Treasury("deployer")
	require.NoError(t, err)
	counter := deployCounter(t, c, deployer, core.CounterState{ID: 42})
	_, err = counter.SendIncrease(ctx, deployer, contract.IncreaseRequest{IncreaseBy: 5, Value: value})
	require.NoError(t, err)
	require.NoError(t, c.Close(ctx))

	st, err = db.Open(path)
	require.NoError(t, err)
	c, err = chain.New(ctx, st, chain.WithAutoSeal())
	require.NoError(t, err)
	defer c.Close(ctx)

	assert.Equal(t, uint64(2), c.Height())

	state, err := c.GetState(ctx, counter.Address())
	require.NoError(t, err)
	assert.Equal(t, core.CounterState{ID: 42, Counter: 5}, *state)

	txs, err := c.Transactions(deployer.Address())
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	chaintest.HasTransaction(t, txs, chaintest.Deploy(true), chaintest.Success(true))

	balance, err := c.Balance(deployer.Address())
	require.NoError(t, err)
	assert.Equal(t, chain.DefaultTreasuryBalance-2*value, balance)
}

func TestGetStateNotFound(t *testing.T) {
	ctx := context.Background()
	c := chaintest.NewSandbox(t)
	treasury, err := c.Treasury("plain")
	require.NoError(t, err)

	_, err = c.GetState(ctx, treasury.Address())
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = c.GetState(ctx, core.NamedAddress("missing"))
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = c.Treasury("")
	assert.ErrorIs(t, err, chain.ErrEmptyTreasury)
}

func TestMaxCodeSize(t *testing.T) {
	ctx := context.Background()
	c := chaintest.NewSandbox(t, chain.WithMaxCodeSize(16))
	deployer, err := c.Treasury("deployer")
	require.NoError(t, err)

	counter, err := contract.CreateFromConfig(core.CounterState{ID: 1}, contract.Code())
	require.NoError(t, err)
	_, err = counter.Open(c).SendDeploy(ctx, deployer, value)
	require.NoError(t, err)

	txs, err := c.Transactions(counter.Address())
	require.NoError(t, err)
	chaintest.HasTransaction(t, txs, chaintest.ExitCode(chain.ExitInvalidCode), chaintest.Success(false))
}

// flakyStore fails the next commit when failNext is set
type flakyStore struct {
	*memory.Store
	failNext bool
}

func (s *flakyStore) Commit(c *store.Commit) error {
	if s.failNext {
		s.failNext = false
		return errors.New("disk full")
	}
	return s.Store.Commit(c)
}

func TestFailedSealDropsMessage(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{Store: memory.New()}
	c, err := chain.New(ctx, st, chain.WithAutoSeal())
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close(ctx)
	})

	deployer, err := c.Treasury("deployer")
	require.NoError(t, err)
	counter := deployCounter(t, c, deployer, core.CounterState{ID: 1})

	st.failNext = true
	_, err = counter.SendIncrease(ctx, deployer, contract.IncreaseRequest{IncreaseBy: 5, Value: value})
	require.Error(t, err)
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, uint64(1), c.Height())

	_, err = counter.SendIncrease(ctx, deployer, contract.IncreaseRequest{IncreaseBy: 1, Value: value})
	require.NoError(t, err)
	got, err := counter.GetCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	balance, err := c.Balance(counter.Address())
	require.NoError(t, err)
	assert.Equal(t, 2*value, balance)
}

func TestBlockTime(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c, err := chain.New(ctx, memory.New(), chain.WithAutoSeal(), chain.WithClock(func() time.Time { return at }))
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close(ctx)
	})

	deployer, err := c.Treasury("deployer")
	require.NoError(t, err)
	deployCounter(t, c, deployer, core.CounterState{ID: 2})

	last, err := c.LastBlock()
	require.NoError(t, err)
	assert.Equal(t, at.Unix(), last.Time)
}
