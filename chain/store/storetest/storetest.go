// Package storetest holds the behaviour every store.Store implementation must
// share. Backends call Run from their own tests.
package storetest

import (
	"testing"

	"github.com/govm-net/counter/chain/store"
	"github.com/govm-net/counter/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a fresh store returned by newStore for every subtest
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("commit", func(t *testing.T) { testCommit(t, newStore(t)) })
	t.Run("empty", func(t *testing.T) { testEmpty(t, newStore(t)) })
}

func testAccounts(t *testing.T, s store.Store) {
	addr := core.NamedAddress("alice")

	_, err := s.GetAccount(addr)
	assert.True(t, store.IsNotFound(err))

	require.NoError(t, s.PutAccount(&store.Account{Address: addr, Balance: 1000}))
	acc, err := s.GetAccount(addr)
	require.NoError(t, err)
	assert.Equal(t, core.Coins(1000), acc.Balance)
	assert.False(t, acc.IsContract())

	acc.Balance = 10
	acc.Code = []byte{1, 2, 3}
	acc.State = &core.CounterState{ID: 9, Counter: 4}
	require.NoError(t, s.PutAccount(acc))

	// mutating the returned value does not leak into the store
	acc.State.Counter = 100

	got, err := s.GetAccount(addr)
	require.NoError(t, err)
	assert.Equal(t, core.Coins(10), got.Balance)
	assert.Equal(t, []byte{1, 2, 3}, got.Code)
	require.True(t, got.IsContract())
	assert.Equal(t, core.CounterState{ID: 9, Counter: 4}, *got.State)
}

func testCommit(t *testing.T, s store.Store) {
	alice := core.NamedAddress("alice")
	counter := core.NamedAddress("counter")
	msgHash := core.GetHash([]byte("msg"))
	txHash := core.GetHash([]byte("tx"))

	commit := &store.Commit{
		Block: &store.Block{Height: 1, Time: 1700000000, Hash: core.GetHash([]byte("block")), TxCount: 1},
		Accounts: []*store.Account{
			{Address: alice, Balance: 950},
			{Address: counter, Balance: 50, Code: []byte{0}, State: &core.CounterState{ID: 1}},
		},
		Transactions: []*store.Transaction{{
			Hash:        txHash,
			MessageHash: msgHash,
			Block:       1,
			Kind:        core.KindDeploy,
			From:        alice,
			To:          counter,
			Value:       50,
			Deploy:      true,
			Success:     true,
		}},
		Events: []*store.Event{{
			Block:    1,
			TxHash:   txHash,
			Contract: counter,
			Name:     "CounterDeployed",
			Fields:   map[string]int64{"id": 1, "counter": 0},
		}},
	}
	require.NoError(t, s.Commit(commit))

	last, err := s.LastBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), last.Height)
	assert.Equal(t, int64(1700000000), last.Time)
	assert.Equal(t, 1, last.TxCount)

	acc, err := s.GetAccount(counter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.State.ID)

	for _, addr := range []core.Address{alice, counter} {
		txs, err := s.Transactions(addr)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, *commit.Transactions[0], *txs[0])
	}

	txs, err := s.TransactionsByMessage(msgHash)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, txHash, txs[0].Hash)

	events, err := s.Events(counter)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "CounterDeployed", events[0].Name)
	assert.Equal(t, int64(1), events[0].Fields["id"])

	events[0].Fields["counter"] = 99
	commit.Events[0].Fields["counter"] = 98
	events, err = s.Events(counter)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(0), events[0].Fields["counter"])

	require.NoError(t, s.Commit(&store.Commit{
		Block: &store.Block{Height: 2, Time: 1700000001, Hash: core.GetHash([]byte("block2"))},
	}))
	last, err = s.LastBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), last.Height)
}

func testEmpty(t *testing.T, s store.Store) {
	_, err := s.LastBlock()
	assert.True(t, store.IsNotFound(err))

	txs, err := s.Transactions(core.NamedAddress("nobody"))
	require.NoError(t, err)
	assert.Empty(t, txs)

	events, err := s.Events(core.NamedAddress("nobody"))
	require.NoError(t, err)
	assert.Empty(t, events)
}
