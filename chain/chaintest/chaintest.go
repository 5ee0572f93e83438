// Package chaintest provides a sandbox chain and transaction assertions for
// tests.
package chaintest

import (
	"context"
	"testing"

	"github.com/govm-net/counter/chain"
	"github.com/govm-net/counter/chain/store"
	"github.com/govm-net/counter/chain/store/memory"
	"github.com/govm-net/counter/core"
	"github.com/stretchr/testify/require"
)

// Matcher selects transactions
type Matcher func(*store.Transaction) bool

func From(addr core.Address) Matcher {
	return func(tx *store.Transaction) bool { return tx.From == addr }
}

func To(addr core.Address) Matcher {
	return func(tx *store.Transaction) bool { return tx.To == addr }
}

func Deploy(deploy bool) Matcher {
	return func(tx *store.Transaction) bool { return tx.Deploy == deploy }
}

func Success(success bool) Matcher {
	return func(tx *store.Transaction) bool { return tx.Success == success }
}

func ExitCode(code int) Matcher {
	return func(tx *store.Transaction) bool { return tx.ExitCode == code }
}

func Kind(kind core.MessageKind) Matcher {
	return func(tx *store.Transaction) bool { return tx.Kind == kind }
}

// FindTransaction returns the first transaction matching every matcher
func FindTransaction(txs []*store.Transaction, matchers ...Matcher) *store.Transaction {
	for _, tx := range txs {
		if matchAll(tx, matchers) {
			return tx
		}
	}
	return nil
}

func matchAll(tx *store.Transaction, matchers []Matcher) bool {
	for _, m := range matchers {
		if !m(tx) {
			return false
		}
	}
	return true
}

// HasTransaction fails the test unless a transaction matches every matcher
func HasTransaction(t testing.TB, txs []*store.Transaction, matchers ...Matcher) *store.Transaction {
	t.Helper()
	tx := FindTransaction(txs, matchers...)
	require.NotNil(t, tx, "no matching transaction among %d", len(txs))
	return tx
}

// NewSandbox returns an auto-sealing chain over a memory store. It is closed
// when the test ends.
func NewSandbox(t testing.TB, opts ...chain.Option) *chain.Chain {
	t.Helper()
	ctx := context.Background()
	opts = append([]chain.Option{chain.WithAutoSeal()}, opts...)
	c, err := chain.New(ctx, memory.New(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close(ctx)
	})
	return c
}
