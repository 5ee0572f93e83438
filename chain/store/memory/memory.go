// Package memory implements an in-process chain store
package memory

import (
	"sync"

	"github.com/govm-net/counter/chain/store"
	"github.com/govm-net/counter/core"
)

// Store keeps the ledger in maps guarded by a mutex
type Store struct {
	mu sync.Mutex

	accounts     map[core.Address]*store.Account
	blocks       []*store.Block
	transactions []*store.Transaction
	events       []*store.Event
}

func init() {
	store.Register(store.MemoryType, func(map[string]any) (store.Store, error) {
		return New(), nil
	})
}

// New creates an empty store
func New() *Store {
	return &Store{
		accounts: make(map[core.Address]*store.Account),
	}
}

// GetAccount returns a copy of the account at addr
func (s *Store) GetAccount(addr core.Address) (*store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, exists := s.accounts[addr]
	if !exists {
		return nil, store.ErrNotFound
	}
	return acc.Clone(), nil
}

// PutAccount creates or replaces an account
func (s *Store) PutAccount(acc *store.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acc.Address] = acc.Clone()
	return nil
}

// Commit applies a block
func (s *Store) Commit(c *store.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range c.Accounts {
		s.accounts[acc.Address] = acc.Clone()
	}
	if c.Block != nil {
		b := *c.Block
		s.blocks = append(s.blocks, &b)
	}
	for _, tx := range c.Transactions {
		t := *tx
		s.transactions = append(s.transactions, &t)
	}
	for _, ev := range c.Events {
		s.events = append(s.events, ev.Clone())
	}
	return nil
}

// LastBlock returns the most recent block
func (s *Store) LastBlock() (*store.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.blocks) == 0 {
		return nil, store.ErrNotFound
	}
	b := *s.blocks[len(s.blocks)-1]
	return &b, nil
}

// Transactions lists transactions sent from or to addr
func (s *Store) Transactions(addr core.Address) ([]*store.Transaction, error) {
	return s.filterTransactions(func(tx *store.Transaction) bool {
		return tx.From == addr || tx.To == addr
	}), nil
}

// TransactionsByMessage lists transactions produced by one message
func (s *Store) TransactionsByMessage(hash core.Hash) ([]*store.Transaction, error) {
	return s.filterTransactions(func(tx *store.Transaction) bool {
		return tx.MessageHash == hash
	}), nil
}

func (s *Store) filterTransactions(keep func(*store.Transaction) bool) []*store.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Transaction
	for _, tx := range s.transactions {
		if keep(tx) {
			t := *tx
			out = append(out, &t)
		}
	}
	return out
}

// Events lists events emitted by a contract
func (s *Store) Events(contract core.Address) ([]*store.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Event
	for _, ev := range s.events {
		if ev.Contract == contract {
			out = append(out, ev.Clone())
		}
	}
	return out, nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}
