// Package store defines the persistence boundary of the simulated chain and a
// registry of interchangeable backends.
package store

import (
	"errors"
	"maps"

	"github.com/govm-net/counter/core"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = core.ErrNotFound

// Account is a balance holder. Contracts additionally carry code and state.
type Account struct {
	Address core.Address
	Balance core.Coins
	Code    []byte
	State   *core.CounterState
}

// IsContract reports whether a counter is deployed at the account
func (a *Account) IsContract() bool {
	return a.State != nil
}

// Clone returns a deep copy
func (a *Account) Clone() *Account {
	out := *a
	if a.Code != nil {
		out.Code = append([]byte(nil), a.Code...)
	}
	if a.State != nil {
		s := *a.State
		out.State = &s
	}
	return &out
}

// Block groups the transactions applied in one seal
type Block struct {
	Height  uint64
	Time    int64
	Hash    core.Hash
	TxCount int
}

// Transaction records the processing of one message
type Transaction struct {
	Hash        core.Hash        `json:"hash"`
	MessageHash core.Hash        `json:"messageHash"`
	Block       uint64           `json:"block"`
	Kind        core.MessageKind `json:"kind"`
	From        core.Address     `json:"from"`
	To          core.Address     `json:"to"`
	Value       core.Coins       `json:"value"`
	Deploy      bool             `json:"deploy"`
	Success     bool             `json:"success"`
	ExitCode    int              `json:"exitCode"`
}

// Event is emitted by the counter executor
type Event struct {
	Block    uint64           `json:"block"`
	TxHash   core.Hash        `json:"txHash"`
	Contract core.Address     `json:"contract"`
	Name     string           `json:"name"`
	Fields   map[string]int64 `json:"fields"`
}

// Clone returns a deep copy
func (e *Event) Clone() *Event {
	out := *e
	out.Fields = maps.Clone(e.Fields)
	return &out
}

// Commit is everything one block changes
type Commit struct {
	Block        *Block
	Accounts     []*Account
	Transactions []*Transaction
	Events       []*Event
}

// Store persists the ledger
type Store interface {
	// GetAccount returns ErrNotFound for unknown addresses
	GetAccount(addr core.Address) (*Account, error)
	// PutAccount creates or replaces an account outside of a block
	PutAccount(acc *Account) error
	// Commit applies a block atomically
	Commit(c *Commit) error
	// LastBlock returns ErrNotFound before the first block
	LastBlock() (*Block, error)
	// Transactions lists transactions sent from or to addr in block order
	Transactions(addr core.Address) ([]*Transaction, error)
	// TransactionsByMessage lists transactions produced by one message
	TransactionsByMessage(hash core.Hash) ([]*Transaction, error)
	// Events lists the events emitted by a contract in block order
	Events(contract core.Address) ([]*Event, error)
	Close() error
}

// IsNotFound reports whether err means a missing record
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
