package chain

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/govm-net/counter/chain/store"
	"github.com/govm-net/counter/core"
	"go.uber.org/zap"
)

// Exit codes recorded on transactions. Any non-zero code means the message
// failed and its value stayed with the sender.
const (
	ExitOK                = 0
	ExitInsufficientFunds = 37
	ExitInvalidCode       = 100
	ExitAddressMismatch   = 101
	ExitIDConflict        = 102
	ExitNotDeployed       = 103
	ExitInvalidAmount     = 104
	ExitInvalidState      = 105
	ExitUnknownOp         = 0xffff
)

const (
	EventCounterDeployed  = "CounterDeployed"
	EventCounterIncreased = "CounterIncreased"
)

// workingSet buffers the accounts touched by one block
type workingSet struct {
	store    store.Store
	accounts map[core.Address]*store.Account
	order    []core.Address
}

func newWorkingSet(s store.Store) *workingSet {
	return &workingSet{
		store:    s,
		accounts: make(map[core.Address]*store.Account),
	}
}

// get returns nil when the account does not exist
func (w *workingSet) get(addr core.Address) (*store.Account, error) {
	if acc, ok := w.accounts[addr]; ok {
		return acc, nil
	}
	acc, err := w.store.GetAccount(addr)
	if store.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w.track(acc)
	return acc, nil
}

func (w *workingSet) getOrCreate(addr core.Address) (*store.Account, error) {
	acc, err := w.get(addr)
	if err != nil || acc != nil {
		return acc, err
	}
	acc = &store.Account{Address: addr}
	w.track(acc)
	return acc, nil
}

func (w *workingSet) track(acc *store.Account) {
	w.accounts[acc.Address] = acc
	w.order = append(w.order, acc.Address)
}

func (w *workingSet) changed() []*store.Account {
	out := make([]*store.Account, 0, len(w.order))
	for _, addr := range w.order {
		out = append(out, w.accounts[addr])
	}
	return out
}

// execute applies one message to the working set. The returned error is
// reserved for storage failures; rejected messages produce a failed
// transaction instead.
func (c *Chain) execute(ctx context.Context, ws *workingSet, msg *core.Message, height uint64) (*store.Transaction, *store.Event, error) {
	tx := &store.Transaction{
		MessageHash: msg.Hash(),
		Block:       height,
		Kind:        msg.Kind,
		From:        msg.From,
		To:          msg.To,
		Value:       msg.Value,
	}
	tx.Hash = transactionHash(tx.MessageHash, height)

	sender, err := ws.get(msg.From)
	if err != nil {
		return nil, nil, err
	}
	if sender == nil || sender.Balance < msg.Value {
		tx.ExitCode = ExitInsufficientFunds
		return tx, nil, nil
	}

	var event *store.Event
	switch msg.Kind {
	case core.KindDeploy:
		tx.ExitCode, tx.Deploy, event, err = c.deploy(ctx, ws, msg)
	case core.KindIncrease:
		tx.ExitCode, event, err = c.increase(ws, msg)
	default:
		tx.ExitCode = ExitUnknownOp
	}
	if err != nil {
		return nil, nil, err
	}
	if tx.ExitCode != ExitOK {
		c.log.Debug("message failed",
			zap.Stringer("message", tx.MessageHash),
			zap.Stringer("kind", msg.Kind),
			zap.Int("exitCode", tx.ExitCode),
		)
		return tx, nil, nil
	}

	dest, err := ws.getOrCreate(msg.To)
	if err != nil {
		return nil, nil, err
	}
	sender.Balance -= msg.Value
	dest.Balance += msg.Value
	tx.Success = true

	if event != nil {
		event.Block = height
		event.TxHash = tx.Hash
	}
	return tx, event, nil
}

func (c *Chain) deploy(ctx context.Context, ws *workingSet, msg *core.Message) (int, bool, *store.Event, error) {
	if msg.Init == nil {
		return ExitInvalidState, false, nil, nil
	}

	dest, err := ws.get(msg.To)
	if err != nil {
		return 0, false, nil, err
	}
	if dest != nil && dest.IsContract() {
		// redeploying the same contract is accepted and changes nothing
		if dest.State.ID == msg.Init.Data.ID {
			return ExitOK, false, nil, nil
		}
		return ExitIDConflict, false, nil, nil
	}

	if core.DeriveAddress(c.workchain, *msg.Init) != msg.To {
		return ExitAddressMismatch, false, nil, nil
	}
	if err := msg.Init.Data.Validate(); err != nil {
		return ExitInvalidState, false, nil, nil
	}
	if err := c.validator.Validate(ctx, msg.Init.Code); err != nil {
		c.log.Info("rejected contract code", zap.Stringer("address", msg.To), zap.Error(err))
		return ExitInvalidCode, false, nil, nil
	}

	dest, err = ws.getOrCreate(msg.To)
	if err != nil {
		return 0, false, nil, err
	}
	state := msg.Init.Data
	dest.Code = append([]byte(nil), msg.Init.Code...)
	dest.State = &state

	return ExitOK, true, &store.Event{
		Contract: msg.To,
		Name:     EventCounterDeployed,
		Fields: map[string]int64{
			"id":      state.ID,
			"counter": state.Counter,
		},
	}, nil
}

func (c *Chain) increase(ws *workingSet, msg *core.Message) (int, *store.Event, error) {
	dest, err := ws.get(msg.To)
	if err != nil {
		return 0, nil, err
	}
	if dest == nil || !dest.IsContract() {
		return ExitNotDeployed, nil, nil
	}
	if msg.IncreaseBy <= 0 || dest.State.Counter > math.MaxInt64-msg.IncreaseBy {
		return ExitInvalidAmount, nil, nil
	}

	dest.State.Counter += msg.IncreaseBy

	return ExitOK, &store.Event{
		Contract: msg.To,
		Name:     EventCounterIncreased,
		Fields: map[string]int64{
			"id":      dest.State.ID,
			"by":      msg.IncreaseBy,
			"counter": dest.State.Counter,
		},
	}, nil
}

func transactionHash(msgHash core.Hash, height uint64) core.Hash {
	var buf [len(core.Hash{}) + 8]byte
	copy(buf[:], msgHash[:])
	binary.BigEndian.PutUint64(buf[len(msgHash):], height)
	return core.GetHash(buf[:])
}

func blockHash(parent core.Hash, height uint64, txs []*store.Transaction) core.Hash {
	data := make([]byte, 0, len(parent)+8+len(txs)*len(parent))
	data = append(data, parent[:]...)
	data = binary.BigEndian.AppendUint64(data, height)
	for _, tx := range txs {
		data = append(data, tx.Hash[:]...)
	}
	return core.GetHash(data)
}
