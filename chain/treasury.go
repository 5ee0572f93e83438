package chain

import (
	"fmt"

	"github.com/govm-net/counter/chain/store"
	"github.com/govm-net/counter/core"
	"go.uber.org/zap"
)

// Treasury is a funded account identified by name. It satisfies
// contract.Sender.
type Treasury struct {
	Name    string
	address core.Address
}

// Address returns the treasury address
func (t *Treasury) Address() core.Address {
	return t.address
}

// Treasury returns the account registered under name, funding it with the
// configured treasury balance on first use
func (c *Chain) Treasury(name string) (*Treasury, error) {
	if name == "" {
		return nil, ErrEmptyTreasury
	}
	t := &Treasury{Name: name, address: core.NamedAddress(name)}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.store.GetAccount(t.address)
	if err == nil {
		return t, nil
	}
	if !store.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load treasury %q: %w", name, err)
	}
	err = c.store.PutAccount(&store.Account{Address: t.address, Balance: c.treasuryBalance})
	if err != nil {
		return nil, fmt.Errorf("failed to create treasury %q: %w", name, err)
	}
	c.log.Debug("treasury created",
		zap.String("name", name),
		zap.Stringer("address", t.address),
		zap.Stringer("balance", c.treasuryBalance),
	)
	return t, nil
}
