package main

import (
	"errors"
	"fmt"

	"github.com/govm-net/counter/core"
	"github.com/spf13/cobra"
)

func (a *app) stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <address>",
		Short: "Show the id, counter and balance of a counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := core.ParseAddress(args[0])
			if err != nil {
				return err
			}

			account, err := a.client().Account(cmd.Context(), addr)
			if errors.Is(err, core.ErrNotFound) {
				a.errorf("Error: Contract at address %s is not deployed!", addr)
				return fmt.Errorf("%w: %s", core.ErrNotDeployed, addr)
			}
			if err != nil {
				return core.NewTransportError("getState", err)
			}

			a.field("Address", addr)
			a.field("ID", account.State.ID)
			a.field("Counter", account.State.Counter)
			a.field("Balance", account.Balance)
			return nil
		},
	}
}
