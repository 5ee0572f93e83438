package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/govm-net/counter/core"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func (a *app) txsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "txs <address>",
		Short: "List the transactions recorded for an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := core.ParseAddress(args[0])
			if err != nil {
				return err
			}
			txs, err := a.client().Transactions(cmd.Context(), addr)
			if err != nil {
				return core.NewTransportError("transactions", err)
			}
			if len(txs) == 0 {
				a.errorf("no transactions for %s", addr)
				return nil
			}

			title := cases.Title(language.English)
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tBLOCK\tFROM\tVALUE\tSUCCESS\tEXIT")
			for _, tx := range txs {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%t\t%d\n",
					title.String(tx.Kind.String()), tx.Block, tx.From, tx.Value, tx.Success, tx.ExitCode)
			}
			return w.Flush()
		},
	}
}
