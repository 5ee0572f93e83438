package main

import (
	"fmt"
	"strings"

	"github.com/govm-net/counter/chain"
	"github.com/govm-net/counter/contract"
	"github.com/spf13/cobra"
)

func (a *app) inspectCmd() *cobra.Command {
	var codeFile string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the exports and imports of a contract artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			code, err := contract.LoadCode(codeFile)
			if err != nil {
				return err
			}
			info, err := chain.InspectCode(ctx, code)
			if err != nil {
				return err
			}

			a.field("Size", fmt.Sprintf("%d bytes", len(code)))
			fmt.Fprintln(a.out, "Exports:")
			for _, fn := range info.Exports {
				fmt.Fprintf(a.out, "  - %s(%s) %s\n", fn.Name, strings.Join(fn.Params, ", "), strings.Join(fn.Results, ", "))
			}
			fmt.Fprintln(a.out, "Imports:")
			for _, fn := range info.Imports {
				fmt.Fprintf(a.out, "  - %s.%s(%s) %s\n", fn.Module, fn.Name, strings.Join(fn.Params, ", "), strings.Join(fn.Results, ", "))
			}

			validator := chain.NewCodeValidator(ctx, 0)
			defer validator.Close(ctx)
			if err := validator.Validate(ctx, code); err != nil {
				a.errorf("Not a counter contract: %v", err)
				return nil
			}
			a.successf("Counter interface: ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&codeFile, "code", "f", "", "contract wasm file (bundled contract when omitted)")
	return cmd
}
