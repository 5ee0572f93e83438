package main

import (
	"github.com/govm-net/counter/contract"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/workflow"
	"github.com/spf13/cobra"
)

func (a *app) deployCmd() *cobra.Command {
	var (
		id       int64
		value    string
		codeFile string
	)
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a counter contract",
		Long: `Deploy a counter contract and wait until it is visible on the node.
Example: counter-cli deploy --id 42 --value 0.05`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			req := workflow.DeployRequest{}
			if cmd.Flags().Changed("id") {
				req.ID = &id
			}

			if value == "" {
				value = a.cfg.Client.Value
			}
			coins, err := core.ToNano(value)
			if err != nil {
				return err
			}
			req.Value = &coins
			if req.Code, err = contract.LoadCode(codeFile); err != nil {
				return err
			}

			cli := a.client()
			sender, err := a.treasury(ctx, cli)
			if err != nil {
				return err
			}
			records, err := a.records()
			if err != nil {
				return err
			}

			defer a.writeMetrics()
			deployer := workflow.NewDeployer(cli, sender,
				workflow.WithDeployWaiter(workflow.PollingWaiter{Poller: a.newPoller(a.cfg.Client.DeployAttempts, nil)}),
				workflow.WithRecords(records, a.cfg.Client.Endpoint),
				workflow.WithWorkchain(a.cfg.Client.Workchain),
				workflow.WithDeployLogger(a.log),
			)
			res, err := deployer.Deploy(ctx, req)
			if res != nil {
				a.field("Contract address", res.Address)
			}
			if err != nil {
				return err
			}

			a.field("ID", res.ID)
			a.successf("Counter deployed successfully!")
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "counter id (random in [0, 10000) when omitted)")
	cmd.Flags().StringVar(&value, "value", "", "coins attached to the deploy message")
	cmd.Flags().StringVarP(&codeFile, "code", "f", "", "contract wasm file (bundled contract when omitted)")
	return cmd
}
