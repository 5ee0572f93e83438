package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/poller"
	"github.com/govm-net/counter/repository"
	"github.com/govm-net/counter/workflow"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ErrInputEmpty = errors.New("input is empty")

func (a *app) incrementCmd() *cobra.Command {
	var (
		by          int64
		value       string
		maxAttempts int
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "increment [address]",
		Short: "Increment a counter and wait for the new value",
		Long: `Increment a deployed counter and poll it until the change is visible.
The address is prompted for when omitted.
Example: counter-cli increment 1234567890abcdef1234567890abcdef12345678 --by 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				addr core.Address
				err  error
			)
			if len(args) > 0 {
				addr, err = core.ParseAddress(args[0])
			} else {
				addr, err = a.promptAddress("Counter address")
			}
			if err != nil {
				return err
			}

			if value == "" {
				value = a.cfg.Client.Value
			}
			coins, err := core.ToNano(value)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-attempts") {
				maxAttempts = a.cfg.Client.MaxAttempts
			}
			var pollOpts []poller.Option
			if cmd.Flags().Changed("timeout") {
				pollOpts = append(pollOpts, poller.WithTimeout(timeout))
			}

			cli := a.client()
			sender, err := a.treasury(ctx, cli)
			if err != nil {
				return err
			}

			defer a.writeMetrics()
			inc := workflow.NewIncrementer(cli, sender,
				workflow.WithPoller(a.newPoller(maxAttempts, consoleObserver{out: a.out}, pollOpts...)),
				workflow.WithSubmitted(func(core.Hash) {
					fmt.Fprintln(a.out, "Waiting for counter to increase...")
				}),
				workflow.WithIncrementLogger(a.log),
			)
			res, err := inc.Increment(ctx, workflow.IncrementRequest{
				Address:    addr,
				IncreaseBy: by,
				Value:      &coins,
			})
			switch {
			case errors.Is(err, core.ErrNotDeployed):
				a.errorf("Error: Contract at address %s is not deployed!", addr)
				return err
			case err != nil:
				var timeoutErr *poller.ConfirmationTimeoutError
				if errors.As(err, &timeoutErr) {
					a.errorf("Counter did not change after %d attempts, last value %v", timeoutErr.Attempts, timeoutErr.Last)
				}
				return err
			}

			a.field("Counter before", res.Before)
			a.field("Counter after", res.After)
			a.successf("Counter increased successfully!")
			return nil
		},
	}
	cmd.Flags().Int64Var(&by, "by", 1, "amount to add to the counter")
	cmd.Flags().StringVar(&value, "value", "", "coins attached to the increase message")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "give up after this many reads (0 = unbounded)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this duration, e.g. 30s")
	return cmd
}

// promptAddress asks for a counter address, defaulting to the last recorded
// deployment
func (a *app) promptAddress(label string) (core.Address, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if len(strings.TrimSpace(input)) == 0 {
				return ErrInputEmpty
			}
			_, err := core.ParseAddress(strings.TrimSpace(input))
			return err
		},
	}
	if records, err := a.records(); err == nil {
		latest, err := records.Latest()
		if err == nil {
			prompt.Default = latest.Address.String()
		} else if !errors.Is(err, repository.ErrNoDeployments) {
			a.log.Debug("failed to read deployments", zap.Error(err))
		}
	}

	input, err := prompt.Run()
	if err != nil {
		return core.ZeroAddress, err
	}
	return core.ParseAddress(strings.TrimSpace(input))
}
