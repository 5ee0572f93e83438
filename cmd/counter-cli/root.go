package main

import (
	"context"
	"fmt"
	"io"

	"github.com/govm-net/counter/config"
	"github.com/govm-net/counter/contract"
	"github.com/govm-net/counter/logging"
	"github.com/govm-net/counter/metrics"
	"github.com/govm-net/counter/poller"
	"github.com/govm-net/counter/repository"
	"github.com/govm-net/counter/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the state shared by every command
type app struct {
	out io.Writer

	cfgFile  string
	endpoint string
	sender   string
	logLevel string

	cfg      *config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	polls    *metrics.PollObserver
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, log: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "counter-cli",
		Short: "Counter contract command line tool",
		Long: `Counter contract command line tool for deploying counters, incrementing them
and running a local counter node.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "YAML configuration file")
	flags.StringVarP(&a.endpoint, "endpoint", "e", "", "node endpoint")
	flags.StringVarP(&a.sender, "sender", "s", "", "treasury that signs and funds messages")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		a.deployCmd(),
		a.incrementCmd(),
		a.stateCmd(),
		a.txsCmd(),
		a.nodeCmd(),
		a.inspectCmd(),
	)
	return rootCmd
}

// setup loads the configuration and applies the global flags over it
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Client.Endpoint = a.endpoint
	}
	if flags.Changed("sender") {
		cfg.Client.Sender = a.sender
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.registry = prometheus.NewRegistry()
	if a.polls, err = metrics.NewPollObserver(a.registry); err != nil {
		return err
	}
	a.log, err = logging.New(cfg.LogLevel)
	return err
}

func (a *app) client() *rpc.JSONRPCClient {
	return rpc.NewJSONRPCClient(a.cfg.Client.Endpoint, nil)
}

// treasury resolves the configured sender on the node
func (a *app) treasury(ctx context.Context, cli *rpc.JSONRPCClient) (contract.Sender, error) {
	t, err := cli.Treasury(ctx, a.cfg.Client.Sender)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender %q: %w", a.cfg.Client.Sender, err)
	}
	return contract.SenderAddress(t.Address), nil
}

func (a *app) records() (*repository.Manager, error) {
	return repository.NewManager(a.cfg.Client.DeploymentsDir)
}

// newPoller builds a poller from the client config. Every attempt is counted
// in the client metrics and also reported to observer when it is non-nil.
func (a *app) newPoller(maxAttempts int, observer poller.Observer, opts ...poller.Option) *poller.Poller {
	opts = append([]poller.Option{
		poller.WithInterval(a.cfg.Client.PollInterval),
		poller.WithMaxAttempts(maxAttempts),
		poller.WithTimeout(a.cfg.Client.Timeout),
		poller.WithObserver(poller.Multi(a.polls, observer)),
	}, opts...)
	return poller.New(opts...)
}

// writeMetrics dumps the client metrics to the configured file
func (a *app) writeMetrics() {
	if a.cfg.Client.MetricsFile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(a.cfg.Client.MetricsFile, a.registry); err != nil {
		a.log.Warn("failed to write metrics", zap.String("file", a.cfg.Client.MetricsFile), zap.Error(err))
	}
}
