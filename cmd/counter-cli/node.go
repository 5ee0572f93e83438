package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/govm-net/counter/chain"
	"github.com/govm-net/counter/chain/store"
	_ "github.com/govm-net/counter/chain/store/db"
	_ "github.com/govm-net/counter/chain/store/memory"
	"github.com/govm-net/counter/config"
	"github.com/govm-net/counter/metrics"
	"github.com/govm-net/counter/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func (a *app) nodeCmd() *cobra.Command {
	var (
		listen        string
		storeType     string
		dbPath        string
		autoSeal      bool
		blockInterval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Run a local counter chain with a JSON-RPC endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := &a.cfg.Node
			flags := cmd.Flags()
			if flags.Changed("listen") {
				cfg.Listen = listen
			}
			if flags.Changed("store") {
				cfg.Store = storeType
			}
			if flags.Changed("db-path") {
				cfg.DBPath = dbPath
			}
			if flags.Changed("auto-seal") {
				cfg.AutoSeal = autoSeal
			}
			if flags.Changed("block-interval") {
				cfg.BlockInterval = blockInterval
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runNode(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address the JSON-RPC server listens on")
	cmd.Flags().StringVar(&storeType, "store", "", "ledger store (memory or db)")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "sqlite file used by the db store")
	cmd.Flags().BoolVar(&autoSeal, "auto-seal", false, "seal a block after every message")
	cmd.Flags().DurationVar(&blockInterval, "block-interval", 0, "time between blocks")
	return cmd
}

func (a *app) runNode(ctx context.Context, cfg *config.NodeConfig) error {
	st, err := store.Open(store.Type(cfg.Store), map[string]any{"db_path": cfg.DBPath})
	if err != nil {
		return err
	}
	balance, err := cfg.Balance()
	if err != nil {
		st.Close()
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.NewChain(registry)
	if err != nil {
		st.Close()
		return err
	}

	opts := []chain.Option{
		chain.WithLogger(a.log),
		chain.WithMetrics(m),
		chain.WithTreasuryBalance(balance),
		chain.WithWorkchain(cfg.Workchain),
	}
	if cfg.AutoSeal {
		opts = append(opts, chain.WithAutoSeal())
	}
	c, err := chain.New(ctx, st, opts...)
	if err != nil {
		st.Close()
		return err
	}
	defer c.Close(context.Background())

	handler, err := rpc.NewHandler(c, registry, cfg.AllowedOrigins, a.log)
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	server := rpc.NewServer(listener, handler, a.log)

	a.field("Listening", listener.Addr())
	a.field("Store", cfg.Store)
	a.log.Info("node started",
		zap.String("store", cfg.Store),
		zap.Duration("blockInterval", cfg.BlockInterval),
		zap.Bool("autoSeal", cfg.AutoSeal),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Dispatch)
	g.Go(func() error {
		return c.Run(gctx, cfg.BlockInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
