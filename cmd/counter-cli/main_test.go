package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/govm-net/counter/chain"
	"github.com/govm-net/counter/chain/chaintest"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/repository"
	"github.com/govm-net/counter/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type testEnv struct {
	chain       *chain.Chain
	config      string
	deployments string
	metrics     string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	c := chaintest.NewSandbox(t)
	handler, err := rpc.NewHandler(c, nil, []string{"*"}, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	env := &testEnv{
		chain:       c,
		config:      filepath.Join(dir, "config.yaml"),
		deployments: filepath.Join(dir, "deployments"),
		metrics:     filepath.Join(dir, "client.prom"),
	}
	content := fmt.Sprintf(`logLevel: error
client:
  endpoint: %s
  sender: deployer
  pollInterval: 10ms
  maxAttempts: 20
  deploymentsDir: %s
  metricsFile: %s
`, srv.URL, env.deployments, env.metrics)
	require.NoError(t, os.WriteFile(env.config, []byte(content), 0644))
	return env
}

func (e *testEnv) run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestDeployIncrement(t *testing.T) {
	env := setupEnv(t)

	out, err := env.run("deploy", "--id", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "ID: 42")
	assert.Contains(t, out, "Counter deployed successfully!")

	records, err := repository.NewManager(env.deployments)
	require.NoError(t, err)
	latest, err := records.Latest()
	require.NoError(t, err)
	assert.Contains(t, out, latest.Address.String())
	addr := latest.Address.String()

	out, err = env.run("increment", addr, "--by", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Waiting for counter to increase...")
	assert.Contains(t, out, "Attempt 1")
	assert.Contains(t, out, "Counter before: 0")
	assert.Contains(t, out, "Counter after: 3")
	assert.Contains(t, out, "Counter increased successfully!")

	state, err := env.chain.GetState(context.Background(), latest.Address)
	require.NoError(t, err)
	assert.Equal(t, core.CounterState{ID: 42, Counter: 3}, *state)

	out, err = env.run("state", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "ID: 42")
	assert.Contains(t, out, "Counter: 3")
	assert.Contains(t, out, "Balance: 0.1")

	out, err = env.run("txs", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "Deploy")
	assert.Contains(t, out, "Increase")
}

func TestClientMetrics(t *testing.T) {
	env := setupEnv(t)
	_, err := env.run("deploy", "--id", "7")
	require.NoError(t, err)
	addr, err := env.latest()
	require.NoError(t, err)
	_, err = env.run("increment", addr.String())
	require.NoError(t, err)

	data, err := os.ReadFile(env.metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "counter_client_poll_attempts")
}

func TestIncrementNotDeployed(t *testing.T) {
	env := setupEnv(t)
	addr := core.NamedAddress("missing")

	out, err := env.run("increment", addr.String())
	assert.ErrorIs(t, err, core.ErrNotDeployed)
	assert.Contains(t, out, fmt.Sprintf("Error: Contract at address %s is not deployed!", addr))

	_, err = env.run("state", addr.String())
	assert.ErrorIs(t, err, core.ErrNotDeployed)

	_, err = env.run("increment", "not-an-address")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	env := setupEnv(t)

	out, err := env.run("inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "increase()")
	assert.Contains(t, out, "get_counter()")
	assert.Contains(t, out, "Counter interface: ok")

	path := filepath.Join(t.TempDir(), "empty.wasm")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, 0644))
	out, err = env.run("inspect", "--code", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Not a counter contract")
}

func TestInvalidFlags(t *testing.T) {
	env := setupEnv(t)

	_, err := env.run("--log-level", "loud", "inspect")
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = env.run("deploy", "--value", "abc")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestIncrementZero(t *testing.T) {
	env := setupEnv(t)
	_, err := env.run("deploy", "--id", "5")
	require.NoError(t, err)
	addr, err := env.latest()
	require.NoError(t, err)

	_, err = env.run("increment", addr.String(), "--by", "0", "--value", "0")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	state, err := env.chain.GetState(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.Counter)
	balance, err := env.chain.Balance(addr)
	require.NoError(t, err)
	assert.Equal(t, core.MustToNano("0.05"), balance)
}

func (e *testEnv) latest() (core.Address, error) {
	records, err := repository.NewManager(e.deployments)
	if err != nil {
		return core.ZeroAddress, err
	}
	d, err := records.Latest()
	if err != nil {
		return core.ZeroAddress, err
	}
	return d.Address, nil
}
