package db

import (
	"path/filepath"
	"testing"

	"github.com/govm-net/counter/chain/store"
	"github.com/govm-net/counter/chain/store/storetest"
	"github.com/govm-net/counter/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Store {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return setupTestDB(t)
	})
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	addr := core.NamedAddress("counter")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.PutAccount(&store.Account{
		Address: addr,
		Code:    []byte{0},
		State:   &core.CounterState{ID: 3, Counter: 12},
	}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	acc, err := s.GetAccount(addr)
	require.NoError(t, err)
	assert.Equal(t, core.CounterState{ID: 3, Counter: 12}, *acc.State)
}

func TestRegistered(t *testing.T) {
	s, err := store.Open(store.DBType, map[string]any{
		"db_path": filepath.Join(t.TempDir(), "registry.db"),
	})
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &Store{}, s)
}
