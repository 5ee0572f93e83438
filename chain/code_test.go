package chain

import (
	"context"
	"testing"

	"github.com/govm-net/counter/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyModule is a valid wasm module without any functions
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func TestCodeValidator(t *testing.T) {
	ctx := context.Background()
	v := NewCodeValidator(ctx, 0)
	defer v.Close(ctx)

	tests := []struct {
		name    string
		code    []byte
		wantErr string
	}{
		{name: "counter", code: contract.Code()},
		{name: "empty", code: nil, wantErr: "cannot be empty"},
		{name: "garbage", code: []byte("not wasm"), wantErr: "failed to compile"},
		{name: "missing exports", code: emptyModule, wantErr: `does not export "increase"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(ctx, tt.code)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			// cached result is the same
			assert.Equal(t, err, v.Validate(ctx, tt.code))
		})
	}
}

func TestCodeValidatorMaxSize(t *testing.T) {
	ctx := context.Background()
	v := NewCodeValidator(ctx, len(emptyModule))
	defer v.Close(ctx)

	err := v.Validate(ctx, contract.Code())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
}

func TestInspectCode(t *testing.T) {
	info, err := InspectCode(context.Background(), contract.Code())
	require.NoError(t, err)

	names := make([]string, 0, len(info.Exports))
	for _, fn := range info.Exports {
		names = append(names, fn.Name)
		assert.Empty(t, fn.Params)
		assert.Empty(t, fn.Results)
	}
	assert.Equal(t, []string{"get_counter", "get_id", "increase"}, names)
	assert.Empty(t, info.Imports)

	_, err = InspectCode(context.Background(), []byte{1, 2, 3})
	assert.Error(t, err)
}
