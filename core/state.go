package core

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
)

// stateDataSize is the encoded size of CounterState: id and counter, big-endian
const stateDataSize = 16

// DefaultWorkchain is the network discriminator mixed into derived addresses
const DefaultWorkchain int8 = 0

// CounterState is the persistent data of a counter contract
type CounterState struct {
	ID      int64 `json:"id"`
	Counter int64 `json:"counter"`
}

// Validate checks the state invariants
func (s CounterState) Validate() error {
	if s.Counter < 0 {
		return fmt.Errorf("%w: negative counter %d", ErrInvalidConfig, s.Counter)
	}
	return nil
}

// Encode returns the fixed binary layout used for address derivation
func (s CounterState) Encode() []byte {
	b := make([]byte, stateDataSize)
	binary.BigEndian.PutUint64(b[0:8], uint64(s.ID))
	binary.BigEndian.PutUint64(b[8:16], uint64(s.Counter))
	return b
}

// DecodeCounterState is the inverse of CounterState.Encode
func DecodeCounterState(b []byte) (CounterState, error) {
	if len(b) != stateDataSize {
		return CounterState{}, errors.New("invalid counter state encoding")
	}
	return CounterState{
		ID:      int64(binary.BigEndian.Uint64(b[0:8])),
		Counter: int64(binary.BigEndian.Uint64(b[8:16])),
	}, nil
}

// StateInit is what a deploy message carries: the contract code and its
// initial data
type StateInit struct {
	Code []byte       `json:"code"`
	Data CounterState `json:"data"`
}

// DeriveAddress computes the address a StateInit deploys to. The result only
// depends on its inputs.
func DeriveAddress(workchain int8, init StateInit) Address {
	codeHash := sha256.Sum256(init.Code)

	h := sha256.New()
	h.Write([]byte{byte(workchain)})
	h.Write(codeHash[:])
	h.Write(init.Data.Encode())

	var addr Address
	copy(addr[:], h.Sum(nil)[:AddressLength])
	return addr
}
