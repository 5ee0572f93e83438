// Package core defines the types shared by the counter client, the simulated
// chain and the transport between them.
package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the size of an Address in bytes
const AddressLength = 20

// Address locates an account on the chain
type Address [AddressLength]byte

// Hash identifies messages, transactions and blocks
type Hash [32]byte

var (
	ZeroAddress = Address{}
	ZeroHash    = Hash{}
)

func (addr Address) String() string {
	return hex.EncodeToString(addr[:])
}

// IsZero reports whether addr is the zero address
func (addr Address) IsZero() bool {
	return addr == ZeroAddress
}

// MarshalText implements encoding.TextMarshaler so addresses travel as hex in JSON
func (addr Address) MarshalText() ([]byte, error) {
	return []byte(addr.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (addr *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*addr = parsed
	return nil
}

// ParseAddress decodes a hex address, with or without the 0x prefix
func ParseAddress(s string) (Address, error) {
	var addr Address

	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != AddressLength*2 {
		return addr, fmt.Errorf("invalid address length %d: %q", len(s), s)
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}

	copy(addr[:], b)
	return addr, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// MarshalText implements encoding.TextMarshaler
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (h *Hash) UnmarshalText(text []byte) error {
	*h = HashFromString(string(text))
	return nil
}

// HashFromString decodes a hex hash. Invalid input yields ZeroHash.
func HashFromString(str string) Hash {
	str = strings.TrimPrefix(str, "0x")
	b, err := hex.DecodeString(str)
	if err != nil {
		return ZeroHash
	}
	var out Hash
	copy(out[:], b)
	return out
}

// GetHash returns the sha256 digest of data
func GetHash(data []byte) Hash {
	return sha256.Sum256(data)
}

// NamedAddress derives a stable address from a human readable name.
// Treasuries are addressed this way.
func NamedAddress(name string) Address {
	h := GetHash([]byte("treasury:" + name))
	var addr Address
	copy(addr[:], h[:AddressLength])
	return addr
}
