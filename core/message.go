package core

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// MessageKind selects the operation a message asks the counter to perform
type MessageKind uint8

const (
	KindDeploy MessageKind = iota + 1
	KindIncrease
)

func (k MessageKind) String() string {
	switch k {
	case KindDeploy:
		return "deploy"
	case KindIncrease:
		return "increase"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Message is a request submitted to the chain. It is the logical form of both
// the submit-deploy and the submit-increment requests.
type Message struct {
	Kind       MessageKind `json:"kind"`
	From       Address     `json:"from"`
	To         Address     `json:"to"`
	Value      Coins       `json:"value"`
	QueryID    uint64      `json:"queryId"`
	Init       *StateInit  `json:"init,omitempty"`
	IncreaseBy int64       `json:"increaseBy,omitempty"`
}

// Hash returns the message identifier. Two messages with the same fields have
// the same hash, so callers vary QueryID to submit the same request twice.
func (m *Message) Hash() Hash {
	h := sha256.New()
	var buf [8]byte

	h.Write([]byte{byte(m.Kind)})
	h.Write(m.From[:])
	h.Write(m.To[:])
	binary.BigEndian.PutUint64(buf[:], uint64(m.Value))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], m.QueryID)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(m.IncreaseBy))
	h.Write(buf[:])
	if m.Init != nil {
		codeHash := sha256.Sum256(m.Init.Code)
		h.Write(codeHash[:])
		h.Write(m.Init.Data.Encode())
	}

	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
