package chain

import "errors"

var (
	ErrInvalidMessage   = errors.New("invalid message")
	ErrDuplicateMessage = errors.New("duplicate message")
	ErrEmptyTreasury    = errors.New("treasury name is empty")
)
