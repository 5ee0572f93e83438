package rpc

import (
	"errors"

	"github.com/govm-net/counter/chain"
	"github.com/govm-net/counter/core"
	"github.com/gorilla/rpc/v2/json2"
)

// Application error codes carried in JSON-RPC error responses
const (
	ErrorCodeNotFound         json2.ErrorCode = -32004
	ErrorCodeInvalidMessage   json2.ErrorCode = -32005
	ErrorCodeDuplicateMessage json2.ErrorCode = -32006
)

var ErrUnexpectedStatus = errors.New("unexpected http status")

var codeErrors = map[json2.ErrorCode]error{
	ErrorCodeNotFound:         core.ErrNotFound,
	ErrorCodeInvalidMessage:   chain.ErrInvalidMessage,
	ErrorCodeDuplicateMessage: chain.ErrDuplicateMessage,
}

// encodeError attaches an error code to the sentinels clients can match on
func encodeError(err error) error {
	if err == nil {
		return nil
	}
	for code, sentinel := range codeErrors {
		if errors.Is(err, sentinel) {
			return &json2.Error{Code: code, Message: err.Error()}
		}
	}
	return err
}

// remoteError restores a sentinel on the client side
type remoteError struct {
	err error
	msg string
}

func (e *remoteError) Error() string {
	return e.msg
}

func (e *remoteError) Unwrap() error {
	return e.err
}

func decodeError(e *json2.Error) error {
	if sentinel, ok := codeErrors[e.Code]; ok {
		return &remoteError{err: sentinel, msg: e.Message}
	}
	return e
}
