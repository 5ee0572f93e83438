package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig       = errors.New("invalid config")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNotDeployed         = errors.New("contract not deployed")
	ErrDeployConflict      = errors.New("deploy conflict")
	ErrDeployTimeout       = errors.New("deploy timeout")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrTransport           = errors.New("transport error")

	// ErrNotFound is returned by transports when no state exists at an address
	ErrNotFound = errors.New("not found")
)

// TransportError wraps a failure of the remote collaborator. It matches both
// ErrTransport and the underlying cause with errors.Is.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransport, e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// NewTransportError wraps err unless it is nil or already a transport error
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
