// Package poller waits for a remotely submitted change to become observable.
//
// The remote side offers no notifications, so every attempt is a full re-read
// compared by value against the baseline read before the submission. Polling
// is unbounded unless a cap or a timeout is configured.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/govm-net/counter/core"
)

// DefaultInterval is the pause between two reads
const DefaultInterval = 2 * time.Second

// Poller holds the polling policy
type Poller struct {
	interval    time.Duration
	maxAttempts int
	timeout     time.Duration
	observer    Observer
}

// Option configures a Poller
type Option func(*Poller)

// WithInterval sets the pause between reads
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithMaxAttempts caps the number of reads. Zero means unbounded.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		p.maxAttempts = n
	}
}

// WithTimeout bounds the total wait. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(p *Poller) {
		p.timeout = d
	}
}

// WithObserver sets the progress observer
func WithObserver(o Observer) Option {
	return func(p *Poller) {
		p.observer = o
	}
}

// New creates a Poller
func New(opts ...Option) *Poller {
	p := &Poller{
		interval: DefaultInterval,
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.observer == nil {
		p.observer = NopObserver{}
	}
	if p.maxAttempts < 0 {
		p.maxAttempts = 0
	}
	return p
}

// Interval returns the pause between reads
func (p *Poller) Interval() time.Duration { return p.interval }

// MaxAttempts returns the read cap, zero when unbounded
func (p *Poller) MaxAttempts() int { return p.maxAttempts }

// Result is the outcome of a successful wait
type Result[T any] struct {
	Value    T
	Attempts int
}

// ConfirmationTimeoutError is returned when the cap or the deadline is hit
// before the value changed
type ConfirmationTimeoutError struct {
	Attempts int
	Last     any
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("%s after %d attempts, last observed value %v", core.ErrConfirmationTimeout, e.Attempts, e.Last)
}

func (e *ConfirmationTimeoutError) Unwrap() error {
	return core.ErrConfirmationTimeout
}

// WaitForChange reads until the value differs from baseline. The first read
// happens immediately. Read errors end the wait and are returned as is.
// Cancelling ctx stops waiting; it does not undo anything already submitted.
func WaitForChange[T comparable](
	ctx context.Context,
	p *Poller,
	baseline T,
	read func(context.Context) (T, error),
) (Result[T], error) {
	if p == nil {
		p = New()
	}

	waitCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var (
		last     = baseline
		attempts int
		timer    *time.Timer
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if p.maxAttempts > 0 && attempts >= p.maxAttempts {
			return Result[T]{}, &ConfirmationTimeoutError{Attempts: attempts, Last: last}
		}

		if attempts > 0 {
			if timer == nil {
				timer = time.NewTimer(p.interval)
			} else {
				timer.Reset(p.interval)
			}
			select {
			case <-timer.C:
			case <-waitCtx.Done():
				return Result[T]{}, stopped(ctx, attempts, last)
			}
		} else if waitCtx.Err() != nil {
			return Result[T]{}, stopped(ctx, attempts, last)
		}

		attempts++
		p.observer.OnAttempt(attempts)

		value, err := read(waitCtx)
		if err != nil {
			// the deadline may surface through the read itself
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && waitCtx.Err() != nil {
				return Result[T]{}, &ConfirmationTimeoutError{Attempts: attempts, Last: last}
			}
			return Result[T]{}, err
		}
		last = value
		if value != baseline {
			return Result[T]{Value: value, Attempts: attempts}, nil
		}
	}
}

// stopped distinguishes the caller cancelling from the poll deadline expiring
func stopped(parent context.Context, attempts int, last any) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("confirmation wait aborted after %d attempts: %w", attempts, err)
	}
	return &ConfirmationTimeoutError{Attempts: attempts, Last: last}
}
