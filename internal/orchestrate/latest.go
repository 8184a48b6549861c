// Package orchestrate coordinates backend fetches: parallel fan-out,
// debouncing of bursty parameter changes, and discarding of responses that a
// newer request has superseded.
package orchestrate

import (
	"context"
	"sync"
)

// Latest implements last-request-wins. Every Begin supersedes (and cancels)
// the request before it.
type Latest struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc

	deliverMu sync.Mutex
}

// Ticket identifies one request handed out by Latest.
type Ticket struct {
	owner  *Latest
	seq    uint64
	cancel context.CancelFunc
}

// Begin starts a new request derived from parent and cancels the previous
// one. The returned context is cancelled when the ticket is superseded or
// finished.
func (l *Latest) Begin(parent context.Context) (context.Context, *Ticket) {
	ctx, cancel := context.WithCancel(parent)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	l.cancel = cancel
	t := &Ticket{owner: l, seq: l.seq, cancel: cancel}
	l.mu.Unlock()

	return ctx, t
}

// Current reports whether no newer request has begun since t.
func (t *Ticket) Current() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.owner.seq == t.seq
}

// Deliver runs fn only if t is still the newest request. Deliveries are
// serialized, so a request that begins after t passed the check delivers
// after fn returns. fn must not call Deliver.
func (l *Latest) Deliver(t *Ticket, fn func()) bool {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()
	if !t.Current() {
		return false
	}
	fn()
	return true
}

// Finish releases the ticket's context.
func (t *Ticket) Finish() {
	t.cancel()
}

// Stop cancels whatever request is in flight.
func (l *Latest) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.seq++
}

// Run executes fn as the newest request. fresh is false when another request
// began before fn returned, in which case the result must be discarded. A
// newer request may still begin after the check; callers that hand results
// on in order use Begin and Deliver instead.
func Run[T any](ctx context.Context, l *Latest, fn func(context.Context) (T, error)) (result T, fresh bool, err error) {
	rctx, ticket := l.Begin(ctx)
	defer ticket.Finish()

	result, err = fn(rctx)
	if !ticket.Current() {
		var zero T
		return zero, false, nil
	}
	return result, true, err
}
