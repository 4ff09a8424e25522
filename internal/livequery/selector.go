// Package livequery maintains one live subscription per logical query
// target and degrades from the server-ordered query shape to a filter-only
// fallback when the backend cannot serve the richer shape.
package livequery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

type State int32

const (
	StateUnsubscribed State = iota
	StateSubscribedPreferred
	StateSubscribedFallback
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnsubscribed:
		return "unsubscribed"
	case StateSubscribedPreferred:
		return "subscribed_preferred"
	case StateSubscribedFallback:
		return "subscribed_fallback"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Subscription is what the selector manages: a stream of wholesale
// snapshots plus an error channel, released via Close.
type Subscription[T any] interface {
	Snapshots() <-chan []T
	Errs() <-chan error
	Close()
}

type SubscribeFunc[T any] func(ctx context.Context) (Subscription[T], error)

// Config fixes one target. The identifying parameters (user id, room id)
// are captured inside the subscribe funcs; when they change, the owner
// closes this selector and builds a new one rather than mutating it.
type Config[T any] struct {
	// Preferred opens the subscription with server-side ordering.
	Preferred SubscribeFunc[T]
	// Fallback opens the same filter without the ordering clause.
	Fallback SubscribeFunc[T]
	// Sort recovers the preferred order client-side; applied to every
	// snapshot delivered while in the fallback state.
	Sort func([]T)
	// Degradable classifies the missing-index error class. Any error
	// outside this class is terminal for the target.
	Degradable func(error) bool
}

var errNilSubscribe = errors.New("livequery: preferred and fallback subscribe funcs are required")

// Selector owns at most one live subscription at a time. It degrades at
// most once, never retries after a terminal error, and releases the
// current subscription on every exit path.
type Selector[T any] struct {
	cfg       Config[T]
	snapshots chan []T
	done      chan struct{}
	cancel    context.CancelFunc
	state     atomic.Int32

	mu  sync.Mutex
	err error
}

func New[T any](cfg Config[T]) (*Selector[T], error) {
	if cfg.Preferred == nil || cfg.Fallback == nil {
		return nil, errNilSubscribe
	}
	if cfg.Degradable == nil {
		cfg.Degradable = func(error) bool { return false }
	}
	return &Selector[T]{
		cfg:       cfg,
		snapshots: make(chan []T),
		done:      make(chan struct{}),
	}, nil
}

// Start enters the target. Snapshots arrive on Snapshots until the context
// is cancelled, Close is called, or the target fails terminally.
func (s *Selector[T]) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(ctx)
}

// Snapshots delivers each new list for the target. The channel is closed
// on teardown and on terminal failure; check Err afterwards.
func (s *Selector[T]) Snapshots() <-chan []T {
	return s.snapshots
}

// Done is closed once the selector has fully released its subscription.
func (s *Selector[T]) Done() <-chan struct{} {
	return s.done
}

// Err reports the terminal error, if any, once Done is closed.
func (s *Selector[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Selector[T]) State() State {
	return State(s.state.Load())
}

// Close releases the live subscription. Safe to call concurrently with
// delivery; idempotent.
func (s *Selector[T]) Close() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Selector[T]) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.snapshots)

	fallback := false
	sub, err := s.open(ctx, fallback)
	if err != nil && s.cfg.Degradable(err) {
		fallback = true
		sub, err = s.open(ctx, fallback)
	}
	if err != nil {
		if ctx.Err() != nil {
			s.state.Store(int32(StateUnsubscribed))
			return
		}
		s.fail(err)
		return
	}

	snaps := sub.Snapshots()
	errs := sub.Errs()

	for {
		select {
		case <-ctx.Done():
			sub.Close()
			s.state.Store(int32(StateUnsubscribed))
			return

		case snapshot, ok := <-snaps:
			if !ok {
				// Producer closed without an error; wait for errs or teardown.
				snaps = nil
				continue
			}
			if fallback && s.cfg.Sort != nil {
				s.cfg.Sort(snapshot)
			}
			select {
			case s.snapshots <- snapshot:
			case <-ctx.Done():
				sub.Close()
				s.state.Store(int32(StateUnsubscribed))
				return
			}

		case err := <-errs:
			// Always release the current handle before deciding anything.
			sub.Close()
			if !fallback && s.cfg.Degradable(err) {
				fallback = true
				next, serr := s.open(ctx, fallback)
				if serr != nil {
					if ctx.Err() != nil {
						s.state.Store(int32(StateUnsubscribed))
						return
					}
					s.fail(serr)
					return
				}
				sub = next
				snaps = sub.Snapshots()
				errs = sub.Errs()
				continue
			}
			s.fail(err)
			return
		}
	}
}

func (s *Selector[T]) open(ctx context.Context, fallback bool) (Subscription[T], error) {
	if fallback {
		sub, err := s.cfg.Fallback(ctx)
		if err == nil {
			s.state.Store(int32(StateSubscribedFallback))
		}
		return sub, err
	}
	sub, err := s.cfg.Preferred(ctx)
	if err == nil {
		s.state.Store(int32(StateSubscribedPreferred))
	}
	return sub, err
}

func (s *Selector[T]) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.state.Store(int32(StateFailed))
}
