// Package fallback runs independent fetches that each carry a documented
// default.  A failed, empty or unfinished fetch yields its default instead
// of an error, and the reason is reported to an observer so the swallowed
// failure stays visible in logs and metrics.
package fallback

import (
	"context"
	"errors"
	"sync"
)

// Reason explains why a default was used.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonError   Reason = "error"
	ReasonEmpty   Reason = "empty"
	ReasonTimeout Reason = "timeout"
	ReasonSkipped Reason = "skipped"
)

// ErrEmpty may be returned by a fetch to ask for the default explicitly,
// e.g. when a single-row lookup found nothing.
var ErrEmpty = errors.New("fallback: empty result")

// Result is the outcome of one section: the value to render and, when it is
// the default, why.
type Result[T any] struct {
	Value  T
	Reason Reason
	Err    error
}

// Defaulted reports whether Value is the section default.
func (r Result[T]) Defaulted() bool { return r.Reason != ReasonNone }

// Observer is told about every defaulted section.
type Observer func(section string, reason Reason, err error)

// Group starts sections concurrently and waits for them up to the deadline
// of its context.
type Group struct {
	ctx      context.Context
	wg       sync.WaitGroup
	observer Observer
	done     chan struct{}
	once     sync.Once
}

// NewGroup returns a group bound to ctx.  The deadline of ctx caps Wait.
func NewGroup(ctx context.Context, observer Observer) *Group {
	if observer == nil {
		observer = func(string, Reason, error) {}
	}
	return &Group{ctx: ctx, observer: observer, done: make(chan struct{})}
}

// Context returns the context handed to fetch functions.
func (g *Group) Context() context.Context { return g.ctx }

// Wait blocks until every section finished or the group context ends.  It
// returns false when the context ended first; unfinished sections then
// resolve to their defaults.
func (g *Group) Wait() bool {
	g.once.Do(func() {
		go func() {
			g.wg.Wait()
			close(g.done)
		}()
	})
	select {
	case <-g.done:
		return true
	case <-g.ctx.Done():
		select {
		case <-g.done:
			return true
		default:
			return false
		}
	}
}

// Section is a value that is being fetched in the background.
type Section[T any] struct {
	name     string
	def      T
	observer Observer
	done     chan struct{}
	res      Result[T]
}

// Go starts fetch for the named section.  empty, when non-nil, decides
// whether a successful value should still be replaced by def.
func Go[T any](g *Group, name string, def T, fetch func(context.Context) (T, error), empty func(T) bool) *Section[T] {
	s := &Section[T]{name: name, def: def, observer: g.observer, done: make(chan struct{})}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer close(s.done)
		defer func() {
			if p := recover(); p != nil {
				s.res = Result[T]{Value: def, Reason: ReasonError, Err: errors.New("panic in section fetch")}
			}
		}()
		v, err := fetch(g.ctx)
		switch {
		case errors.Is(err, ErrEmpty):
			s.res = Result[T]{Value: def, Reason: ReasonEmpty}
		case err != nil:
			s.res = Result[T]{Value: def, Reason: ReasonError, Err: err}
		case empty != nil && empty(v):
			s.res = Result[T]{Value: def, Reason: ReasonEmpty}
		default:
			s.res = Result[T]{Value: v}
		}
	}()
	return s
}

// Skip returns a section that is already resolved to its default.  It is
// used when a precondition of the fetch (such as a known customer id) is
// missing.
func Skip[T any](g *Group, name string, def T) *Section[T] {
	s := &Section[T]{name: name, def: def, observer: g.observer, done: make(chan struct{})}
	s.res = Result[T]{Value: def, Reason: ReasonSkipped}
	close(s.done)
	return s
}

// Result returns the finished result, or the default with ReasonTimeout
// when the fetch is still running.  The observer is notified once per call
// for defaulted results.
func (s *Section[T]) Result() Result[T] {
	var r Result[T]
	select {
	case <-s.done:
		r = s.res
	default:
		r = Result[T]{Value: s.def, Reason: ReasonTimeout}
	}
	if r.Defaulted() {
		s.observer(s.name, r.Reason, r.Err)
	}
	return r
}

// Value is Result().Value.
func (s *Section[T]) Value() T { return s.Result().Value }
