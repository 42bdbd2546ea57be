// Package runtime runs the widget: one store goroutine reducing actions in
// arrival order, plus tasks that turn state changes into I/O and feed the
// results back as actions.
package runtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/daidex/pkg/app/widget"
)

// Change is published after every reduced action. The first change a
// subscriber sees has a zero Prev and a nil Action.
type Change struct {
	Prev   widget.State
	State  widget.State
	Action widget.Action
}

type Store struct {
	inbox *Mailbox[widget.Action]
	log   *zap.SugaredLogger

	mu    sync.RWMutex
	state widget.State
	subs  []*Mailbox[Change]
}

func NewStore(initial widget.State, log *zap.SugaredLogger) *Store {
	return &Store{
		inbox: NewMailbox[widget.Action](),
		log:   log,
		state: initial,
	}
}

// Dispatch queues an action; it never blocks.
func (s *Store) Dispatch(a widget.Action) {
	if !s.inbox.Push(a) {
		s.log.Debugw("action_dropped", "action", a.ActionName(), "reason", "store_stopped")
	}
}

func (s *Store) State() widget.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe returns a mailbox receiving every change from now on, starting
// with the current state.
func (s *Store) Subscribe() *Mailbox[Change] {
	mb := NewMailbox[Change]()
	s.mu.Lock()
	defer s.mu.Unlock()
	mb.Push(Change{State: s.state})
	s.subs = append(s.subs, mb)
	return mb
}

// Run reduces queued actions one at a time until ctx ends.
func (s *Store) Run(ctx context.Context) error {
	defer s.inbox.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.inbox.Notify():
		}
		for _, a := range s.inbox.Drain() {
			s.reduce(a)
		}
	}
}

func (s *Store) reduce(a widget.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	next := widget.Reduce(prev, a)
	s.state = next
	for _, sub := range s.subs {
		sub.Push(Change{Prev: prev, State: next, Action: a})
	}
	if prev.Screen != next.Screen {
		s.log.Infow("screen_changed", "action", a.ActionName(), "from", prev.Screen, "to", next.Screen)
	}
}
