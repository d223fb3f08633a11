package eventsvc

import (
	"context"
	"sync"

	"github.com/trezcool/elimu/core/course"
)

// Nop drops every event. It is used when no Redis is configured.
type Nop struct{}

var _ course.Publisher = Nop{}

func (Nop) Publish(context.Context, course.Event) error { return nil }

// Recorder keeps every published event in memory, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []course.Event
}

var _ course.Publisher = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, evt course.Event) error {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Events() []course.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]course.Event{}, r.events...)
}

// Kinds lists the kinds of the recorded events, in order.
func (r *Recorder) Kinds() []course.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]course.EventKind, 0, len(r.events))
	for _, evt := range r.events {
		kinds = append(kinds, evt.Kind)
	}
	return kinds
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
