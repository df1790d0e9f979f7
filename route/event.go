// route/event.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/flyplan/flyplan/log"
)

type EventType int

const (
	RouteChangedEvent EventType = iota
	ActiveLegChangedEvent
	StatusMessageEvent
)

func (t EventType) String() string {
	return []string{"RouteChanged", "ActiveLegChanged", "StatusMessage"}[t]
}

// Event is one change notification posted by the controller.
// GeometryChanged distinguishes edits that moved legs from cosmetic
// changes (names, altitudes) for RouteChangedEvent.
type Event struct {
	Type            EventType
	GeometryChanged bool
	ActiveLeg       int
	Message         string
}

func (e Event) String() string {
	return fmt.Sprintf("%s: geometry %v active %d message %q",
		e.Type, e.GeometryChanged, e.ActiveLeg, e.Message)
}

func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", e.Type.String())}
	if e.Type == RouteChangedEvent {
		attrs = append(attrs, slog.Bool("geometry", e.GeometryChanged))
	}
	if e.Type == ActiveLegChangedEvent {
		attrs = append(attrs, slog.Int("active_leg", e.ActiveLeg))
	}
	if e.Message != "" {
		attrs = append(attrs, slog.String("message", e.Message))
	}
	return slog.GroupValue(attrs...)
}

// EventStream provides a basic pub/sub event interface: the controller
// posts change notifications to the stream and any number of consumers
// subscribe and poll for them. The presentation layer hangs off this;
// the engine never depends on a subscriber being present.
type EventStream struct {
	mu            sync.Mutex
	lg            *log.Logger
	events        []Event
	lastCompact   time.Time
	subscriptions map[*EventsSubscription]interface{}
}

type EventsSubscription struct {
	stream *EventStream
	// offset is the position in the stream's event array up to which the
	// subscriber has consumed events so far.
	offset int
	source string
}

func NewEventStream(lg *log.Logger) *EventStream {
	return &EventStream{
		lg:            lg,
		subscriptions: make(map[*EventsSubscription]interface{}),
	}
}

// Subscribe registers a new subscriber; events posted before Subscribe
// are never reported to it.
func (e *EventStream) Subscribe() *EventsSubscription {
	// Record the subscriber's callsite, so that we can more easily debug
	// subscribers that aren't consuming events.
	_, fn, line, _ := runtime.Caller(1)
	source := fmt.Sprintf("%s:%d", fn, line)

	e.mu.Lock()
	defer e.mu.Unlock()

	sub := &EventsSubscription{
		stream: e,
		offset: len(e.events),
		source: source,
	}
	e.subscriptions[sub] = nil
	return sub
}

// Unsubscribe removes a subscriber from the subscriber list.
func (s *EventsSubscription) Unsubscribe() {
	s.stream.mu.Lock()
	defer s.stream.mu.Unlock()

	if _, ok := s.stream.subscriptions[s]; !ok {
		s.stream.lg.Errorf("attempted to unsubscribe invalid subscription: %+v", s)
	}
	delete(s.stream.subscriptions, s)
	s.stream = nil
}

// Post adds an event to the stream. It is dropped if no one is
// subscribed.
func (e *EventStream) Post(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lg.Debug("posted event", slog.Any("event", event))

	if len(e.subscriptions) > 0 {
		e.events = append(e.events, event)
	}
}

// Get returns all of the events posted since the subscriber's last Get.
func (s *EventsSubscription) Get() []Event {
	s.stream.mu.Lock()
	defer s.stream.mu.Unlock()

	if _, ok := s.stream.subscriptions[s]; !ok {
		s.stream.lg.Errorf("attempted to get with unregistered subscription: %+v", s)
		return nil
	}

	events := s.stream.events[s.offset:]
	s.offset = len(s.stream.events)

	if time.Since(s.stream.lastCompact) > 1*time.Second {
		s.stream.compact()
		s.stream.lastCompact = time.Now()
	}

	return events
}

// compact reclaims storage for events that all subscribers have seen; it
// is called periodically so that stream memory usage doesn't grow
// without bound.
func (e *EventStream) compact() {
	minOffset := len(e.events)
	for sub := range e.subscriptions {
		if sub.offset < minOffset {
			minOffset = sub.offset
		}
	}

	if len(e.events) > 1000 {
		e.lg.Warnf("EventStream length %d", len(e.events))
	}

	if minOffset > cap(e.events)/2 {
		n := len(e.events) - minOffset

		copy(e.events, e.events[minOffset:])
		e.events = e.events[:n]

		for sub := range e.subscriptions {
			sub.offset -= minOffset
		}
	}
}
