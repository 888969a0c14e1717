// Package eventbus implements the change-notification bus: an in-process
// observer that receives every store-write signal and fans it out to
// connected server-sent-event clients as ordered, numbered frames.
//
// internal/store never imports this package; it depends only on the
// narrow store.Sink interface, which Bus satisfies, so the store stays
// unaware of its subscribers.
package eventbus

import (
	"sync"

	"ims/internal/domain"
	"ims/internal/store"
)

// FrameClass names the entity a Frame describes, rendered as the SSE
// "event:" field.
type FrameClass string

const (
	// ClassInitial is written once per listener immediately on
	// subscribe, carrying the then-current counter value so the
	// client can detect gaps against a cached last-seen ID.
	ClassInitial FrameClass = "InitialEvent"
)

// Frame is one server-sent event: a monotonic ID, a class naming the
// touched entity, and a JSON-serializable data payload.
type Frame struct {
	ID    int64
	Class FrameClass
	Data  any
}

// InitialData is the payload of the ClassInitial frame.
type InitialData struct {
	LastEventID int64 `json:"last_event_id"`
}

// IncidentData is the payload of an Incident-class frame.
type IncidentData struct {
	EventID        domain.EventID        `json:"event_id"`
	IncidentNumber domain.IncidentNumber `json:"incident_number"`
}

// FieldReportData is the payload of a FieldReport-class frame.
type FieldReportData struct {
	EventID           domain.EventID          `json:"event_id"`
	FieldReportNumber domain.FieldReportNumber `json:"field_report_number"`
}

// Listener is one subscribed SSE client. C delivers frames in FIFO
// order; the bus buffers at most one frame per listener. A listener
// whose buffer is still full at the next Publish is removed by Publish
// itself and that frame is not delivered to it; Unsubscribe removes a
// listener explicitly.
type Listener struct {
	id uint64
	C  chan Frame
}

// Bus is the singleton per-process change-notification hub, always
// handed to collaborators as an injected store.Sink: tests substitute
// a recording Sink without touching the stores.
type Bus struct {
	mu        sync.Mutex
	counter   int64
	nextID    uint64
	listeners map[uint64]*Listener
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{listeners: make(map[uint64]*Listener)}
}

// Subscribe registers a new listener and immediately enqueues its
// InitialEvent frame carrying the current counter value.
func (b *Bus) Subscribe() *Listener {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	l := &Listener{id: b.nextID, C: make(chan Frame, 1)}
	b.listeners[l.id] = l

	l.C <- Frame{ID: b.counter, Class: ClassInitial, Data: InitialData{LastEventID: b.counter}}
	return l
}

// Unsubscribe removes a listener, e.g. on client disconnect.
func (b *Bus) Unsubscribe(l *Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, l.id)
}

// ListenerCount reports the number of currently subscribed listeners,
// for the ims_sse_listeners gauge.
func (b *Bus) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Publish implements store.Sink: it transmogrifies a store.WriteEvent
// into a Frame and pushes it, in order, to every surviving listener.
// A listener whose channel is still full (it hasn't drained the prior
// frame) is dropped rather than blocking the publisher — this is the
// bus's best-effort back-pressure policy.
func (b *Bus) Publish(evt store.WriteEvent) {
	frame, ok := transmogrify(evt)
	if !ok {
		return
	}

	b.mu.Lock()
	b.counter++
	frame.ID = b.counter
	dead := make([]uint64, 0)
	for id, l := range b.listeners {
		select {
		case l.C <- frame:
		default:
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		delete(b.listeners, id)
	}
	b.mu.Unlock()
}

// transmogrify renders a store.WriteEvent into a wire Frame. Write
// classes with no SSE-visible payload (the incident-type catalog, ACLs,
// concentric streets) return ok=false and the bus ignores them.
func transmogrify(evt store.WriteEvent) (Frame, bool) {
	switch evt.Class {
	case store.WriteClassIncident:
		if evt.IncidentNumber == nil {
			return Frame{}, false
		}
		return Frame{
			Class: FrameClass(store.WriteClassIncident),
			Data:  IncidentData{EventID: evt.Event, IncidentNumber: *evt.IncidentNumber},
		}, true
	case store.WriteClassFieldReport:
		if evt.FieldReportNumber == nil {
			return Frame{}, false
		}
		return Frame{
			Class: FrameClass(store.WriteClassFieldReport),
			Data:  FieldReportData{EventID: evt.Event, FieldReportNumber: *evt.FieldReportNumber},
		}, true
	default:
		return Frame{}, false
	}
}
