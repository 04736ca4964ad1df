// Package events implements the in-process publish/subscribe bus that
// keeps the cache coherent with writes issued through the tool layer.
//
// This generalizes the teacher's pkg/pubsub package (topic constants,
// versioned typed events) from a distributed Encore Pub/Sub topic — which
// assumes multiple cooperating service instances — down to a single
// in-process bus, matching this server's single-tenant, single-process
// deployment model (spec.md Non-goals: no multi-process cache sharing).
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the category of a published Event.
type Kind string

const (
	KindCacheInvalidated Kind = "cache:invalidated"
	KindFileCreated      Kind = "file:created"
	KindFileUpdated      Kind = "file:updated"
	KindFileDeleted      Kind = "file:deleted"
	KindDirectoryCreated Kind = "directory:created"
	KindDirectoryDeleted Kind = "directory:deleted"
	KindTagAdded         Kind = "tag:added"
	KindTagRemoved       Kind = "tag:removed"
)

// Event is the payload delivered to every subscriber of its Kind.
type Event struct {
	ID        string
	Kind      Kind
	Path      string   // set for file:*/directory:* events
	Keys      []string // set for cache:invalidated
	Tag       string   // set for tag:*
	Timestamp time.Time
	Metadata  map[string]string
}

// NewEvent builds an Event with a generated ID and the current time,
// matching the teacher's RequestID-on-every-event convention
// (pkg/pubsub/events.go) used for log correlation.
func NewEvent(kind Kind) Event {
	return Event{ID: uuid.NewString(), Kind: kind, Timestamp: time.Now()}
}

// Callback is invoked synchronously for each published Event of a kind it
// is subscribed to.
type Callback func(Event)

// Unsubscribe removes a previously registered Callback.
type Unsubscribe func()

// Bus is a synchronous, in-process publish/subscribe hub. Delivery order
// within one Emit call matches subscriber registration order. The bus
// never swallows a subscriber panic-as-error: it deliberately does not
// recover from subscriber errors so wiring bugs surface during
// development, matching the teacher's explicit no-swallow stance. A
// caller wanting fault-tolerant delivery wraps its own callback.
type Bus struct {
	mu          sync.Mutex
	subscribers map[Kind][]*subscriber
	nextID      uint64
}

type subscriber struct {
	id int64
	cb Callback
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[Kind][]*subscriber)}
}

// Subscribe registers cb to run for every future Emit of kind, and
// returns a function that removes the registration. Unsubscribing from
// within a callback that is itself running as part of delivery is safe:
// it only changes the live subscriber list, not the copy taken at the
// start of that Emit, so subsequent callbacks in the same Emit still run.
func (b *Bus) Subscribe(kind Kind, cb Callback) Unsubscribe {
	b.mu.Lock()
	b.nextID++
	id := int64(b.nextID)
	b.subscribers[kind] = append(b.subscribers[kind], &subscriber{id: id, cb: cb})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[kind]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[kind] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers event to every subscriber of event.Kind, in registration
// order, synchronously on the calling goroutine. It takes a snapshot of
// the subscriber list before delivery so a callback that unsubscribes
// (itself or another) mid-delivery cannot disturb the in-flight Emit.
func (b *Bus) Emit(event Event) {
	b.mu.Lock()
	subs := append([]*subscriber(nil), b.subscribers[event.Kind]...)
	b.mu.Unlock()

	for _, s := range subs {
		s.cb(event)
	}
}
