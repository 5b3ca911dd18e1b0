// =============================================================================
// pkg/api/events.go - Engine Events
// =============================================================================
package api

import (
	"net"
	"sync"
)

// EventKind names one engine event.
type EventKind int

const (
	EventReady EventKind = iota + 1
	EventListening
	EventPeerConnected
	EventPeerChoked
	EventPieceVerified
	EventPieceInvalid
	EventHotswap
)

var eventNames = map[EventKind]string{
	EventReady:         "ready",
	EventListening:     "listening",
	EventPeerConnected: "peer-connected",
	EventPeerChoked:    "peer-choked",
	EventPieceVerified: "verify",
	EventPieceInvalid:  "invalid-piece",
	EventHotswap:       "hotswap",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is a typed engine notification. Only the payload field matching Kind
// is set.
type Event struct {
	Kind  EventKind
	Addr  net.Addr // EventListening
	Peer  string   // EventPeerConnected, EventPeerChoked
	Piece int      // EventPieceVerified, EventPieceInvalid
}

// Subscription receives events of the kinds it was created for until Close.
// Events queue without bound so a slow reader never misses one.
type Subscription struct {
	C <-chan Event

	c     chan Event
	kinds map[EventKind]bool
	bus   *Bus
	once  sync.Once

	mu     sync.Mutex
	queue  []Event
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

// Wants reports whether the subscription was created for kind.
func (s *Subscription) Wants(kind EventKind) bool {
	return len(s.kinds) == 0 || s.kinds[kind]
}

// Close unsubscribes and closes C. Queued events are discarded. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

// Pending returns the number of queued events not yet received.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Subscription) push(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.queue = nil
		close(s.done)
	}
}

// pump moves queued events onto C in publish order.
func (s *Subscription) pump() {
	defer close(s.c)
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
			case <-s.done:
				return
			}
			continue
		}
		ev := s.queue[0]
		s.queue[0] = Event{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.c <- ev:
		case <-s.done:
			return
		}
	}
}

// Bus fans engine events out to subscriptions. Publishing never blocks and
// never drops: each subscription buffers what its reader has not taken yet.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers for kinds; no kinds means every event.
func (b *Bus) Subscribe(kinds ...EventKind) *Subscription {
	c := make(chan Event)
	s := &Subscription{
		C:     c,
		c:     c,
		bus:   b,
		kinds: make(map[EventKind]bool, len(kinds)),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	for _, k := range kinds {
		s.kinds[k] = true
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	go s.pump()
	return s
}

// Publish delivers ev to every interested subscription.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if s.Wants(ev.Kind) {
			s.push(ev)
		}
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every remaining subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
	s.shutdown()
}
