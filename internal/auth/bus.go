package auth

import (
	"sync"
	"sync/atomic"

	"github.com/memakingbeats/sentient-inbox-main/internal/log"
)

// Message types the bridge acts on.
const (
	MessageTypeAuthSuccess = "auth_success"
	MessageTypeAuthError   = "auth_error"
)

// CallbackErrorExchangeFailed is the error the backend puts on the
// dashboard callback when its server-side code exchange failed.
const CallbackErrorExchangeFailed = "exchange_failed"

// Message travels from the callback page to the dashboard. Origin is
// stamped by the sending side and is never taken from the payload.
type Message struct {
	Type   string `json:"type"`
	Code   string `json:"code,omitempty"`
	Token  string `json:"token,omitempty"`
	State  string `json:"state,omitempty"`
	Error  string `json:"error,omitempty"`
	Origin string `json:"-"`
}

// MessageBus delivers messages between the callback receiver and the
// dashboard. Delivery is asynchronous and scoped by origin on both ends:
// Post only reaches subscribers registered for the target origin, and a
// subscriber only sees messages whose sender origin equals its own.
type MessageBus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription

	// inflight counts deliveries not yet finished; idle is signalled on mu
	// when it drops to zero.
	inflight int
	idle     *sync.Cond
}

// NewMessageBus returns an empty bus.
func NewMessageBus() *MessageBus {
	b := &MessageBus{subs: make(map[uint64]*Subscription)}
	b.idle = sync.NewCond(&b.mu)
	return b
}

// Subscription is a single-shot listener. Once its handler reports a
// message as consumed, or Disarm is called, it never fires again.
type Subscription struct {
	bus     *MessageBus
	id      uint64
	origin  string
	handler func(Message) bool
	armed   atomic.Bool

	// serialises handler calls so at most one message is ever consumed
	mu sync.Mutex
}

// Subscribe registers handler for messages sent from origin to origin.
// The handler returns true when it consumed the message.
func (b *MessageBus) Subscribe(origin string, handler func(Message) bool) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	s := &Subscription{
		bus:     b,
		id:      b.nextID,
		origin:  origin,
		handler: handler,
	}
	s.armed.Store(true)
	b.subs[s.id] = s
	return s
}

// Post queues msg for every armed subscriber whose origin is targetOrigin.
// It never waits for the handlers to run.
func (b *MessageBus) Post(msg Message, targetOrigin string) error {
	if targetOrigin == "" || targetOrigin == "*" {
		return ErrWildcardOrigin
	}

	b.mu.Lock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.origin == targetOrigin {
			targets = append(targets, s)
		}
	}
	b.inflight += len(targets)
	b.mu.Unlock()

	for _, s := range targets {
		go func(s *Subscription) {
			defer b.delivered()
			s.deliver(msg)
		}(s)
	}
	return nil
}

func (b *MessageBus) delivered() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight--
	if b.inflight == 0 {
		b.idle.Broadcast()
	}
}

// Wait blocks until no delivery is in flight. Posts racing with Wait are
// either waited for or not, never lost.
func (b *MessageBus) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.inflight > 0 {
		b.idle.Wait()
	}
}

// Len returns the number of armed subscriptions.
func (b *MessageBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (s *Subscription) deliver(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.armed.Load() {
		return
	}
	if msg.Origin != s.origin {
		log.LogDebugWithFields("auth", "dropping message from foreign origin", map[string]any{
			"origin": msg.Origin,
		})
		return
	}
	if s.handler(msg) {
		s.Disarm()
	}
}

// Disarm removes the subscription. Safe to call more than once.
func (s *Subscription) Disarm() {
	if s == nil || !s.armed.CompareAndSwap(true, false) {
		return
	}
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
}

// Armed reports whether the subscription can still fire.
func (s *Subscription) Armed() bool {
	return s != nil && s.armed.Load()
}
