// Package notify implements fan-out delivery of asynchronous backend
// notifications (LISTEN/NOTIFY) to multiple independent subscribers. The
// dispatcher only knows about a single unaffiliated-message sink; Bus sits
// behind that sink and gives each LISTENer in the process its own channel,
// generalising a handler-list's "call every handler" into "deliver to
// every subscription's channel, per-channel filtered by name".
package notify

import (
	"sync"

	"github.com/dan-strohschein/pgwire-go/pgerrors"
)

// Subscription is a live registration on a Bus. Notifications matching the
// channel name given at Subscribe time arrive on C; the subscription must
// be closed with Unsubscribe when no longer needed.
type Subscription struct {
	id      uint64
	channel string
	C       chan pgerrors.Notification
	bus     *Bus
}

// Unsubscribe removes the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s.id)
}

// Bus fans a single stream of Notifications out to any number of
// subscribers, each optionally filtered to one channel name.
type Bus struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]*Subscription
	backlog int
}

// New returns a Bus whose subscriber channels are buffered to depth
// backlog; a slow subscriber that fills its buffer drops subsequent
// notifications rather than blocking delivery to other subscribers.
func New(backlog int) *Bus {
	if backlog <= 0 {
		backlog = 16
	}
	return &Bus{subs: make(map[uint64]*Subscription), backlog: backlog}
}

// Subscribe registers a new subscription. An empty channel name matches
// every notification regardless of its channel.
func (b *Bus) Subscribe(channel string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{
		id:      b.nextID,
		channel: channel,
		C:       make(chan pgerrors.Notification, b.backlog),
		bus:     b,
	}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.C)
	}
}

// Publish delivers n to every subscription whose channel filter matches,
// non-blockingly. Intended to be registered directly as a
// dispatcher.Dispatcher.OnUnaffiliated callback filtered to Notification
// values by the caller.
func (b *Bus) Publish(n pgerrors.Notification) {
	b.mu.Lock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.channel == "" || sub.channel == n.Channel {
			targets = append(targets, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.C <- n:
		default:
		}
	}
}

// Close unsubscribes every current subscriber, closing their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*Subscription)
	b.mu.Unlock()
	for _, sub := range subs {
		close(sub.C)
	}
}
