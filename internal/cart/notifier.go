package cart

import (
	"context"
	"sync"

	"github.com/angelmondragon/loupes-storefront/pkg/metrics"
)

// Broadcaster delivers the payload-less "re-read now" signal for a cart key.
type Broadcaster interface {
	Broadcast(ctx context.Context, key string)
}

// Notifier is an in-process observer list keyed by cart key. Each subscriber
// gets a channel with room for one pending signal; bursts coalesce into one.
type Notifier struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[string]map[uint64]chan struct{}
	metrics *metrics.CartMetrics
}

func NewNotifier(m *metrics.CartMetrics) *Notifier {
	return &Notifier{
		subs:    make(map[string]map[uint64]chan struct{}),
		metrics: m,
	}
}

// Subscribe registers for signals on key. The returned func unsubscribes and
// closes the channel; calling it more than once is safe.
func (n *Notifier) Subscribe(key string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.nextID++
	id := n.nextID
	if n.subs[key] == nil {
		n.subs[key] = make(map[uint64]chan struct{})
	}
	n.subs[key][id] = ch
	n.mu.Unlock()
	n.metrics.SubscriberAdded()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs[key], id)
			if len(n.subs[key]) == 0 {
				delete(n.subs, key)
			}
			close(ch)
			n.mu.Unlock()
			n.metrics.SubscriberRemoved()
		})
	}
}

// Broadcast signals every subscriber of key without blocking.
func (n *Notifier) Broadcast(_ context.Context, key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	n.metrics.IncBroadcast()
}

// Subscribers reports how many listeners key has.
func (n *Notifier) Subscribers(key string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[key])
}
