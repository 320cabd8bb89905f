// Package dedupe tracks (event, recipient) pairs so redelivering an event
// never creates duplicate unread notifications.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Key identifies one delivery: the event occurrence and its recipient.
type Key struct {
	EventID   string
	Recipient string
}

// Deduper records seen delivery keys to ensure at-most-once fan-out.
type Deduper interface {
	// SeenAndRecord atomically checks if k was seen and records it if not.
	// Returns true if k was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, k Key) bool

	// Unrecord removes a key from the seen set, allowing redelivery. Used
	// when a delivery was marked seen but failed to persist.
	Unrecord(ctx context.Context, k Key)

	Size() int64
}

// node is a singly linked list entry; the list orders keys by insertion so
// the bounded mode can evict the oldest.
type node struct {
	key  Key
	next *node
}

func (n *node) reset() {
	n.key = Key{}
	n.next = nil
}

// inMemoryDeduper implements Deduper with a map plus insertion-ordered list.
// Bounded mode (maxSize > 0) evicts the oldest entry; unbounded mode keeps
// everything.
type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[Key]*node
	head     *node
	tail     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[Key]*node)
	if d.maxSize > 0 {
		d.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}
	return d
}

// SeenAndRecord atomically checks and records k.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, k Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[k]; exists {
		return true
	}

	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
		n := d.nodePool.Get().(*node)
		n.key = k
		n.next = nil
		if d.tail != nil {
			d.tail.next = n
		} else {
			d.head = n
		}
		d.tail = n
		d.seen[k] = n
	} else {
		d.seen[k] = nil
	}
	d.size.Add(1)
	return false
}

// Unrecord removes k from the seen set.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, k Key) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, exists := d.seen[k]
	if !exists {
		return
	}
	delete(d.seen, k)
	d.size.Add(-1)
	if d.maxSize <= 0 {
		return
	}

	if d.head == n {
		d.head = n.next
		if d.tail == n {
			d.tail = nil
		}
	} else {
		current := d.head
		for current != nil && current.next != n {
			current = current.next
		}
		if current != nil {
			current.next = n.next
			if d.tail == n {
				d.tail = current
			}
		}
	}
	n.reset()
	d.nodePool.Put(n)
}

// evictOldest drops the head of the list. Must hold d.mu.
func (d *inMemoryDeduper) evictOldest() {
	if d.head == nil {
		return
	}
	n := d.head
	d.head = n.next
	if d.tail == n {
		d.tail = nil
	}
	delete(d.seen, n.key)
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}

// Size returns the current number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
