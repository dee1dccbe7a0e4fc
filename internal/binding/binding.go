// Package binding bridges store change events to view recomputation for a
// consumer such as the HTTP dashboard stream.
//
// A binding delivers one computation immediately on Bind, then one fresh
// computation per batch of store mutations: rapid bursts are coalesced
// through a size-1 signal channel, so the consumer never recomputes more
// than once per discrete change batch.
package binding

import (
	"sync"

	"github.com/roadwatch/roadwatch/internal/metrics"
	"github.com/roadwatch/roadwatch/internal/store"
)

// Binding connects a store to a consumer through a compute/deliver pair.
//
// Lifecycle: unbound -> bound -> closed. There are no intermediate states
// and a closed binding cannot be reused; rebinding means calling Bind again
// for a fresh instance.
type Binding[T any] struct {
	signal chan struct{}
	stop   chan struct{}
	done   chan struct{}
	cancel func()

	deliverMu sync.Mutex
	closed    bool
}

// Bind subscribes to the store and starts delivering computations.
//
// The first delivery happens synchronously against the current snapshot
// before Bind returns. Afterwards each burst of mutations produces exactly
// one recomputation against the then-current snapshot, delivered from a
// single goroutine.
//
// compute must be a pure function of the snapshot (see the view package).
// deliver must not call Close on this binding; that would deadlock.
func Bind[T any](st *store.Store, compute func(*store.Snapshot) T, deliver func(T)) *Binding[T] {
	b := &Binding[T]{
		signal: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	// Subscribe before the initial delivery so mutations racing with Bind
	// are never lost - they just cause one extra fresh recomputation.
	b.cancel = st.Subscribe(func(string) {
		// Non-blocking send: a full buffer already guarantees a pending
		// recomputation, which coalesces the burst.
		select {
		case b.signal <- struct{}{}:
		default:
		}
	})

	b.send(compute(st.Snapshot()), deliver)

	go func() {
		defer close(b.done)
		for {
			select {
			case <-b.stop:
				return
			case <-b.signal:
				b.send(compute(st.Snapshot()), deliver)
			}
		}
	}()

	return b
}

// Close unsubscribes the binding and cancels any pending delivery.
// After Close returns, deliver is never invoked again.
// Close is idempotent and safe from any goroutine except the deliver
// callback itself.
func (b *Binding[T]) Close() {
	b.cancel()

	b.deliverMu.Lock()
	alreadyClosed := b.closed
	b.closed = true
	b.deliverMu.Unlock()

	if alreadyClosed {
		return
	}
	close(b.stop)
	<-b.done
}

// send delivers a computed value unless the binding has been closed.
// The mutex both gates the closed flag and makes Close wait for an
// in-flight delivery, which upholds the no-delivery-after-Close guarantee.
func (b *Binding[T]) send(v T, deliver func(T)) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	if b.closed {
		return
	}
	deliver(v)
	metrics.DeliveriesTotal.Inc()
}
