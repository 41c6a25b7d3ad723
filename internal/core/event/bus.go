package event

import (
	"reflect"
	"sync"
)

// handlerFn is a type-erased subscriber. The generic Subscribe wrapper
// restores the concrete event type before invoking the callback.
type handlerFn func(any)

// Bus carries simulation events across tick boundaries. Emissions land in a
// pending queue and become visible only after the next SwapBuffers, so every
// system observes the same tick-consistent view: an event raised during tick
// N is handled during the events phase of tick N+1.
type Bus struct {
	mu      sync.Mutex // guards subs; emit and dispatch stay on the loop goroutine
	pending map[reflect.Type][]any
	live    map[reflect.Type][]any
	subs    map[reflect.Type][]handlerFn
}

func NewBus() *Bus {
	return &Bus{
		pending: make(map[reflect.Type][]any),
		live:    make(map[reflect.Type][]any),
		subs:    make(map[reflect.Type][]handlerFn),
	}
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event for delivery on the next tick.
func Emit[T any](b *Bus, ev T) {
	k := keyOf[T]()
	b.pending[k] = append(b.pending[k], ev)
}

// Subscribe registers fn for every future event of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := keyOf[T]()
	b.subs[k] = append(b.subs[k], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers promotes pending events to the live queue and recycles the
// previous live slices. Called once per tick, before DispatchAll.
func (b *Bus) SwapBuffers() {
	b.live, b.pending = b.pending, b.live
	for k, q := range b.pending {
		b.pending[k] = q[:0]
	}
}

// DispatchAll hands every live event to its subscribers, in emission order
// per type.
func (b *Bus) DispatchAll() {
	for k, queue := range b.live {
		for _, ev := range queue {
			for _, fn := range b.subs[k] {
				fn(ev)
			}
		}
	}
}
