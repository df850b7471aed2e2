package systems

// Handle identifies one subscription on an Emitter.
type Handle uint64

type subscriber[T any] struct {
	handle Handle
	fn     func(T)
}

// Emitter is a typed callback list with handle-based subscription and
// synchronous dispatch. Events fire within the tick that raised them,
// in subscription order.
type Emitter[T any] struct {
	subs []subscriber[T]
	next Handle
}

// Subscribe registers a callback and returns its handle.
func (e *Emitter[T]) Subscribe(fn func(T)) Handle {
	e.next++
	e.subs = append(e.subs, subscriber[T]{handle: e.next, fn: fn})
	return e.next
}

// Unsubscribe removes the callback with the given handle. Unknown
// handles are ignored.
func (e *Emitter[T]) Unsubscribe(h Handle) {
	for i, s := range e.subs {
		if s.handle == h {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

// Emit dispatches the event to all subscribers synchronously.
func (e *Emitter[T]) Emit(ev T) {
	for _, s := range e.subs {
		s.fn(ev)
	}
}
