// Package signals delivers events to attached observers in attach order.
package signals

import (
	"reflect"
	"sync"
)

type Observer[E any] func(E)

type Signal[E any] interface {
	// Attach registers observer under observerID, or under the observer's
	// function pointer when no id is given. The returned func detaches it.
	Attach(observer Observer[E], observerID ...any) func()
	Detach(observer Observer[E], observerID ...any)
	Notify(event E)
}

type entry[E any] struct {
	id       any
	observer Observer[E]
}

type SignalImp[E any] struct {
	mu        sync.RWMutex
	observers []entry[E]
}

func NewSignal[E any]() *SignalImp[E] {
	return &SignalImp[E]{}
}

func (s *SignalImp[E]) Attach(observer Observer[E], observerID ...any) func() {
	id := resolveID(observer, observerID)
	detach := func() { s.Detach(observer, id) }

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.observers {
		if e.id == id {
			return detach
		}
	}
	s.observers = append(s.observers, entry[E]{id: id, observer: observer})
	return detach
}

func (s *SignalImp[E]) Detach(observer Observer[E], observerID ...any) {
	id := resolveID(observer, observerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.observers {
		if e.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// Notify calls the observers attached when it starts. Observers may attach
// or detach while it runs.
func (s *SignalImp[E]) Notify(event E) {
	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()
	for _, e := range observers {
		e.observer(event)
	}
}

func resolveID[E any](observer Observer[E], observerID []any) any {
	if len(observerID) > 0 {
		return observerID[0]
	}
	return reflect.ValueOf(observer).Pointer()
}
