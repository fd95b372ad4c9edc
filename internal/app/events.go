// Package app wires the map engine into an interactive session: input events,
// view switching, overlays and search.
package app

import (
	"sync"
)

// EventType identifies different session events.
type EventType int

const (
	EventViewChanged EventType = iota
	EventHoverChanged
	EventSelected
	EventModeChanged
	EventOverlayApplied
	EventSearchResults
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// events is a listener registry. Listeners run synchronously on the emitting
// goroutine, which for a Session is the render thread.
type events struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventListener
}

// On registers an event listener for the specified event type.
func (e *events) On(event EventType, listener EventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[EventType][]EventListener)
	}
	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (e *events) Emit(event EventType, data interface{}) {
	e.mu.RLock()
	listeners := e.listeners[event]
	e.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
