// Package event is a small in-process dispatcher. Services fire domain
// events; the kernel registers listeners that feed metrics and logs.
package event

import (
	"sync"

	"github.com/farm2home/farm2home/pkg/logger"
)

// Handler receives an event payload.
type Handler func(payload any)

var (
	mu       sync.RWMutex
	handlers = map[string][]Handler{}
)

// Listen registers a handler for the given event name.
func Listen(event string, handler Handler) {
	mu.Lock()
	defer mu.Unlock()
	handlers[event] = append(handlers[event], handler)
}

// Fire dispatches an event synchronously to all registered listeners.
// A panicking listener is logged and skipped; it never fails the caller.
func Fire(event string, payload any) {
	for _, h := range snapshot(event) {
		run(event, h, payload)
	}
}

// FireAsync dispatches the event to all listeners concurrently and returns
// immediately.
func FireAsync(event string, payload any) {
	for _, h := range snapshot(event) {
		go run(event, h, payload)
	}
}

// Flush removes all listeners (useful in tests).
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	handlers = map[string][]Handler{}
}

func snapshot(event string) []Handler {
	mu.RLock()
	defer mu.RUnlock()
	hs := make([]Handler, len(handlers[event]))
	copy(hs, handlers[event])
	return hs
}

func run(event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event: listener panicked", "event", event, "panic", r)
		}
	}()
	h(payload)
}
