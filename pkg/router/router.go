// Package router fans a single producer channel out to named subscribers.
// The control loop produces snapshots faster than some consumers (LCD, MQTT)
// drain them, so sends never block: a lagging subscriber loses samples
// instead of stalling the tick pipeline.
package router

import (
	"log/slog"
	"sync"
)

type Fan[T any] struct {
	name    string
	input   <-chan T
	mu      sync.Mutex
	outputs map[string]chan T
}

func NewFan[T any](name string, input <-chan T) *Fan[T] {
	return &Fan[T]{
		name:    name,
		input:   input,
		outputs: make(map[string]chan T),
	}
}

// Subscribe registers a client and returns its delivery channel. Subscribing
// the same client twice is a programming error.
func (f *Fan[T]) Subscribe(client string) <-chan T {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.outputs[client]; ok {
		panic("router: client already subscribed: " + client)
	}
	c := make(chan T, 1)
	f.outputs[client] = c
	return c
}

func (f *Fan[T]) Unsubscribe(client string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.outputs[client]
	if !ok {
		panic("router: client not subscribed: " + client)
	}
	close(c)
	delete(f.outputs, client)
}

// Run pumps the input to all subscribers until the input closes, then closes
// the remaining subscriber channels.
func (f *Fan[T]) Run() error {
	for v := range f.input {
		f.mu.Lock()
		for client, ch := range f.outputs {
			select {
			case ch <- v:
			default:
				// Subscriber still holds an unread value; replace it so a
				// slow consumer always sees the freshest sample.
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- v:
				default:
					slog.Debug("fan dropped value for slow subscriber", "fan", f.name, "subscriber", client)
				}
			}
		}
		f.mu.Unlock()
	}
	f.mu.Lock()
	for client, ch := range f.outputs {
		close(ch)
		delete(f.outputs, client)
	}
	f.mu.Unlock()
	return nil
}
