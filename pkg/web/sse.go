package web

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

const keepaliveInterval = 30 * time.Second

// sseBroker fans snapshot frames out to Server-Sent Events subscribers.
type sseBroker struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func newSSEBroker() *sseBroker {
	return &sseBroker{subs: make(map[chan []byte]struct{})}
}

func (b *sseBroker) subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *sseBroker) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// broadcast drops frames for subscribers whose buffers are full; the stream
// is best-effort and a fresh frame follows on the next tick.
func (b *sseBroker) broadcast(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

// handler streams frames in text/event-stream format. initial supplies the
// latest frame so a new subscriber sees state immediately instead of waiting
// for the next tick.
func (b *sseBroker) handler(initial func() []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		ch := b.subscribe()
		defer b.unsubscribe(ch)

		if frame := initial(); frame != nil {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}

		keepalive := time.NewTicker(keepaliveInterval)
		defer keepalive.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case frame := <-ch:
				fmt.Fprintf(w, "data: %s\n\n", frame)
				flusher.Flush()
			case <-keepalive.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			}
		}
	}
}
