// Package sse streams library change notifications to browsers as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Event is one notification. Type is "<topic>.<kind>", e.g. "template.created".
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Topic returns the part of Type before the first dot.
func (e Event) Topic() string {
	topic, _, _ := strings.Cut(e.Type, ".")
	return topic
}

// Change kinds accepted by PublishTemplateEvent and PublishAssetEvent.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

const (
	// TopicGallery carries the throttled "gallery.updated" refresh hint sent
	// after any template or asset change.
	TopicGallery = "gallery"

	clientBuffer = 64
	heartbeat    = 25 * time.Second
)

// filter is the set of topics a client asked for; nil means every topic.
type filter map[string]bool

func newFilter(topics []string) filter {
	var f filter
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			if f == nil {
				f = filter{}
			}
			f[t] = true
		}
	}
	return f
}

func (f filter) wants(topic string) bool { return f == nil || f[topic] }

// loop is the state owned by the broker goroutine.
type loop struct {
	clients     map[chan []byte]filter
	seq         uint64
	lastGallery time.Time
}

// Broker fans events out to subscribed clients. All mutable state lives in
// one goroutine; public methods hand it closures over a channel.
type Broker struct {
	galleryMin time.Duration

	ops     chan func(*loop)
	stop    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. gallery.updated is sent at most once per
// galleryThrottle (2s when <= 0).
func NewBroker(galleryThrottle time.Duration) *Broker {
	if galleryThrottle <= 0 {
		galleryThrottle = 2 * time.Second
	}
	b := &Broker{
		galleryMin: galleryThrottle,
		ops:        make(chan func(*loop), 256),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)
	st := &loop{clients: map[chan []byte]filter{}}
	for {
		select {
		case <-b.stop:
			for ch := range st.clients {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(st)
		}
	}
}

// do queues op for the broker goroutine. It reports false once the broker
// is shut down.
func (b *Broker) do(op func(*loop)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.stopped:
		return false
	}
}

// send frames ev with the next sequence id and delivers it to every client
// whose filter accepts its topic. Full client buffers drop the frame.
func (st *loop) send(ev Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	st.seq++
	frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", st.seq, ev.Type, payload))
	topic := ev.Topic()
	for ch, f := range st.clients {
		if !f.wants(topic) {
			continue
		}
		select {
		case ch <- frame:
		default:
		}
	}
}

// Close stops the broker and closes every client channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.stopped
}

// Subscribe registers a client for the given topics (all topics when none
// are given) and returns its frame channel. After Close the channel is
// returned already closed.
func (b *Broker) Subscribe(topics ...string) chan []byte {
	ch := make(chan []byte, clientBuffer)
	f := newFilter(topics)
	done := make(chan struct{})
	if !b.do(func(st *loop) {
		st.clients[ch] = f
		close(done)
	}) {
		close(ch)
		return ch
	}
	select {
	case <-done:
	case <-b.stopped:
		select {
		case <-done:
			// Registered before shutdown; run closed it.
		default:
			close(ch)
		}
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(st *loop) {
		if _, ok := st.clients[ch]; ok {
			delete(st.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.do(func(st *loop) { resp <- len(st.clients) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to every interested client.
func (b *Broker) Publish(ev Event) {
	b.do(func(st *loop) { st.send(ev) })
}

// PublishTemplateEvent announces a template change.
func (b *Broker) PublishTemplateEvent(kind, id string) {
	b.publishChange("template", kind, id)
}

// PublishAssetEvent announces an asset change.
func (b *Broker) PublishAssetEvent(kind, id string) {
	b.publishChange("asset", kind, id)
}

// publishChange sends "<topic>.<kind>" followed, at most once per throttle
// window, by gallery.updated. Unknown kinds are dropped.
func (b *Broker) publishChange(topic, kind, id string) {
	switch kind {
	case KindCreated, KindUpdated, KindDeleted:
	default:
		return
	}
	throttle := b.galleryMin
	b.do(func(st *loop) {
		st.send(Event{Type: topic + "." + kind, Data: map[string]string{"id": id}})
		if now := time.Now(); now.Sub(st.lastGallery) >= throttle {
			st.lastGallery = now
			st.send(Event{Type: TopicGallery + ".updated", Data: map[string]string{}})
		}
	})
}

// ServeHTTP streams events to one client (GET /api/events). The optional
// "types" query parameter is a comma-separated topic list, e.g.
// ?types=template,gallery. A comment line goes out every 25s so idle
// proxies keep the stream open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var topics []string
	if v := r.URL.Query().Get("types"); v != "" {
		topics = strings.Split(v, ",")
	}
	ch := b.Subscribe(topics...)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(heartbeat)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
