// Package fake
// Author: momentics <momentics@gmail.com>
//
// Callback recorder.

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-uipc/api"
)

// Record is one delivered notification.
type Record struct {
	Channel api.ChannelID
	Event   api.Event
}

// Recorder collects notifications in delivery order.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	changed chan struct{}
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{changed: make(chan struct{})}
}

// Callback is the api.Callback to register with a channel.
func (r *Recorder) Callback(id api.ChannelID, ev api.Event) {
	r.mu.Lock()
	r.records = append(r.records, Record{Channel: id, Event: ev})
	close(r.changed)
	r.changed = make(chan struct{})
	r.mu.Unlock()
}

// Records returns a copy of everything recorded so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Events returns the recorded events of one channel.
func (r *Recorder) Events(id api.ChannelID) []api.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []api.Event
	for _, rec := range r.records {
		if rec.Channel == id {
			out = append(out, rec.Event)
		}
	}
	return out
}

// Count reports how many times ev was delivered for id.
func (r *Recorder) Count(id api.ChannelID, ev api.Event) int {
	n := 0
	for _, e := range r.Events(id) {
		if e == ev {
			n++
		}
	}
	return n
}

// WaitFor blocks until ev has been delivered for id at least n times or d
// elapses. It reports whether the count was reached.
func (r *Recorder) WaitFor(id api.ChannelID, ev api.Event, n int, d time.Duration) bool {
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	for {
		r.mu.Lock()
		changed := r.changed
		r.mu.Unlock()
		if r.Count(id, ev) >= n {
			return true
		}
		select {
		case <-changed:
		case <-deadline.C:
			return r.Count(id, ev) >= n
		}
	}
}
