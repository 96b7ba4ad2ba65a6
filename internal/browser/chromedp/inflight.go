package chromedp

import (
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// inflight tracks outstanding network requests for idle detection.
type inflight struct {
	mu         sync.Mutex
	requests   map[network.RequestID]struct{}
	lastChange time.Time
}

func newInflight() *inflight {
	return &inflight{
		requests:   make(map[network.RequestID]struct{}),
		lastChange: time.Now(),
	}
}

func (f *inflight) observe(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		f.start(e.RequestID)
	case *network.EventLoadingFinished:
		f.finish(e.RequestID)
	case *network.EventLoadingFailed:
		f.finish(e.RequestID)
	}
}

func (f *inflight) start(id network.RequestID) {
	f.mu.Lock()
	f.requests[id] = struct{}{}
	f.lastChange = time.Now()
	f.mu.Unlock()
}

func (f *inflight) finish(id network.RequestID) {
	f.mu.Lock()
	if _, ok := f.requests[id]; ok {
		delete(f.requests, id)
		f.lastChange = time.Now()
	}
	f.mu.Unlock()
}

// idleFor reports how long the request set has been empty, or zero while
// requests are outstanding.
func (f *inflight) idleFor(now time.Time) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) > 0 {
		return 0
	}
	return now.Sub(f.lastChange)
}
