package httpclient

import (
	"net/url"
	"sync"
)

// HostSemaphore limits concurrent requests per upstream host. Ingest runs
// for different fingerprints may hit the same provider at once; the shared
// limiter keeps them from hammering it.
//
//	release := httpclient.Hosts.Acquire(baseURL)
//	defer release()
type HostSemaphore struct {
	mu    sync.Mutex
	sems  map[string]chan struct{}
	limit int
}

// Hosts is the process-wide limiter: at most 4 in-flight requests per host.
var Hosts = NewHostSemaphore(4)

func NewHostSemaphore(concurrency int) *HostSemaphore {
	if concurrency < 1 {
		concurrency = 1
	}
	return &HostSemaphore{
		sems:  make(map[string]chan struct{}),
		limit: concurrency,
	}
}

// Acquire blocks until a slot is free for host and returns a release func.
// host may be any URL; only scheme+host are used as the key.
func (h *HostSemaphore) Acquire(host string) func() {
	sem := h.semFor(host)
	sem <- struct{}{}
	return func() { <-sem }
}

func (h *HostSemaphore) semFor(host string) chan struct{} {
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Scheme + "://" + u.Host
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sems[host]
	if !ok {
		s = make(chan struct{}, h.limit)
		h.sems[host] = s
	}
	return s
}
