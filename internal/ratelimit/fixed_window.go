package ratelimit

import (
	"sync"
	"time"
)

// FixedWindow counts requests per client key and resets every window.
type FixedWindow struct {
	mu      sync.Mutex
	clients map[string]int
	limit   int
	window  time.Duration
	resetAt time.Time
}

func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	fw := &FixedWindow{
		clients: make(map[string]int),
		limit:   limit,
		window:  window,
		resetAt: time.Now().Add(window),
	}
	go fw.cleanup()
	return fw
}

func (fw *FixedWindow) cleanup() {
	ticker := time.NewTicker(fw.window)
	for now := range ticker.C {
		fw.mu.Lock()
		fw.clients = make(map[string]int)
		fw.resetAt = now.Add(fw.window)
		fw.mu.Unlock()
	}
}

// Allow reports whether the key may proceed, and the time remaining until the
// current window resets when it may not.
func (fw *FixedWindow) Allow(key string) (bool, time.Duration) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.clients[key] >= fw.limit {
		retry := time.Until(fw.resetAt)
		if retry < 0 {
			retry = 0
		}
		return false, retry
	}
	fw.clients[key]++
	return true, 0
}
