package middleware

import (
	"sync"
	"time"
)

type TrafficWindow struct {
	Bytes  int64   `json:"bytes"`
	Events int64   `json:"events"`
	Bps    float64 `json:"bps"`
}

type TrafficSnapshot struct {
	M1  TrafficWindow `json:"1m"`
	M5  TrafficWindow `json:"5m"`
	M60 TrafficWindow `json:"60m"`
	H24 TrafficWindow `json:"24h"`
}

// TrafficStats keeps per-minute byte and event counts for the last day in a
// ring indexed by minute.
type TrafficStats struct {
	mu     sync.Mutex
	bytes  []int64
	events []int64
	marks  []int64
	size   int64
}

func NewTrafficStats() *TrafficStats {
	const minutesInDay = 24 * 60
	return &TrafficStats{
		bytes:  make([]int64, minutesInDay),
		events: make([]int64, minutesInDay),
		marks:  make([]int64, minutesInDay),
		size:   minutesInDay,
	}
}

// Add records one event of n bytes at now.
func (t *TrafficStats) Add(n int, now time.Time) {
	minute := now.Unix() / 60
	idx := minute % t.size

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.marks[idx] != minute {
		t.marks[idx] = minute
		t.bytes[idx] = 0
		t.events[idx] = 0
	}
	t.bytes[idx] += int64(n)
	t.events[idx]++
}

func (t *TrafficStats) Snapshot(now time.Time) TrafficSnapshot {
	current := now.Unix() / 60

	t.mu.Lock()
	defer t.mu.Unlock()

	window := func(minutes int64) TrafficWindow {
		var w TrafficWindow
		for i := int64(0); i < minutes; i++ {
			minute := current - i
			idx := minute % t.size
			if t.marks[idx] == minute {
				w.Bytes += t.bytes[idx]
				w.Events += t.events[idx]
			}
		}
		w.Bps = float64(w.Bytes) / float64(minutes*60)
		return w
	}

	return TrafficSnapshot{
		M1:  window(1),
		M5:  window(5),
		M60: window(60),
		H24: window(24 * 60),
	}
}
