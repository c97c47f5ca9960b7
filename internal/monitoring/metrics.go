// Package monitoring provides the fire-and-forget metrics sink the engine
// emits counters and timings to. Sink failures never affect engine
// correctness; implementations must not return errors or panic.
package monitoring

import (
	"sync"
	"time"
)

// Metrics accepts named counters and timers.
type Metrics interface {
	Inc(name string)
	Observe(name string, d time.Duration)
}

// Nop discards all metrics.
type Nop struct{}

func (Nop) Inc(string)                    {}
func (Nop) Observe(string, time.Duration) {}

// Collector is an in-memory Metrics implementation, safe for concurrent use
// across jobs.
type Collector struct {
	mu       sync.Mutex
	counters map[string]int64
	timings  map[string]timing
}

type timing struct {
	count int64
	total time.Duration
	max   time.Duration
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		counters: make(map[string]int64),
		timings:  make(map[string]timing),
	}
}

func (c *Collector) Inc(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name]++
}

func (c *Collector) Observe(name string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.timings[name]
	t.count++
	t.total += d
	if d > t.max {
		t.max = d
	}
	c.timings[name] = t
}

// TimerStat is a point-in-time summary of one named timer.
type TimerStat struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Avg   time.Duration `json:"avg"`
	Max   time.Duration `json:"max"`
}

// Snapshot holds a point-in-time view of all collected metrics.
type Snapshot struct {
	Counters map[string]int64     `json:"counters"`
	Timers   map[string]TimerStat `json:"timers"`
}

// Snapshot copies the current counters and timer summaries.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Counters: make(map[string]int64, len(c.counters)),
		Timers:   make(map[string]TimerStat, len(c.timings)),
	}
	for k, v := range c.counters {
		snap.Counters[k] = v
	}
	for k, t := range c.timings {
		stat := TimerStat{Count: t.count, Total: t.total, Max: t.max}
		if t.count > 0 {
			stat.Avg = t.total / time.Duration(t.count)
		}
		snap.Timers[k] = stat
	}
	return snap
}
