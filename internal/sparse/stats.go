package sparse

import "sync"

// Stats receives forward-pass profiling counts from layers.
type Stats interface {
	// AddMultiplyAdds adds the multiply-add count reported by the engine.
	AddMultiplyAdds(n float64)

	// AddHiddenStates adds the number of output feature elements produced.
	AddHiddenStates(n int)
}

// StatsSnapshot is a point-in-time copy of Counters.
type StatsSnapshot struct {
	MultiplyAdds float64
	HiddenStates int64
}

// Counters accumulates forward-pass statistics for any number of layers.
// It is safe for concurrent use.
//
// Example:
//
//	stats := sparse.NewCounters()
//	conv := nn.NewSubmanifoldConvolution(3, 16, 32, 3, false, engine, nn.WithStats(stats))
//	_, _ = conv.Forward(input)
//	fmt.Println(stats.Snapshot().MultiplyAdds)
type Counters struct {
	mu           sync.Mutex
	multiplyAdds float64
	hiddenStates int64
}

// NewCounters creates zeroed counters.
func NewCounters() *Counters {
	return &Counters{}
}

// AddMultiplyAdds implements Stats.
func (c *Counters) AddMultiplyAdds(n float64) {
	c.mu.Lock()
	c.multiplyAdds += n
	c.mu.Unlock()
}

// AddHiddenStates implements Stats.
func (c *Counters) AddHiddenStates(n int) {
	c.mu.Lock()
	c.hiddenStates += int64(n)
	c.mu.Unlock()
}

// Snapshot returns the current totals.
func (c *Counters) Snapshot() StatsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return StatsSnapshot{
		MultiplyAdds: c.multiplyAdds,
		HiddenStates: c.hiddenStates,
	}
}

// Reset zeroes both totals.
func (c *Counters) Reset() {
	c.mu.Lock()
	c.multiplyAdds = 0
	c.hiddenStates = 0
	c.mu.Unlock()
}

// NopStats discards all counts.
type NopStats struct{}

// AddMultiplyAdds implements Stats.
func (NopStats) AddMultiplyAdds(float64) {}

// AddHiddenStates implements Stats.
func (NopStats) AddHiddenStates(int) {}
