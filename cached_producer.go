// Copyright (c) 2025 Neomantra Corp

package backtest

import "sort"

// CachedProducer wraps a Producer and materializes its first full traversal
// into memory, so repeated replays over the same container (parameter sweeps)
// pay the parse and merge cost once.
//
// The first Setup drains the inner producer over the container's entire range
// into parallel tick/timestamp caches and then clears it; every Setup resolves
// the requested window to index bounds in the timestamp cache by binary search.
type CachedProducer struct {
	inner     *Producer
	container *DataContainer

	dataCache []Tick  // every tick of the full traversal, in emission order
	tsCache   []int64 // the matching timestamps

	built     bool
	initStart int // first cache index inside the current window
	initStop  int // first cache index past the current window
	cursor    int
	hasData   bool
}

// NewCachedProducer creates a CachedProducer over the container.
func NewCachedProducer(container *DataContainer) *CachedProducer {
	return &CachedProducer{
		inner:     NewProducer(container),
		container: container,
	}
}

// Setup binds the replay window [startNs, stopNs]. The first call drains the
// whole container into the cache; later calls only re-resolve index bounds.
func (p *CachedProducer) Setup(startNs int64, stopNs int64) error {
	if p.container.IsEmpty() || startNs > stopNs ||
		startNs < p.container.MinTsNs() || stopNs > p.container.MaxTsNs() {
		return windowError(startNs, stopNs, p.container.MinTsNs(), p.container.MaxTsNs())
	}

	if !p.built {
		if err := p.build(); err != nil {
			return err
		}
	}

	p.initStart = sort.Search(len(p.tsCache), func(i int) bool { return p.tsCache[i] >= startNs })
	p.initStop = sort.Search(len(p.tsCache), func(i int) bool { return p.tsCache[i] > stopNs })
	p.Reset()
	return nil
}

// build drains the inner producer over the full container range and releases
// its merged buffers.
func (p *CachedProducer) build() error {
	if err := p.inner.Setup(p.container.MinTsNs(), p.container.MaxTsNs()); err != nil {
		return err
	}
	for tick := p.inner.Next(); tick != nil; tick = p.inner.Next() {
		p.dataCache = append(p.dataCache, tick)
		p.tsCache = append(p.tsCache, tick.Timestamp())
	}
	if err := p.inner.Error(); err != nil {
		return err
	}
	p.inner.Clear()
	p.built = true
	return nil
}

// Reset restores the cursor to the start of the current window.
func (p *CachedProducer) Reset() {
	p.cursor = p.initStart
	p.hasData = p.cursor < p.initStop
}

// Next returns the next cached tick in the window, or nil once exhausted.
func (p *CachedProducer) Next() Tick {
	if p.cursor >= p.initStop {
		p.hasData = false
		return nil
	}
	tick := p.dataCache[p.cursor]
	p.cursor++
	p.hasData = p.cursor < p.initStop
	return tick
}

// HasData returns true while the current window still has unemitted ticks.
func (p *CachedProducer) HasData() bool {
	return p.hasData
}

// Clear drops the caches. The next Setup rebuilds them from the container.
func (p *CachedProducer) Clear() {
	p.dataCache = nil
	p.tsCache = nil
	p.built = false
	p.initStart, p.initStop, p.cursor = 0, 0, 0
	p.hasData = false
}
