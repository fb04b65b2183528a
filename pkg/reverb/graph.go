package reverb

import "sync"

// depSet holds the runners that depend on a single (source, key) location.
// It is the unit of subscription in the dependency graph.
type depSet struct {
	source uint64
	key    string

	// runners are the computations to re-run when this location changes.
	runners []*Runner

	// mu protects the runners slice.
	mu sync.RWMutex
}

// add subscribes a runner to this location.
// Deduplicates by runner ID and reports whether a new edge was created.
func (d *depSet) add(r *Runner) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	rid := r.id
	for _, existing := range d.runners {
		if existing.id == rid {
			return false
		}
	}

	d.runners = append(d.runners, r)
	return true
}

// remove unsubscribes a runner from this location.
func (d *depSet) remove(r *Runner) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rid := r.id
	for i, existing := range d.runners {
		if existing.id == rid {
			// Remove by swapping with last element (order doesn't matter)
			d.runners[i] = d.runners[len(d.runners)-1]
			d.runners = d.runners[:len(d.runners)-1]
			return
		}
	}
}

// snapshot copies the current runner set so notification can proceed without
// holding the lock. Runners added or removed during notification see no
// effect until the next write.
func (d *depSet) snapshot() []*Runner {
	d.mu.RLock()
	defer d.mu.RUnlock()

	runners := make([]*Runner, len(d.runners))
	copy(runners, d.runners)
	return runners
}

// depGraph is the central dependency registry of an engine. It maps
// (source ID, key) to the set of runners that read that location.
// Entries are created on first read and accumulate; edges are only removed
// when a runner is disposed or the graph is cleared.
type depGraph struct {
	mu      sync.RWMutex
	entries map[uint64]map[string]*depSet
}

func newDepGraph() *depGraph {
	return &depGraph{
		entries: make(map[uint64]map[string]*depSet),
	}
}

// setFor returns the dependency set for (src, key), creating it if needed.
func (g *depGraph) setFor(src uint64, key string) *depSet {
	g.mu.RLock()
	if keys, ok := g.entries[src]; ok {
		if set, ok := keys[key]; ok {
			g.mu.RUnlock()
			return set
		}
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	keys, ok := g.entries[src]
	if !ok {
		keys = make(map[string]*depSet)
		g.entries[src] = keys
	}
	set, ok := keys[key]
	if !ok {
		set = &depSet{source: src, key: key}
		keys[key] = set
	}
	return set
}

// lookup returns the dependency set for (src, key), or nil if no computation
// ever read that location.
func (g *depGraph) lookup(src uint64, key string) *depSet {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys, ok := g.entries[src]
	if !ok {
		return nil
	}
	return keys[key]
}

// record subscribes r to (src, key) and gives r a back-reference for
// disposal. Reports whether a new edge was created.
func (g *depGraph) record(src uint64, key string, r *Runner) bool {
	set := g.setFor(src, key)
	if !set.add(r) {
		return false
	}
	r.addEntry(set)
	return true
}

// notify re-runs every runner subscribed to (src, key), skipping the runner
// that is currently active (a computation must not re-trigger itself) and
// any disposed runners. Runners with a scheduler are handed to it instead of
// being run directly.
//
// Returns the number of runners delivered to, or -1 if the location was
// never read.
func (g *depGraph) notify(src uint64, key string, skip *Runner) int {
	set := g.lookup(src, key)
	if set == nil {
		return -1
	}

	delivered := 0
	for _, r := range set.snapshot() {
		if r == skip || r.disposed.Load() {
			continue
		}
		if r.scheduler != nil {
			r.scheduler(r)
		} else {
			r.Run()
		}
		delivered++
	}
	return delivered
}

// clear drops every entry. Used on engine close.
func (g *depGraph) clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = make(map[uint64]map[string]*depSet)
}
