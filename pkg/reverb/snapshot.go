package reverb

import "sort"

// KeyDeps lists the runners subscribed to one key of a source.
type KeyDeps struct {
	Key     string   `json:"key"`
	Runners []uint64 `json:"runners"`
}

// SourceDeps lists the tracked keys of one source.
type SourceDeps struct {
	ID   uint64    `json:"id"`
	Keys []KeyDeps `json:"keys"`
}

// GraphSnapshot is a point-in-time copy of the dependency graph, sorted for
// stable output. It is what the inspector serves.
type GraphSnapshot struct {
	Sources []SourceDeps `json:"sources"`
}

// Stats summarizes the engine's bookkeeping.
type Stats struct {
	// Sources is the number of sources with at least one tracked location.
	Sources int `json:"sources"`

	// Locations is the number of (source, key) entries in the graph.
	Locations int `json:"locations"`

	// Edges is the number of (location, runner) subscriptions.
	Edges int `json:"edges"`

	// Runners is the number of distinct runners present in the graph.
	Runners int `json:"runners"`

	// TrackedObjects and TrackedLists count the wrapper cache entries.
	TrackedObjects int `json:"tracked_objects"`
	TrackedLists   int `json:"tracked_lists"`
}

// GraphSnapshot copies the current dependency graph. The copy is consistent
// per dependency set but not across the whole graph; concurrent writes may
// land between sets.
func (e *Engine) GraphSnapshot() GraphSnapshot {
	g := e.graph

	g.mu.RLock()
	sets := make(map[uint64][]*depSet, len(g.entries))
	for src, keys := range g.entries {
		for _, set := range keys {
			sets[src] = append(sets[src], set)
		}
	}
	g.mu.RUnlock()

	snap := GraphSnapshot{Sources: make([]SourceDeps, 0, len(sets))}
	for src, srcSets := range sets {
		sd := SourceDeps{ID: src, Keys: make([]KeyDeps, 0, len(srcSets))}
		for _, set := range srcSets {
			runners := set.snapshot()
			ids := make([]uint64, 0, len(runners))
			for _, r := range runners {
				ids = append(ids, r.id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			sd.Keys = append(sd.Keys, KeyDeps{Key: set.key, Runners: ids})
		}
		sort.Slice(sd.Keys, func(i, j int) bool { return sd.Keys[i].Key < sd.Keys[j].Key })
		snap.Sources = append(snap.Sources, sd)
	}
	sort.Slice(snap.Sources, func(i, j int) bool { return snap.Sources[i].ID < snap.Sources[j].ID })
	return snap
}

// Stats computes current bookkeeping counts.
func (e *Engine) Stats() Stats {
	var s Stats

	snap := e.GraphSnapshot()
	s.Sources = len(snap.Sources)
	seen := make(map[uint64]struct{})
	for _, src := range snap.Sources {
		s.Locations += len(src.Keys)
		for _, kd := range src.Keys {
			s.Edges += len(kd.Runners)
			for _, id := range kd.Runners {
				seen[id] = struct{}{}
			}
		}
	}
	s.Runners = len(seen)

	e.cacheMu.Lock()
	s.TrackedObjects = len(e.objectCache)
	s.TrackedLists = len(e.listCache)
	e.cacheMu.Unlock()

	return s
}
