package reverb

import "sync/atomic"

// globalIDCounter is the source of unique IDs for sources and runners.
// Using atomic operations ensures thread-safe ID generation without locks.
var globalIDCounter uint64

// nextID returns the next unique ID.
// IDs are monotonically increasing and never reused, even across engines.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
