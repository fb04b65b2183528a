// Package bench generates synthetic load against the tracking engine and
// measures write latency, recomputation throughput and allocation cost.
//
// A scenario builds an engine plus a dependency structure (a derived chain,
// a wide fanout, or many boxes under concurrent writers), then hammers it
// with writes for a fixed duration. Run collects per-write latency samples
// and runtime statistics into a Report that renders as a human summary or
// as JSON for regression tracking.
package bench
