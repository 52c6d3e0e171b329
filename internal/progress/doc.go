// Package progress defines the status events a sweep emits and the Sink
// contract that renders or records them. Events are delivered synchronously,
// one per resolved probe, so a sink always sees the window as it is now.
package progress
