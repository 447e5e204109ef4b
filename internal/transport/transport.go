// SPDX-License-Identifier: MIT
/*
Package transport publishes analysis output to external observers.

Transports sit outside the hot path: the pipeline hands them frames on a
throttled cadence and every implementation must return without blocking,
dropping data when a sink cannot keep up.
*/
package transport

// Transport sends processed frames or events to an external sink.
// Implementations must be safe for concurrent use and must never block
// the caller.
type Transport interface {
	Send(data any) error
	Close() error
}

// Nop discards everything. Used when monitoring is disabled so callers
// never need a nil check.
type Nop struct{}

func (Nop) Send(any) error { return nil }
func (Nop) Close() error   { return nil }

var _ Transport = Nop{}
