// Package journeystitching groups discrete business events into journeys by
// the correlation keys they share, merging journeys when a key links two of
// them.
//
// Domain and application code stay decoupled from storage and transport
// through ports; adapters and the platform layer supply implementations.
package journeystitching
