// Package observability records report runs. Every run appends events to a
// JSON Lines log; metrics and alerts are derived from that log on demand,
// and run counters can be exported in the Prometheus text format.
package observability
