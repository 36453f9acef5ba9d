/*
Package observability turns engine lifecycle hooks into operational signals.

Metrics exposes prometheus counters and histograms for requests, outcomes,
interrupts and external tasks. Recorder appends every resolved node of a run
to a ports.Journal. LogHooks writes the same events to a slog.Logger, and
Chain fans one set of hooks out to many.
*/
package observability
