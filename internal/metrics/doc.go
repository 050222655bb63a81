// Package metrics exposes crawl, index and search counters as Prometheus
// metrics.
//
// A Recorder owns its own registry instead of the global default one, so
// several crawls in one process (and parallel tests) never collide. The CLI
// is a batch tool with no HTTP listener; it dumps the registry to a file in
// the text exposition format for node_exporter's textfile collector.
package metrics
