// Package pipeline runs the stages of an indexing job in sequence.
//
// A job is crawl, persist documents, build index, persist index. The CLI
// commands are different slices of that chain: `crawl` stops after the
// documents file, `index` starts by loading it, and `build` runs the whole
// chain. Each stage is a Step that reads and fills a shared State, so
// the stages stay independent of each other and of the command wiring.
package pipeline
