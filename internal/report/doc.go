// Package report renders command results for people and tools.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown for sharing crawl summaries in issues and docs
//
// Each writer renders three kinds of result: a crawl summary, search hits
// and the crawl history. Writers implement the Writer interface so the CLI
// picks one from the --json and --markdown flags and never branches on
// the format again.
package report
