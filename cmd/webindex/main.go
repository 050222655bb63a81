// Package main provides the entry point for the webindex CLI.
//
// webindex crawls websites politely, builds an inverted index of the
// visible text of the pages it fetched, and answers keyword queries
// against that index.
//
// Usage:
//
//	webindex crawl https://example.com/
//	webindex index
//	webindex search "query terms"
//
// See --help for all available options.
package main

func main() {
	Execute()
}
