// Package model defines the core data structures shared by the crawler,
// the indexer and the searcher.
//
// This package contains the following main types:
//   - Document: A successfully extracted page (text plus media references)
//   - Image, Video: Media references found on a page
//   - Outcome: The terminal state a frontier entry reached during a crawl
//
// Models are kept in their own package so that crawler, index, store and
// database can share them without import cycles. All of them serialize to
// JSON because the pipeline stages exchange them through files.
package model
