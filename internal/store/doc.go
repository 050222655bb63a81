// Package store reads and writes the JSON artifacts shared by the crawl,
// index and search stages:
//
//   - documents.json: the ordered list of crawled documents
//   - inverted_index.json: term to document ids
//   - inverted_index_doc_map.json: document id to URL and media
//
// Writes go to a temporary file in the same directory that is renamed
// over the target, so a reader never sees a half-written file.
//
// Every failure is returned as a *PersistenceError naming the operation
// and the file.
package store
