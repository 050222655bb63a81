// Package index builds the inverted index that the searcher queries.
//
// Documents get ids "1".."N" in the order they were crawled. Every term
// of a document's text maps to the ids of the documents containing it.
// The index records presence only: a term repeated in one document adds
// a single posting.
//
// Tokenize is shared with the search package. A term is only findable if
// the query is normalized exactly like the indexed text, so both sides
// must call the same function.
package index
