// Package search answers keyword queries against a built index.
//
// A query is tokenized exactly like indexed text. Each document is scored
// by a Scorer; the default TermMatchScorer counts how many distinct query
// terms the document contains. Results with score zero are dropped, the
// rest are ordered by score, highest first. Documents with equal scores
// keep the order in which the scorer first encountered them.
//
// The index is held in an immutable Snapshot published through an atomic
// pointer. Reload builds the next snapshot off to the side and swaps it
// in, so concurrent searches see either the old index or the new one.
package search
