package search

import (
	"github.com/nao1215/webindex/internal/index"
)

// Result is one matching document.
type Result struct {
	Score      float64 `json:"score"`
	DocumentID string  `json:"document_id"`
}

// Scorer assigns scores to documents for a tokenized query.
// Results must be returned in the order documents were first encountered;
// the Searcher sorts them stably.
type Scorer interface {
	Score(terms []string, idx index.InvertedIndex) []Result
}

// TermMatchScorer scores a document by the number of distinct query terms
// it contains.
type TermMatchScorer struct{}

// Score implements Scorer. terms are expected to be distinct.
func (TermMatchScorer) Score(terms []string, idx index.InvertedIndex) []Result {
	pos := make(map[string]int)
	var results []Result
	for _, term := range terms {
		for _, id := range idx.Postings(term) {
			i, ok := pos[id]
			if !ok {
				i = len(results)
				pos[id] = i
				results = append(results, Result{DocumentID: id})
			}
			results[i].Score++
		}
	}
	return results
}
