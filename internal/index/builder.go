package index

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/webindex/internal/model"
)

// InvertedIndex maps a term to the ids of the documents containing it.
// Posting lists are duplicate-free and sorted by numeric id.
type InvertedIndex map[string][]string

// DocumentMeta is what a search result needs to present a document.
// The text is left out; it is not used after indexing.
type DocumentMeta struct {
	URL    string        `json:"url"`
	Images []model.Image `json:"images"`
	Videos []model.Video `json:"videos"`
}

// DocumentMap maps a document id to its metadata.
type DocumentMap map[string]DocumentMeta

// Errors returned by Validate.
var (
	// ErrUnknownDocument means a posting refers to an id missing from the DocumentMap.
	ErrUnknownDocument = errors.New("posting refers to unknown document")
	// ErrUnsortedPostings means a posting list is not strictly ascending.
	ErrUnsortedPostings = errors.New("posting list is not sorted or has duplicates")
)

// Build indexes docs. Ids are assigned 1..N in input order.
// An empty input yields an empty, non-nil index and map.
func Build(docs []model.Document) (InvertedIndex, DocumentMap) {
	idx := make(InvertedIndex)
	docMap := make(DocumentMap, len(docs))

	for i, doc := range docs {
		id := strconv.Itoa(i + 1)
		docMap[id] = DocumentMeta{
			URL:    doc.URL,
			Images: nonNil(doc.Images),
			Videos: nonNil(doc.Videos),
		}
		for _, term := range Terms(doc.Text) {
			idx[term] = append(idx[term], id)
		}
	}

	for term, postings := range idx {
		idx[term] = normalizePostings(postings)
	}
	return idx, docMap
}

// Postings returns the posting list for term, or nil.
func (idx InvertedIndex) Postings(term string) []string {
	return idx[term]
}

// Validate checks that every posting list is sorted, duplicate-free and
// refers only to documents in docs.
func (idx InvertedIndex) Validate(docs DocumentMap) error {
	for term, postings := range idx {
		for i, id := range postings {
			if _, ok := docs[id]; !ok {
				return fmt.Errorf("%w: term %q, id %q", ErrUnknownDocument, term, id)
			}
			if i > 0 && CompareIDs(postings[i-1], id) >= 0 {
				return fmt.Errorf("%w: term %q", ErrUnsortedPostings, term)
			}
		}
	}
	return nil
}

// CompareIDs orders document ids numerically. Ids that are not numbers
// sort after numeric ones, lexicographically among themselves.
func CompareIDs(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(na, nb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

func normalizePostings(postings []string) []string {
	slices.SortFunc(postings, CompareIDs)
	return slices.Compact(postings)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return make([]T, 0)
	}
	return s
}
