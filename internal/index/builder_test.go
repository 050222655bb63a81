package index

import (
	"errors"
	"slices"
	"strconv"
	"testing"

	"github.com/nao1215/webindex/internal/model"
)

func doc(url, text string) model.Document {
	d := model.NewDocument(url)
	d.Text = text
	return *d
}

func TestBuild(t *testing.T) {
	t.Parallel()

	t.Run("assigns ids in input order", func(t *testing.T) {
		t.Parallel()

		_, docMap := Build([]model.Document{
			doc("http://example.com/1", "one"),
			doc("http://example.com/2", "two"),
			doc("http://example.com/3", "three"),
		})

		for i := 1; i <= 3; i++ {
			id := strconv.Itoa(i)
			want := "http://example.com/" + id
			if docMap[id].URL != want {
				t.Errorf("expected id %s to map to %s, got %s", id, want, docMap[id].URL)
			}
		}
	})

	t.Run("records presence not frequency", func(t *testing.T) {
		t.Parallel()

		idx, _ := Build([]model.Document{
			doc("http://example.com/a", "fox fox FOX"),
			doc("http://example.com/b", "the fox"),
		})

		if got := idx.Postings("fox"); !slices.Equal(got, []string{"1", "2"}) {
			t.Errorf("expected [1 2], got %v", got)
		}
		if got := idx.Postings("the"); !slices.Equal(got, []string{"2"}) {
			t.Errorf("expected [2], got %v", got)
		}
	})

	t.Run("posting lists are numerically sorted", func(t *testing.T) {
		t.Parallel()

		docs := make([]model.Document, 12)
		for i := range docs {
			docs[i] = doc("http://example.com/"+strconv.Itoa(i), "common")
		}
		idx, docMap := Build(docs)

		postings := idx.Postings("common")
		if len(postings) != 12 {
			t.Fatalf("expected 12 postings, got %d", len(postings))
		}
		if !slices.IsSortedFunc(postings, CompareIDs) {
			t.Errorf("postings not sorted: %v", postings)
		}
		if postings[len(postings)-1] != "12" {
			t.Errorf("expected 12 last, got %v", postings)
		}
		if err := idx.Validate(docMap); err != nil {
			t.Errorf("expected valid index, got %v", err)
		}
	})

	t.Run("document map keeps media and drops text", func(t *testing.T) {
		t.Parallel()

		d := doc("http://example.com/", "some text")
		d.Images = []model.Image{{Src: "http://example.com/a.png", Alt: "a"}}
		d.Videos = []model.Video{{Src: "http://example.com/v.mp4", Kind: model.VideoDirect}}

		_, docMap := Build([]model.Document{d})
		meta := docMap["1"]
		if len(meta.Images) != 1 || len(meta.Videos) != 1 {
			t.Errorf("expected media to be kept, got %+v", meta)
		}
	})

	t.Run("nil media become empty slices", func(t *testing.T) {
		t.Parallel()

		_, docMap := Build([]model.Document{{URL: "http://example.com/", Text: "x"}})
		if docMap["1"].Images == nil || docMap["1"].Videos == nil {
			t.Error("expected non-nil media slices")
		}
	})

	t.Run("empty input gives empty index", func(t *testing.T) {
		t.Parallel()

		idx, docMap := Build(nil)
		if idx == nil || docMap == nil {
			t.Fatal("expected non-nil results")
		}
		if len(idx) != 0 || len(docMap) != 0 {
			t.Errorf("expected empty results, got %d terms and %d documents", len(idx), len(docMap))
		}
	})

	t.Run("documents without text are still mapped", func(t *testing.T) {
		t.Parallel()

		idx, docMap := Build([]model.Document{doc("http://example.com/", "")})
		if len(idx) != 0 {
			t.Errorf("expected no terms, got %v", idx)
		}
		if _, ok := docMap["1"]; !ok {
			t.Error("expected document 1 in map")
		}
	})

	t.Run("every indexed term of a document finds it", func(t *testing.T) {
		t.Parallel()

		texts := []string{"The quick brown fox", "jumps over the lazy dog", "ＱＵＩＣＫ Straße"}
		docs := make([]model.Document, len(texts))
		for i, text := range texts {
			docs[i] = doc("http://example.com/"+strconv.Itoa(i), text)
		}
		idx, _ := Build(docs)

		for i, text := range texts {
			id := strconv.Itoa(i + 1)
			for _, term := range Tokenize(text) {
				if !slices.Contains(idx.Postings(term), id) {
					t.Errorf("term %q of document %s not indexed", term, id)
				}
			}
		}
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	docs := DocumentMap{"1": {}, "2": {}, "10": {}}

	tests := []struct {
		name string
		idx  InvertedIndex
		want error
	}{
		{"valid", InvertedIndex{"a": {"1", "2", "10"}}, nil},
		{"unknown id", InvertedIndex{"a": {"1", "3"}}, ErrUnknownDocument},
		{"lexicographic order", InvertedIndex{"a": {"1", "10", "2"}}, ErrUnsortedPostings},
		{"duplicate", InvertedIndex{"a": {"2", "2"}}, ErrUnsortedPostings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.idx.Validate(docs)
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCompareIDs(t *testing.T) {
	t.Parallel()

	ids := []string{"10", "b", "2", "a", "1"}
	slices.SortFunc(ids, CompareIDs)
	want := []string{"1", "2", "10", "a", "b"}
	if !slices.Equal(ids, want) {
		t.Errorf("expected %v, got %v", want, ids)
	}
}
