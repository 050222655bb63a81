package database

import (
	"context"
	"slices"

	"github.com/nao1215/webindex/internal/model"
)

// RunDiff lists how the extracted pages of two runs differ.
type RunDiff struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`

	// Added holds URLs extracted in To but not in From.
	Added []string `json:"added"`
	// Removed holds URLs extracted in From but not in To.
	Removed []string `json:"removed"`
	// Changed holds URLs extracted in both whose content hash differs.
	Changed []string `json:"changed"`
	// Unchanged counts URLs extracted in both with the same hash.
	Unchanged int `json:"unchanged"`
}

// HasChanges reports whether anything was added, removed or changed.
func (d *RunDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0
}

// CompareRuns diffs the extracted pages of two runs. URL lists are sorted.
func (cdb *CrawlDB) CompareRuns(ctx context.Context, from, to int64) (*RunDiff, error) {
	for _, id := range []int64{from, to} {
		if _, err := cdb.GetRun(ctx, id); err != nil {
			return nil, err
		}
	}

	before, err := cdb.extractedHashes(ctx, from)
	if err != nil {
		return nil, err
	}
	after, err := cdb.extractedHashes(ctx, to)
	if err != nil {
		return nil, err
	}

	diff := &RunDiff{
		From:    from,
		To:      to,
		Added:   []string{},
		Removed: []string{},
		Changed: []string{},
	}
	for url, hash := range after {
		old, ok := before[url]
		switch {
		case !ok:
			diff.Added = append(diff.Added, url)
		case old != hash:
			diff.Changed = append(diff.Changed, url)
		default:
			diff.Unchanged++
		}
	}
	for url := range before {
		if _, ok := after[url]; !ok {
			diff.Removed = append(diff.Removed, url)
		}
	}

	slices.Sort(diff.Added)
	slices.Sort(diff.Removed)
	slices.Sort(diff.Changed)
	return diff, nil
}

func (cdb *CrawlDB) extractedHashes(ctx context.Context, runID int64) (map[string]string, error) {
	outcomes, err := cdb.ListOutcomes(ctx, runID)
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]string)
	for _, o := range outcomes {
		if o.State == model.StateExtracted {
			hashes[o.URL] = o.ContentHash
		}
	}
	return hashes, nil
}
