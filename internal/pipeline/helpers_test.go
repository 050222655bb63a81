package pipeline

import (
	"sync"

	"github.com/nao1215/webindex/internal/crawler"
	"github.com/nao1215/webindex/internal/model"
)

// crawlerRecorder appends outcomes to dst. Recorders may be called from
// several goroutines.
func crawlerRecorder(dst *[]model.Outcome) crawler.OutcomeRecorder {
	var mu sync.Mutex
	return crawler.OutcomeRecorderFunc(func(o model.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		*dst = append(*dst, o)
	})
}
