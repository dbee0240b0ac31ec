package annotate

import (
	"runtime"
	"sync"

	"github.com/inodb/vibe-agg/internal/dataset"
	"github.com/inodb/vibe-agg/internal/search"
	"github.com/inodb/vibe-agg/internal/variant"
)

// WorkItem holds a raw document ready for shaping.
type WorkItem struct {
	Seq int
	Hit search.Hit
}

// WorkResult holds the shaped summary of a single document.
type WorkResult struct {
	Seq     int
	Hit     search.Hit
	Summary *variant.Summary
	Err     error
}

// ParallelShape shapes work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (s *Shaper) ParallelShape(items <-chan WorkItem, workers int, ctx variant.Context, m dataset.Modality) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				r := WorkResult{Seq: item.Seq, Hit: item.Hit}
				doc, err := DecodeVariant(item.Hit.Source)
				if err != nil {
					r.Err = err
				} else {
					r.Summary = s.Shape(doc, ctx, m)
				}
				results <- r
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
