package fingerprint

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Input is one file to fingerprint.
type Input struct {
	Path    string
	Source  []byte
	ModTime time.Time
}

// Result is the outcome for one input. Err carries a PARSE_ERROR when the
// structure signature degraded; Record and Fingerprint are still valid then.
type Result struct {
	Record      *FileRecord
	Fingerprint *Fingerprint
	Err         error
}

// ComputeAll fingerprints a batch of files using a bounded worker pool.
// Each worker owns its own parser, so workers share no mutable state.
// Results align index-for-index with inputs. Cancellation is cooperative:
// the context is checked between files and the context error is returned
// once in-flight work drains.
func ComputeAll(ctx context.Context, inputs []Input, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	results := make([]Result, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	indexes := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			computer := NewComputer()
			for i := range indexes {
				record, fp, err := computer.Compute(ctx, inputs[i].Path, inputs[i].Source, inputs[i].ModTime)
				results[i] = Result{Record: record, Fingerprint: fp, Err: err}
			}
		}()
	}

	var cancelled error
feed:
	for i := range inputs {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	if cancelled != nil {
		return results, cancelled
	}
	return results, nil
}
