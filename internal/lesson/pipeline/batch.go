package pipeline

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// BatchResult is the outcome for one script in a batch run.
type BatchResult struct {
	ScriptPath string
	Output     *Output
	Err        error
}

// GenerateBatch runs the pipeline for every script path with a bounded
// worker pool. Lessons share nothing, so batches are parallel at lesson
// granularity; workers bounds concurrency against external engine rate
// limits. Results come back in input order.
func (p *Pipeline) GenerateBatch(ctx context.Context, scriptPaths []string, outputDir string, workers int) []BatchResult {
	if workers <= 0 {
		workers = 1
	}
	results := make([]BatchResult, len(scriptPaths))

	type job struct {
		idx  int
		path string
	}
	jobs := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				logrus.WithField("script", j.path).Info("generating lesson")
				out, err := p.GenerateFromFile(ctx, j.path, outputDir)
				results[j.idx] = BatchResult{ScriptPath: j.path, Output: out, Err: err}
			}
		}()
	}
	for i, path := range scriptPaths {
		jobs <- job{idx: i, path: path}
	}
	close(jobs)
	wg.Wait()

	return results
}
