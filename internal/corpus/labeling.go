package corpus

import (
	"context"
	"runtime"
	"sync"

	"github.com/fertilizer-advisor/internal/domain"
	"github.com/fertilizer-advisor/internal/rules"
)

// LabeledSample is a soil sample together with its rule-derived targets.
type LabeledSample struct {
	domain.SoilSample
	domain.Recommendation
}

// chunkSize is the number of samples one worker labels per acquisition.
const chunkSize = 256

// LabelBatch labels samples on a bounded pool of workers. The output has the
// same length and order as the input. workers <= 0 uses GOMAXPROCS.
func LabelBatch(ctx context.Context, samples []domain.SoilSample, workers int) ([]LabeledSample, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]LabeledSample, len(samples))
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for start := 0; start < len(samples); start += chunkSize {
		end := min(start+chunkSize, len(samples))

		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		}

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			for i := lo; i < hi; i++ {
				if ctx.Err() != nil {
					return
				}
				out[i] = LabeledSample{
					SoilSample:     samples[i],
					Recommendation: rules.LabelSample(samples[i]),
				}
			}
		}(start, end)
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
