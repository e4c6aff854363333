package health

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// MachineRun is one machine's independent scoring job.
type MachineRun struct {
	ID         string
	Samples    []SensorSample
	Model      *TrainedModel
	Classifier ClassifierConfig
}

// ScoreMachines scores independent machines in parallel. Each run owns its
// model and classifier; results are keyed by machine ID and never combined.
// parallelism <= 0 means no limit. The first failing run cancels the rest.
func ScoreMachines(ctx context.Context, runs []MachineRun, parallelism int) (map[string][]ScoredSample, error) {
	seen := make(map[string]bool, len(runs))
	for _, r := range runs {
		if seen[r.ID] {
			return nil, fmt.Errorf("%w: duplicate machine id %q", ErrInvalidInput, r.ID)
		}
		seen[r.ID] = true
	}

	results := make([][]ScoredSample, len(runs))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, run := range runs {
		i, run := i, run
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			scored, err := Score(run.Samples, run.Model, run.Classifier)
			if err != nil {
				return fmt.Errorf("machine %q: %w", run.ID, err)
			}
			results[i] = scored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]ScoredSample, len(runs))
	for i, run := range runs {
		out[run.ID] = results[i]
	}
	return out, nil
}
