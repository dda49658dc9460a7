package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kris-hansen/recipeforge/utils/executor"
	"github.com/kris-hansen/recipeforge/utils/recipe"
	"github.com/kris-hansen/recipeforge/utils/registry"
	"github.com/kris-hansen/recipeforge/utils/state"
)

func init() {
	registry.Register("parallel", newParallelStep)
}

type parallelConfig struct {
	Substeps       []recipe.Step `json:"substeps"`
	MaxConcurrency *int          `json:"max_concurrency"`
	Delay          float64       `json:"delay"`
	FailFast       *bool         `json:"fail_fast"`
}

type parallelStep struct {
	logger   *log.Logger
	cfg      parallelConfig
	limit    int
	failFast bool
}

func newParallelStep(logger *log.Logger, raw json.RawMessage) (registry.Step, error) {
	var cfg parallelConfig
	if err := decodeConfig("parallel", raw, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Substeps) == 0 {
		return nil, &ConfigError{StepType: "parallel", Message: "substeps must be non-empty"}
	}

	limit := 1
	if cfg.MaxConcurrency != nil {
		limit = *cfg.MaxConcurrency
	}
	failFast := true
	if cfg.FailFast != nil {
		failFast = *cfg.FailFast
	}

	return &parallelStep{logger: logger, cfg: cfg, limit: limit, failFast: failFast}, nil
}

// ParallelSubstepError names which substep (by position) failed, mirroring
// LoopItemError for the fan-out-for-side-effects case (spec §4.C10).
type ParallelSubstepError struct {
	Index int
	Cause error
}

func (e *ParallelSubstepError) Error() string {
	return fmt.Sprintf("parallel substep %d: %v", e.Index, e.Cause)
}

func (e *ParallelSubstepError) Unwrap() error { return e.Cause }

// Run executes each configured substep exactly once, each against its own
// state clone (mutations do not propagate to the parent: substeps are a
// fan-out-for-side-effects pattern per spec §4.C10). Concurrency and
// fail-fast semantics mirror the Loop step.
func (s *parallelStep) Run(ctx context.Context, st *state.State) error {
	n := len(s.cfg.Substeps)

	runOne := func(gctx context.Context, i int) error {
		clone := st.Clone()
		single := s.cfg.Substeps[i]
		if runErr := executor.New(s.logger).Run(gctx, &recipe.Recipe{Steps: []recipe.Step{single}}, clone); runErr != nil {
			return &ParallelSubstepError{Index: i, Cause: runErr}
		}
		return nil
	}

	if s.failFast {
		g, gctx := errgroup.WithContext(ctx)
		if s.limit > 0 {
			g.SetLimit(s.limit)
		}
		for i := 0; i < n; i++ {
			i := i
			if err := sleepBetween(gctx, s.cfg.Delay, i); err != nil {
				break
			}
			g.Go(func() error { return runOne(gctx, i) })
		}
		return g.Wait()
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	sem := newSemaphore(s.limit)

	for i := 0; i < n; i++ {
		i := i
		_ = sleepBetween(ctx, s.cfg.Delay, i)
		sem.acquire()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.release()
			errs[i] = runOne(ctx, i)
		}()
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
