package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kris-hansen/recipeforge/utils/executor"
	"github.com/kris-hansen/recipeforge/utils/recipe"
	"github.com/kris-hansen/recipeforge/utils/registry"
	"github.com/kris-hansen/recipeforge/utils/state"
	"github.com/kris-hansen/recipeforge/utils/template"
)

func init() {
	registry.Register("loop", newLoopStep)
}

type loopConfig struct {
	Items          interface{}   `json:"items"`
	ItemKey        string        `json:"item_key"`
	MaxConcurrency *int          `json:"max_concurrency"`
	Delay          float64       `json:"delay"`
	Substeps       []recipe.Step `json:"substeps"`
	ResultKey      string        `json:"result_key"`
	FailFast       *bool         `json:"fail_fast"`
}

type loopStep struct {
	logger   *log.Logger
	cfg      loopConfig
	limit    int
	failFast bool
}

func newLoopStep(logger *log.Logger, raw json.RawMessage) (registry.Step, error) {
	var cfg loopConfig
	if err := decodeConfig("loop", raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.ItemKey == "" {
		return nil, &ConfigError{StepType: "loop", Message: "item_key is required"}
	}
	if cfg.ResultKey == "" {
		return nil, &ConfigError{StepType: "loop", Message: "result_key is required"}
	}
	if cfg.Items == nil {
		return nil, &ConfigError{StepType: "loop", Message: "items is required"}
	}

	limit := 1
	if cfg.MaxConcurrency != nil {
		limit = *cfg.MaxConcurrency
	}
	failFast := true
	if cfg.FailFast != nil {
		failFast = *cfg.FailFast
	}

	return &loopStep{logger: logger, cfg: cfg, limit: limit, failFast: failFast}, nil
}

// LoopItemError is the per-iteration failure spec §4.C9/§7 names
// LoopItemError{index_or_key, cause}.
type LoopItemError struct {
	KeyOrIndex interface{}
	Cause      error
}

func (e *LoopItemError) Error() string {
	return fmt.Sprintf("loop item %v: %v", e.KeyOrIndex, e.Cause)
}

func (e *LoopItemError) Unwrap() error { return e.Cause }

func (s *loopStep) Run(ctx context.Context, st *state.State) error {
	items, keys, err := s.items(st)
	if err != nil {
		return err
	}
	n := len(items)

	keyOrIndex := func(i int) interface{} {
		if keys != nil {
			return keys[i]
		}
		return i
	}

	runOne := func(gctx context.Context, i int) (interface{}, error) {
		clone := st.Clone()
		clone.Set(s.cfg.ItemKey, items[i])
		if keys != nil {
			clone.Set("__key", keys[i])
		} else {
			clone.Set("__index", float64(i))
		}

		if runErr := executor.New(s.logger).Run(gctx, &recipe.Recipe{Steps: s.cfg.Substeps}, clone); runErr != nil {
			return nil, &LoopItemError{KeyOrIndex: keyOrIndex(i), Cause: runErr}
		}
		v, _ := clone.Get(s.cfg.ItemKey)
		return v, nil
	}

	results := make([]interface{}, n)

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
			g.Go(func() error {
				v, err := runOne(gctx, i)
				if err != nil {
					return err
				}
				results[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		st.Set(s.cfg.ResultKey, results)
		return nil
	}

	// fail_fast=false: every task launches and is awaited regardless of
	// earlier failures, so a plain WaitGroup is used instead of errgroup
	// (whose first-error-cancels semantics would be wrong here).
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
			v, err := runOne(ctx, i)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = v
		}()
	}
	wg.Wait()

	// result_key stays a length-n list (spec §3/§8's "len(result_key) ==
	// len(items)" invariant applies regardless of fail_fast): a failed
	// position holds a diagnostic marker in place of its item's value, and
	// the same markers are collected separately under "__errors".
	var accumulated []interface{}
	for i, e := range errs {
		if e == nil {
			continue
		}
		marker := map[string]interface{}{
			"index_or_key": keyOrIndex(i),
			"error":        e.Error(),
		}
		results[i] = marker
		accumulated = append(accumulated, marker)
	}

	st.Set(s.cfg.ResultKey, results)
	if len(accumulated) > 0 {
		st.Set("__errors", accumulated)
	}
	return nil
}

// items resolves s.cfg.Items into an ordered list plus, for mapping
// iteration, the parallel list of string keys (nil for list iteration).
// Per spec §9 ("Loop items as path vs. literal"): render first; if the
// rendered result is still a string, treat it as a dotted path into state;
// if it is a list/map (a sole "{{expr}}" resolved to its native value
// instead of being stringified), use it directly.
func (s *loopStep) items(st *state.State) ([]interface{}, []string, error) {
	raw := s.cfg.Items

	if strPath, ok := raw.(string); ok {
		rendered, err := template.RenderValue(strPath, st.Snapshot())
		if err != nil {
			return nil, nil, err
		}
		path, stillString := rendered.(string)
		if !stillString {
			return asCollection(rendered)
		}
		val, found := template.LookupDotted(path, st.Snapshot())
		if !found {
			return nil, nil, &ConfigError{StepType: "loop", Message: fmt.Sprintf("items path %q did not resolve in state", path)}
		}
		return asCollection(val)
	}

	return asCollection(raw)
}

func asCollection(val interface{}) ([]interface{}, []string, error) {
	switch v := val.(type) {
	case []interface{}:
		return v, nil, nil
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		list := make([]interface{}, 0, len(v))
		for k, item := range v {
			keys = append(keys, k)
			list = append(list, item)
		}
		return list, keys, nil
	case nil:
		return nil, nil, nil
	default:
		return nil, nil, &ConfigError{StepType: "loop", Message: fmt.Sprintf("items resolved to an unsupported type %T", val)}
	}
}

// sleepBetween staggers launch i by cfg.delay seconds (no sleep before the
// first task), returning early if gctx is cancelled mid-wait.
func sleepBetween(gctx context.Context, delay float64, i int) error {
	if delay <= 0 || i == 0 {
		return nil
	}
	select {
	case <-time.After(time.Duration(delay * float64(time.Second))):
		return nil
	case <-gctx.Done():
		return gctx.Err()
	}
}

// semaphore is a trivial counting semaphore used to bound concurrency in
// the fail_fast=false path, where errgroup.SetLimit is unavailable (a plain
// WaitGroup has no built-in cap). A zero/negative limit means unbounded.
type semaphore struct {
	ch chan struct{}
}

func newSemaphore(limit int) *semaphore {
	if limit <= 0 {
		return &semaphore{}
	}
	return &semaphore{ch: make(chan struct{}, limit)}
}

func (s *semaphore) acquire() {
	if s.ch != nil {
		s.ch <- struct{}{}
	}
}

func (s *semaphore) release() {
	if s.ch != nil {
		<-s.ch
	}
}
