// internal/chaos/experiments.go
package chaos

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/libranexus/discovery/internal/discovery"
	"github.com/libranexus/discovery/internal/resilience"
)

// Target is the system under test: an engine whose stores are wrapped by the
// two injectors.
type Target struct {
	Engine      discovery.Service
	Catalog     *Injector
	Circulation *Injector
}

type Options struct {
	Duration time.Duration
	Interval time.Duration
	// Settle must exceed the breaker timeout for outage recovery to be observed.
	Settle time.Duration
	// Latency injected into the catalog store.
	Latency time.Duration
	// Budget is the text search latency ceiling.
	Budget  time.Duration
	Workers int
	// Calls per success-rate sample.
	Calls int
}

func DefaultOptions() Options {
	return Options{
		Duration: 30 * time.Second,
		Interval: 2 * time.Second,
		Settle:   35 * time.Second,
		Latency:  100 * time.Millisecond,
		Budget:   500 * time.Millisecond,
		Workers:  16,
		Calls:    10,
	}
}

// Standard returns the built-in experiments in the order a game day runs them.
func Standard(t Target, o Options) []Experiment {
	return []Experiment{
		CirculationOutage(t, o),
		CatalogLatency(t, o),
		ConcurrentPopularity(t, o),
	}
}

// CirculationOutage fails every circulation store call.
func CirculationOutage(t Target, o Options) Experiment {
	success := popularSuccessRate(t.Engine, o.Calls)
	return Experiment{
		Name:        "circulation-outage",
		Hypothesis:  "popularity fails fast while circulation is down and recovers once it is back",
		SteadyState: []Metric{success},
		Probes:      []Metric{popularFailFast(t.Engine, o.Calls)},
		Method: []Action{{
			Type:   "failure",
			Target: "circulation",
			Execute: func(context.Context) error {
				t.Circulation.Fail(1)
				return nil
			},
		}},
		Rollback: []Action{reset("circulation", t.Circulation)},
		Validation: []Assertion{
			{
				Metric:    "popular_fail_fast_pct",
				Condition: func(v float64) bool { return v >= 50 },
				Message:   "an open breaker should reject most calls without touching the store",
			},
			{
				Metric:    success.Name,
				Recovered: true,
				Condition: func(v float64) bool { return v == 100 },
				Message:   "popularity should fully recover after the outage",
			},
		},
		Duration: o.Duration,
		Interval: o.Interval,
		Settle:   o.Settle,
	}
}

// CatalogLatency slows every catalog store call down.
func CatalogLatency(t Target, o Options) Experiment {
	latency := textSearchLatency(t.Engine, o.Budget)
	within := func(v float64) bool { return v < float64(o.Budget.Milliseconds()) }
	return Experiment{
		Name:        "catalog-latency",
		Hypothesis:  "text search stays within its latency budget while the catalog is slow",
		SteadyState: []Metric{latency},
		Method: []Action{{
			Type:   "latency",
			Target: "catalog",
			Execute: func(context.Context) error {
				t.Catalog.Delay(o.Latency, o.Latency/5)
				return nil
			},
		}},
		Rollback: []Action{reset("catalog", t.Catalog)},
		Validation: []Assertion{
			{Metric: latency.Name, Condition: within, Message: "latency budget exceeded under load"},
			{Metric: latency.Name, Recovered: true, Condition: within, Message: "latency did not recover"},
		},
		Duration: o.Duration,
		Interval: o.Interval,
	}
}

// ConcurrentPopularity hammers the popularity ranking from many goroutines
// while both stores answer with random delays.
func ConcurrentPopularity(t Target, o Options) Experiment {
	consistency := popularConsistency(t.Engine, o.Workers)
	identical := func(v float64) bool { return v == 100 }
	jitter := o.Latency / 10
	return Experiment{
		Name:        "concurrent-popularity",
		Hypothesis:  "concurrent callers always see the same popularity ranking",
		SteadyState: []Metric{consistency},
		Method: []Action{
			{Type: "latency", Target: "catalog", Execute: func(context.Context) error {
				t.Catalog.Delay(0, jitter)
				return nil
			}},
			{Type: "latency", Target: "circulation", Execute: func(context.Context) error {
				t.Circulation.Delay(0, jitter)
				return nil
			}},
		},
		Rollback: []Action{reset("catalog", t.Catalog), reset("circulation", t.Circulation)},
		Validation: []Assertion{
			{Metric: consistency.Name, Condition: identical, Message: "rankings diverged under concurrency"},
			{Metric: consistency.Name, Recovered: true, Condition: identical, Message: "rankings diverged after rollback"},
		},
		Duration: o.Duration,
		Interval: o.Interval,
	}
}

func reset(target string, i *Injector) Action {
	return Action{Type: "reset", Target: target, Execute: func(context.Context) error {
		i.Reset()
		return nil
	}}
}

const popularSample = 5

func popularSuccessRate(engine discovery.Service, calls int) Metric {
	return Metric{
		Name: "popular_success_pct",
		Query: func(ctx context.Context) (float64, error) {
			ok := 0
			for range calls {
				if _, err := engine.Popular(ctx, popularSample); err == nil {
					ok++
				}
			}
			return percent(ok, calls), nil
		},
		Threshold: Threshold{Operator: "==", Value: 100},
	}
}

// popularFailFast reports the share of failed calls that were rejected by a
// breaker rather than reaching the store. No failures at all counts as 100.
func popularFailFast(engine discovery.Service, calls int) Metric {
	return Metric{
		Name: "popular_fail_fast_pct",
		Query: func(ctx context.Context) (float64, error) {
			failed, rejected := 0, 0
			for range calls {
				_, err := engine.Popular(ctx, popularSample)
				if err == nil {
					continue
				}
				failed++
				if errors.Is(err, resilience.ErrUnavailable) {
					rejected++
				}
			}
			if failed == 0 {
				return 100, nil
			}
			return percent(rejected, failed), nil
		},
		Threshold: Threshold{Operator: ">=", Value: 0},
	}
}

func textSearchLatency(engine discovery.Service, budget time.Duration) Metric {
	return Metric{
		Name: "text_search_latency_ms",
		Query: func(ctx context.Context) (float64, error) {
			start := time.Now()
			if _, err := engine.TextSearch(ctx, "the"); err != nil {
				return 0, err
			}
			return float64(time.Since(start).Microseconds()) / 1000, nil
		},
		Threshold: Threshold{Operator: "<", Value: float64(budget.Milliseconds())},
	}
}

func popularConsistency(engine discovery.Service, workers int) Metric {
	return Metric{
		Name: "popular_consistency_pct",
		Query: func(ctx context.Context) (float64, error) {
			rankings := make([][]uuid.UUID, workers)
			var wg sync.WaitGroup
			for w := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ranked, err := engine.Popular(ctx, popularSample)
					if err != nil {
						return
					}
					ids := make([]uuid.UUID, len(ranked))
					for i, b := range ranked {
						ids[i] = b.ID
					}
					rankings[w] = ids
				}()
			}
			wg.Wait()

			same := 0
			for _, r := range rankings {
				if r != nil && slices.Equal(r, rankings[0]) {
					same++
				}
			}
			return percent(same, workers), nil
		},
		Threshold: Threshold{Operator: "==", Value: 100},
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
