// internal/chaos/chaos.go

// Package chaos runs fault-injection experiments against the discovery engine.
//
// An experiment checks a steady state, injects faults, observes metrics for a
// while, rolls the faults back and then checks that the system recovered.
package chaos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/libranexus/discovery/internal/logging"
)

// ErrSteadyState is returned when the system is unhealthy before any fault is injected.
var ErrSteadyState = errors.New("steady state not met")

// Experiment describes one fault-injection run.
type Experiment struct {
	Name       string
	Hypothesis string
	// SteadyState metrics must hold before injection and are observed throughout.
	SteadyState []Metric
	// Probes are observed during and after injection but never gate the run.
	Probes     []Metric
	Method     []Action
	Rollback   []Action
	Validation []Assertion
	Duration   time.Duration
	// Interval between observations. Defaults to a tenth of Duration.
	Interval time.Duration
	// Settle is how long to wait after rollback before measuring recovery.
	Settle time.Duration
}

// Metric is a measurable property of the system.
type Metric struct {
	Name      string
	Query     func(context.Context) (float64, error)
	Threshold Threshold
}

type Threshold struct {
	Operator string // >, <, >=, <=, ==
	Value    float64
}

// Holds reports whether value satisfies the threshold.
func (t Threshold) Holds(value float64) bool {
	switch t.Operator {
	case ">":
		return value > t.Value
	case "<":
		return value < t.Value
	case ">=":
		return value >= t.Value
	case "<=":
		return value <= t.Value
	case "==":
		return value == t.Value
	default:
		return false
	}
}

// Action injects or removes a fault.
type Action struct {
	Type    string // latency, failure, reset
	Target  string
	Execute func(context.Context) error
}

// Assertion checks a metric once the experiment is over. Recovered assertions
// look at the value measured after rollback; the others at the last value
// observed while faults were active.
type Assertion struct {
	Metric    string
	Recovered bool
	Condition func(float64) bool
	Message   string
}

type Result struct {
	Experiment       string                 `json:"experiment"`
	StartTime        time.Time              `json:"start_time"`
	EndTime          time.Time              `json:"end_time"`
	Duration         time.Duration          `json:"duration"`
	SteadyStateValid bool                   `json:"steady_state_valid"`
	HypothesisHeld   bool                   `json:"hypothesis_held"`
	Violations       []Violation            `json:"violations"`
	Observations     map[string][]DataPoint `json:"observations"`
	Recovery         map[string]float64     `json:"recovery"`
	Failures         []string               `json:"failures"`
	Errors           []ErrorEvent           `json:"errors"`
	MTTR             *time.Duration         `json:"mttr,omitempty"`
}

type Violation struct {
	Metric    string    `json:"metric"`
	Expected  Threshold `json:"expected"`
	Actual    float64   `json:"actual"`
	Timestamp time.Time `json:"timestamp"`
}

type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Component string    `json:"component"`
}

// Engine runs experiments and keeps their results.
type Engine struct {
	tracer      trace.Tracer
	mu          sync.Mutex
	experiments []Experiment
	results     []Result
}

func NewEngine() *Engine {
	return &Engine{tracer: otel.Tracer("libranexus/chaos")}
}

func (e *Engine) Register(exps ...Experiment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.experiments = append(e.experiments, exps...)
}

func (e *Engine) Experiments() []Experiment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Experiment(nil), e.experiments...)
}

func (e *Engine) Results() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Result(nil), e.results...)
}

// Run executes a single experiment. Rollback actions always run once any
// fault has been injected.
func (e *Engine) Run(ctx context.Context, exp Experiment) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.run_experiment",
		trace.WithAttributes(attribute.String("experiment.name", exp.Name)),
	)
	defer span.End()

	log := logging.Ctx(ctx).With().Str("experiment", exp.Name).Logger()
	result := &Result{
		Experiment:   exp.Name,
		StartTime:    time.Now(),
		Observations: make(map[string][]DataPoint),
		Recovery:     make(map[string]float64),
	}

	span.AddEvent("validating_steady_state")
	if violations := e.steadyState(ctx, exp.SteadyState); len(violations) > 0 {
		result.Violations = violations
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
		span.SetStatus(codes.Error, ErrSteadyState.Error())
		return result, fmt.Errorf("%w: %d metric(s) out of range", ErrSteadyState, len(violations))
	}
	result.SteadyStateValid = true

	span.AddEvent("injecting_faults")
	e.execute(ctx, exp.Method, result)
	log.Info().Int("actions", len(exp.Method)).Msg("faults injected")

	span.AddEvent("observing")
	e.observe(ctx, exp, result)

	span.AddEvent("rolling_back")
	e.execute(ctx, exp.Rollback, result)

	if exp.Settle > 0 {
		select {
		case <-time.After(exp.Settle):
		case <-ctx.Done():
		}
	}
	measured := make([]Metric, 0, len(exp.SteadyState)+len(exp.Probes))
	measured = append(append(measured, exp.SteadyState...), exp.Probes...)
	for _, m := range measured {
		value, err := m.Query(ctx)
		if err != nil {
			result.Errors = append(result.Errors, ErrorEvent{Timestamp: time.Now(), Error: err.Error(), Component: m.Name})
			continue
		}
		result.Recovery[m.Name] = value
	}

	span.AddEvent("validating_assertions")
	result.Failures = validate(exp.Validation, result)
	result.HypothesisHeld = len(result.Failures) == 0
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	e.mu.Lock()
	e.results = append(e.results, *result)
	e.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("hypothesis_held", result.HypothesisHeld),
		attribute.Int("violations", len(result.Violations)),
	)
	return result, ctx.Err()
}

func (e *Engine) steadyState(ctx context.Context, metrics []Metric) []Violation {
	var violations []Violation
	for _, m := range metrics {
		value, err := m.Query(ctx)
		if err != nil {
			value = -1
		}
		if err != nil || !m.Threshold.Holds(value) {
			violations = append(violations, Violation{
				Metric: m.Name, Expected: m.Threshold, Actual: value, Timestamp: time.Now(),
			})
		}
	}
	return violations
}

func (e *Engine) execute(ctx context.Context, actions []Action, result *Result) {
	for _, a := range actions {
		if err := a.Execute(ctx); err != nil {
			result.Errors = append(result.Errors, ErrorEvent{Timestamp: time.Now(), Error: err.Error(), Component: a.Target})
			trace.SpanFromContext(ctx).RecordError(err)
		}
	}
}

func (e *Engine) observe(ctx context.Context, exp Experiment, result *Result) {
	interval := exp.Interval
	if interval <= 0 {
		interval = exp.Duration / 10
	}
	if interval <= 0 {
		interval = time.Second
	}

	octx, cancel := context.WithTimeout(ctx, exp.Duration)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var degradedAt time.Time
	for {
		select {
		case <-octx.Done():
			return
		case <-ticker.C:
		}

		healthy := true
		for _, m := range exp.SteadyState {
			value, ok := e.sample(ctx, m, result)
			if !ok {
				continue
			}
			if !m.Threshold.Holds(value) {
				healthy = false
				result.Violations = append(result.Violations, Violation{
					Metric: m.Name, Expected: m.Threshold, Actual: value, Timestamp: time.Now(),
				})
			}
		}
		for _, m := range exp.Probes {
			e.sample(ctx, m, result)
		}

		switch {
		case !healthy && degradedAt.IsZero():
			degradedAt = time.Now()
		case healthy && !degradedAt.IsZero() && result.MTTR == nil:
			mttr := time.Since(degradedAt)
			result.MTTR = &mttr
		}
	}
}

func (e *Engine) sample(ctx context.Context, m Metric, result *Result) (float64, bool) {
	value, err := m.Query(ctx)
	if err != nil {
		result.Errors = append(result.Errors, ErrorEvent{Timestamp: time.Now(), Error: err.Error(), Component: m.Name})
		return 0, false
	}
	result.Observations[m.Name] = append(result.Observations[m.Name], DataPoint{Timestamp: time.Now(), Value: value})
	return value, true
}

func validate(assertions []Assertion, result *Result) []string {
	var failures []string
	for _, a := range assertions {
		var (
			value float64
			ok    bool
		)
		if a.Recovered {
			value, ok = result.Recovery[a.Metric]
		} else if obs := result.Observations[a.Metric]; len(obs) > 0 {
			value, ok = obs[len(obs)-1].Value, true
		}
		if !ok {
			failures = append(failures, fmt.Sprintf("%s: no observation", a.Metric))
			continue
		}
		if !a.Condition(value) {
			failures = append(failures, fmt.Sprintf("%s: %s (got %.2f)", a.Metric, a.Message, value))
		}
	}
	return failures
}

// GameDay is a named series of experiments.
type GameDay struct {
	Name      string
	Scenarios []Experiment
	// Pause between scenarios.
	Pause time.Duration
}

// RunGameDay runs every scenario in order and returns how many hypotheses failed.
// A scenario whose steady state is not met counts as failed.
func (e *Engine) RunGameDay(ctx context.Context, day GameDay) (int, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.game_day",
		trace.WithAttributes(attribute.String("gameday.name", day.Name)),
	)
	defer span.End()

	logging.Info().Str("game_day", day.Name).Int("scenarios", len(day.Scenarios)).Msg("starting game day")

	failed := 0
	for i, exp := range day.Scenarios {
		if i > 0 && day.Pause > 0 {
			select {
			case <-time.After(day.Pause):
			case <-ctx.Done():
				return failed, ctx.Err()
			}
		}

		result, err := e.Run(ctx, exp)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return failed, err
		}
		logResult(exp, result, err)
		if err != nil || !result.HypothesisHeld {
			failed++
		}
	}

	span.SetAttributes(attribute.Int("failed", failed))
	return failed, nil
}

func logResult(exp Experiment, result *Result, err error) {
	event := logging.Info()
	if err != nil || !result.HypothesisHeld {
		event = logging.Warn()
	}
	event = event.
		Str("experiment", exp.Name).
		Str("hypothesis", exp.Hypothesis).
		Bool("held", err == nil && result.HypothesisHeld).
		Int("violations", len(result.Violations)).
		Strs("failures", result.Failures).
		Dur("duration", result.Duration)
	if result.MTTR != nil {
		event = event.Dur("mttr", *result.MTTR)
	}
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("experiment finished")
}
