// Package engine orchestrates the full analysis pipeline: metric
// calculation, rule evaluation, interaction chaining, history filtering,
// personalization, the optional model overlay, and persistence of the
// evolving per-user state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pulseplan/pulseplan/internal/adapt"
	"github.com/pulseplan/pulseplan/internal/domain"
	"github.com/pulseplan/pulseplan/internal/explain"
	"github.com/pulseplan/pulseplan/internal/interaction"
	"github.com/pulseplan/pulseplan/internal/metrics"
	"github.com/pulseplan/pulseplan/internal/ml"
	"github.com/pulseplan/pulseplan/internal/preempt"
	"github.com/pulseplan/pulseplan/internal/rules"
	"github.com/pulseplan/pulseplan/internal/sim"
	"github.com/pulseplan/pulseplan/internal/store"
	"github.com/pulseplan/pulseplan/internal/telemetry"
)

const lockShards = 64

// confidenceStep is added to the signature confidence after each analysis.
const confidenceStep = 0.05

// Engine is the externally-facing recommendation engine. Safe for
// concurrent use; analyses for the same user are serialized, different
// users run fully parallel.
type Engine struct {
	store store.Store

	calc         *metrics.Calculator
	analyzer     *interaction.Analyzer
	filter       *adapt.HistoryFilter
	personalizer *adapt.Personalizer
	explainer    *explain.Generator
	planner      *preempt.Planner
	simulator    *sim.Simulator
	overlay      *ml.Overlay
	telemetry    *telemetry.MetricsRegistry

	now func() time.Time

	mu      sync.RWMutex
	rollout *domain.RuleSetVersion

	locks [lockShards]sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithOverlay installs a model overlay. Nil disables it.
func WithOverlay(overlay *ml.Overlay) Option {
	return func(e *Engine) { e.overlay = overlay }
}

// WithSimulator overrides the default simulator.
func WithSimulator(s *sim.Simulator) Option {
	return func(e *Engine) { e.simulator = s }
}

// WithTelemetry installs a shared metrics registry.
func WithTelemetry(t *telemetry.MetricsRegistry) Option {
	return func(e *Engine) { e.telemetry = t }
}

// WithClock overrides the engine clock; used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
		e.filter = adapt.NewHistoryFilterAt(now)
		e.planner = preempt.NewPlannerAt(now)
	}
}

// New constructs an engine over the given store.
func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        st,
		calc:         metrics.NewCalculator(),
		analyzer:     interaction.NewAnalyzer(interaction.DefaultTable()),
		filter:       adapt.NewHistoryFilter(),
		personalizer: adapt.NewPersonalizer(),
		explainer:    explain.NewGenerator(),
		planner:      preempt.NewPlanner(),
		simulator:    sim.NewSimulator(),
		telemetry:    telemetry.NewMetricsRegistry(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze runs the full pipeline for one snapshot and returns the sorted
// recommendation list.
func (e *Engine) Analyze(ctx context.Context, userID string, snap domain.MetricsSnapshot) ([]domain.Recommendation, error) {
	report, err := e.AnalyzeWithExplanation(ctx, userID, snap, ReportOptions{})
	if err != nil {
		return nil, err
	}
	return report.Recommendations, nil
}

// ReportOptions selects the optional sections of an analysis report.
type ReportOptions struct {
	// Simulate runs the what-if simulator over the final recommendations.
	Simulate bool
}

// AnalysisReport is the full output of one analysis cycle.
type AnalysisReport struct {
	UserID          string                   `json:"user_id"`
	GeneratedAt     time.Time                `json:"generated_at"`
	RuleSet         string                   `json:"rule_set"`
	Recommendations []domain.Recommendation  `json:"recommendations"`
	FiredRules      []domain.RuleID          `json:"fired_rules"`
	Interaction     *interaction.Applied     `json:"interaction,omitempty"`
	Explanation     *explain.Explanation     `json:"explanation"`
	PreemptivePlan  *preempt.Plan            `json:"preemptive_plan"`
	Simulation      *sim.Result              `json:"simulation,omitempty"`
	StageTimings    map[string]time.Duration `json:"stage_timings"`
}

// AnalyzeWithExplanation runs the pipeline and assembles the full report.
func (e *Engine) AnalyzeWithExplanation(ctx context.Context, userID string, snap domain.MetricsSnapshot, opts ReportOptions) (*AnalysisReport, error) {
	if userID == "" {
		return nil, errors.New("empty user id")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := &e.locks[shardFor(userID)]
	lock.Lock()
	defer lock.Unlock()

	ctx, span := telemetry.StartStage(ctx, "analyze", userID)
	defer span.End()

	now := e.now()
	timings := make(map[string]time.Duration)
	tags := snap.ContextTags()
	sig, weights, history := e.loadState(ctx, userID, now)

	var sigMetrics domain.SignatureMetrics
	e.timedRun(ctx, timings, "metrics", userID, func() {
		sigMetrics = e.calc.Compute(snap, sig)
	})

	ruleSet, ruleSetName, rollout := e.ruleSetFor(userID)
	if rollout != nil {
		weights.SeedBase(rollout.Weights)
	}
	var fired []rules.Fired
	e.timedRun(ctx, timings, "rules", userID, func() {
		fired = ruleSet.EvaluateAll(snap, sig, sigMetrics)
	})
	firedIDs := make([]domain.RuleID, 0, len(fired))
	for _, f := range fired {
		firedIDs = append(firedIDs, f.Rule)
		e.telemetry.RulesFired.WithLabelValues(string(f.Rule)).Inc()
	}

	var recs []domain.Recommendation
	var applied *interaction.Applied
	e.timedRun(ctx, timings, "interaction", userID, func() {
		recs, applied = e.analyzer.Apply(fired)
	})

	e.timedRun(ctx, timings, "history_filter", userID, func() {
		recs = e.filter.Apply(recs, history, weights, tags)
	})

	e.timedRun(ctx, timings, "personalize", userID, func() {
		recs = e.personalizer.Apply(recs, sig)
	})

	if e.overlay != nil {
		e.timedRun(ctx, timings, "model_overlay", userID, func() {
			recs = e.overlay.Apply(ctx, snap, sigMetrics, recs)
		})
		result := "rejected"
		for _, r := range recs {
			if r.MLAdjusted {
				result = "applied"
				break
			}
		}
		e.telemetry.ModelPredictions.WithLabelValues(result).Inc()
	}
	domain.SortByPriority(recs)

	var explanation *explain.Explanation
	e.timedRun(ctx, timings, "explain", userID, func() {
		explanation = e.explainer.Generate(recs, sigMetrics, sig, history)
	})

	var plan *preempt.Plan
	e.timedRun(ctx, timings, "preempt", userID, func() {
		plan = e.planner.Build(sigMetrics, sig)
	})

	var simResult *sim.Result
	if opts.Simulate {
		var err error
		e.timedRun(ctx, timings, "simulate", userID, func() {
			simResult, err = e.simulator.Run(ctx, userID, snap, sigMetrics, recs)
		})
		if err != nil {
			e.telemetry.AnalysisErrors.WithLabelValues("simulate").Inc()
			log.Warn().Err(err).Str("user_id", userID).Msg("simulation failed, report continues without it")
			simResult = nil
		}
		if simResult != nil {
			if simResult.CacheHit {
				e.telemetry.SimCacheHits.Inc()
			} else {
				e.telemetry.SimCacheMisses.Inc()
				e.telemetry.SimTrials.Add(float64(simResult.Trials))
			}
		}
	}

	e.persistState(ctx, userID, sig, weights, recs, firedIDs, tags, now)

	e.telemetry.AnalysesTotal.Inc()
	for stage, d := range timings {
		e.telemetry.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
	for _, r := range recs {
		e.telemetry.Recommendations.WithLabelValues(string(r.Type), r.Priority.String()).Inc()
	}

	log.Debug().
		Str("user_id", userID).
		Str("rule_set", ruleSetName).
		Int("fired", len(fired)).
		Int("recommendations", len(recs)).
		Msg("analysis complete")

	return &AnalysisReport{
		UserID:          userID,
		GeneratedAt:     now,
		RuleSet:         ruleSetName,
		Recommendations: recs,
		FiredRules:      firedIDs,
		Interaction:     applied,
		Explanation:     explanation,
		PreemptivePlan:  plan,
		Simulation:      simResult,
		StageTimings:    timings,
	}, nil
}

// RecordOutcome attaches an observed outcome to a past recommendation and
// folds its effectiveness into the user's learned weights. An unknown
// recommendation id is a logged no-op, not an error.
func (e *Engine) RecordOutcome(ctx context.Context, userID, recommendationID string, outcome domain.Outcome) error {
	lock := &e.locks[shardFor(userID)]
	lock.Lock()
	defer lock.Unlock()

	history, err := e.store.ListHistory(ctx, userID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	var matched *domain.AdaptationHistoryEntry
	for i := range history {
		if history[i].Recommendation.ID == recommendationID {
			matched = &history[i]
			break
		}
	}
	if matched == nil {
		log.Warn().
			Str("user_id", userID).
			Str("recommendation_id", recommendationID).
			Msg("outcome for unknown recommendation ignored")
		return nil
	}

	eff := outcome.Effectiveness()
	if _, err := e.store.RecordOutcome(ctx, userID, recommendationID, outcome, eff); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}

	now := e.now()
	weights, err := e.store.GetWeights(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("user_id", userID).Msg("weights load failed, starting from defaults")
		}
		weights = domain.NewDefaultRuleWeights(userID)
	}
	weights.RecordFeedback(matched.Recommendation.Type, matched.Recommendation.SourceRules, matched.ContextTags, eff, now)
	if err := e.store.PutWeights(ctx, weights); err != nil {
		return fmt.Errorf("persist weights: %w", err)
	}

	log.Debug().
		Str("user_id", userID).
		Str("recommendation_id", recommendationID).
		Float64("effectiveness", eff).
		Msg("outcome recorded")
	return nil
}

// DeployRuleSetVersion activates a rule-set version for a percentage of
// users. Assignment is a stable hash of the user id, so a user stays in
// the same group across analyses.
func (e *Engine) DeployRuleSetVersion(ctx context.Context, version domain.RuleSetVersion, testGroupPercent int) error {
	if testGroupPercent < 0 || testGroupPercent > 100 {
		return fmt.Errorf("test group percent %d outside [0, 100]", testGroupPercent)
	}
	if version.Name == "" {
		return errors.New("rule set version needs a name")
	}
	version.TestGroupPercent = testGroupPercent
	if version.ActivatedAt.IsZero() {
		version.ActivatedAt = e.now()
	}
	if err := e.store.PutRuleSet(ctx, &version); err != nil {
		return fmt.Errorf("persist rule set: %w", err)
	}

	e.mu.Lock()
	e.rollout = &version
	e.mu.Unlock()

	log.Info().
		Str("name", version.Name).
		Str("version", version.Version).
		Int("test_group_percent", testGroupPercent).
		Msg("rule set version deployed")
	return nil
}

// ruleSetFor resolves the active rule set for a user: the deployed rollout
// version when the user's bucket falls inside the test group, the full
// default set otherwise. The version is returned alongside so its weights
// can seed the user's learned base weights.
func (e *Engine) ruleSetFor(userID string) (*rules.Set, string, *domain.RuleSetVersion) {
	e.mu.RLock()
	rollout := e.rollout
	e.mu.RUnlock()

	if rollout == nil || rollout.RetiredAt != nil {
		return rules.DefaultSet(), "default", nil
	}
	if int(userBucket(userID)) < rollout.TestGroupPercent {
		return rules.NewSet(rollout), rollout.Name, rollout
	}
	return rules.DefaultSet(), "default", nil
}

// loadState fetches signature, weights, and history, synthesizing defaults
// for a first-seen user or on a degraded store.
func (e *Engine) loadState(ctx context.Context, userID string, now time.Time) (*domain.UserSignature, *domain.RuleWeights, []domain.AdaptationHistoryEntry) {
	sig, err := e.store.GetSignature(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("user_id", userID).Msg("signature load failed, using defaults")
		}
		sig = domain.NewDefaultSignature(userID, now)
	}

	weights, err := e.store.GetWeights(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("user_id", userID).Msg("weights load failed, using defaults")
		}
		weights = domain.NewDefaultRuleWeights(userID)
	}

	history, err := e.store.ListHistory(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("history load failed, filtering skipped")
		history = nil
	}
	return sig, weights, history
}

// persistState writes back the evolved signature, weights, and one history
// entry per issued recommendation. Persistence failures never fail the
// analysis; the recommendations are already computed.
func (e *Engine) persistState(ctx context.Context, userID string, sig *domain.UserSignature, weights *domain.RuleWeights, recs []domain.Recommendation, fired []domain.RuleID, tags []string, now time.Time) {
	sig.RaiseConfidence(confidenceStep)
	sig.LastUpdated = now
	if err := e.store.PutSignature(ctx, sig); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("signature persist failed")
	}
	if err := e.store.PutWeights(ctx, weights); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("weights persist failed")
	}
	for _, rec := range recs {
		entry := domain.AdaptationHistoryEntry{
			UserID:         userID,
			Timestamp:      now,
			TriggeredRules: fired,
			Recommendation: rec,
			Effectiveness:  0.5,
			ContextTags:    tags,
		}
		if err := e.store.AppendHistory(ctx, entry); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("history persist failed")
		}
	}
}

// timedRun runs one pipeline stage under its own span and records its
// duration.
func (e *Engine) timedRun(ctx context.Context, timings map[string]time.Duration, stage, userID string, fn func()) {
	_, span := telemetry.StartStage(ctx, stage, userID)
	defer span.End()
	start := e.now()
	fn()
	timings[stage] = e.now().Sub(start)
}

func shardFor(userID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return h.Sum32() % lockShards
}

// userBucket maps a user id to a stable bucket in [0, 100).
func userBucket(userID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(userID))
	return h.Sum64() % 100
}
