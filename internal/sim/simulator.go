package sim

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// DefaultTrials is the trial count per simulation unless overridden.
const DefaultTrials = 100

// Result is the aggregate returned to the caller. Individual outcomes are
// ephemeral; only the aggregate is cached.
type Result struct {
	Trials        int     `json:"trials"`
	BestPath      Outcome `json:"best_path"`
	WorstPath     Outcome `json:"worst_path"`
	ExpectedValue float64 `json:"expected_value"`
	Confidence    float64 `json:"confidence"` // always within [0.5, 0.95]
	CacheHit      bool    `json:"cache_hit"`
	Scenario      string  `json:"scenario"`
}

// Simulator runs Monte Carlo trials over a scenario. Trials fan out across
// a bounded worker pool; aggregation waits for every trial before computing
// statistics.
type Simulator struct {
	trials   int
	workers  int
	scenario Scenario
	cache    *resultCache
	seed     func() int64

	// trialsRun counts executed trials, exposed so cache behavior is
	// verifiable.
	trialsRun atomic.Int64
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithTrials overrides the trial count.
func WithTrials(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.trials = n
		}
	}
}

// WithScenario replaces the default scenario model.
func WithScenario(sc Scenario) Option {
	return func(s *Simulator) { s.scenario = sc }
}

// WithSeed pins the random source, for reproducible tests.
func WithSeed(seed int64) Option {
	return func(s *Simulator) { s.seed = func() int64 { return seed } }
}

// WithCacheLimits bounds the result cache.
func WithCacheLimits(maxEntries int, ttl time.Duration) Option {
	return func(s *Simulator) { s.cache = newResultCache(maxEntries, ttl) }
}

// NewSimulator builds a simulator with the default scenario and a bounded
// result cache.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		trials:   DefaultTrials,
		workers:  8,
		scenario: DefaultScenario(),
		cache:    newResultCache(defaultCacheEntries, defaultCacheTTL),
		seed:     func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TrialsRun reports the total trials executed so far, across all calls.
func (s *Simulator) TrialsRun() int64 {
	return s.trialsRun.Load()
}

// Run simulates the proposed recommendations for one user. Identical inputs
// (user, stress, consistency, recommendation types) return the cached
// aggregate without re-running trials.
func (s *Simulator) Run(ctx context.Context, userID string, snap domain.MetricsSnapshot, m domain.SignatureMetrics, recs []domain.Recommendation) (*Result, error) {
	key := cacheKey(userID, snap, recs)
	if cached, ok := s.cache.get(key); ok {
		out := *cached
		out.CacheHit = true
		log.Debug().Str("user_id", userID).Str("key", key).Msg("simulation served from cache")
		return &out, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulation aborted before start: %w", err)
	}

	outcomes := s.runTrials(m, recs)
	result := s.aggregate(outcomes)

	s.cache.put(key, result)
	return result, nil
}

// runTrials fans the trial loop out over the worker pool and waits for all
// trials; there is no early cancellation inside a run.
func (s *Simulator) runTrials(m domain.SignatureMetrics, recs []domain.Recommendation) []Outcome {
	outcomes := make([]Outcome, s.trials)
	jobs := make(chan int)

	var wg sync.WaitGroup
	baseSeed := s.seed()
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := range jobs {
				rng := rand.New(rand.NewSource(baseSeed + int64(i)))
				outcomes[i] = s.runTrial(rng, m, recs)
				s.trialsRun.Add(1)
			}
		}(w)
	}
	for i := 0; i < s.trials; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

// runTrial applies the recommendations to a fresh metric copy, then rolls
// each stochastic factor independently against its probability.
func (s *Simulator) runTrial(rng *rand.Rand, m domain.SignatureMetrics, recs []domain.Recommendation) Outcome {
	state := newTrialState(m)
	state.applyRecommendations(recs)

	var path []string
	var cost float64
	for _, f := range s.scenario.Factors {
		if rng.Float64() >= f.Probability {
			continue
		}
		path = append(path, f.Name)
		// Impact scales with how much of the horizon the factor occupies.
		weight := float64(f.DurationDays) / float64(s.scenario.HorizonDays)
		if weight > 1 {
			weight = 1
		}
		for target, delta := range f.Impacts {
			state.apply(target, delta*(0.5+weight))
		}
		cost += float64(f.DurationDays)
	}
	return state.score(path, cost)
}

// aggregate folds the trial outcomes into the reported statistics.
func (s *Simulator) aggregate(outcomes []Outcome) *Result {
	best, worst := 0, 0
	var sumExpected, sumProgress float64
	for i, o := range outcomes {
		if o.ProgressScore > outcomes[best].ProgressScore {
			best = i
		}
		if o.ProgressScore < outcomes[worst].ProgressScore {
			worst = i
		}
		sumExpected += 0.5*o.ProgressScore + 0.3*o.AdherenceScore + 0.2*o.SatisfactionScore
		sumProgress += o.ProgressScore
	}

	n := float64(len(outcomes))
	meanProgress := sumProgress / n
	var variance float64
	for _, o := range outcomes {
		d := o.ProgressScore - meanProgress
		variance += d * d
	}
	variance /= n

	return &Result{
		Trials:        len(outcomes),
		BestPath:      outcomes[best],
		WorstPath:     outcomes[worst],
		ExpectedValue: sumExpected / n,
		Confidence:    confidenceFromVariance(variance),
		Scenario:      s.scenario.Name,
	}
}

// confidenceFromVariance maps 1 - variance/1000 into [0.5, 0.95],
// clamped regardless of variance magnitude.
func confidenceFromVariance(variance float64) float64 {
	c := 1 - variance/1000
	if c < 0.5 {
		return 0.5
	}
	if c > 0.95 {
		return 0.95
	}
	return c
}

// cacheKey derives the idempotency key from the user, the relevant metric
// subset (stress, consistency), and the set of recommendation types. Types
// are sorted so two candidate lists with the same types in a different
// order share one cached aggregate.
func cacheKey(userID string, snap domain.MetricsSnapshot, recs []domain.Recommendation) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%.1f|%.2f", snap.Lifestyle.StressLevel, snap.Progress.WeeklyConsistency)

	types := make([]string, 0, len(recs))
	for _, r := range recs {
		types = append(types, string(r.Type))
	}
	sort.Strings(types)
	return fmt.Sprintf("sim:%s:%x:%s", userID, h.Sum64(), strings.Join(types, "+"))
}
