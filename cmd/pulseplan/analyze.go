package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/pulseplan/pulseplan/internal/config"
	"github.com/pulseplan/pulseplan/internal/domain"
	"github.com/pulseplan/pulseplan/internal/engine"
	"github.com/pulseplan/pulseplan/internal/ml"
	"github.com/pulseplan/pulseplan/internal/sim"
	"github.com/pulseplan/pulseplan/internal/store"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a telemetry snapshot and print recommendations",
		Long:  "Reads a metrics snapshot from a YAML file, runs the full pipeline, and prints the analysis report.",
		RunE:  runAnalyze,
	}
	addAnalysisFlags(cmd.Flags())
	return cmd
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Analyze a snapshot and simulate recommendation outcomes",
		Long:  "Runs the analysis pipeline, then Monte Carlo simulation of the resulting recommendations against a life-event scenario.",
		RunE:  runSimulate,
	}
	addAnalysisFlags(cmd.Flags())
	return cmd
}

func newRuleSetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rulesets",
		Short: "List deployed rule-set versions",
		RunE:  runRuleSets,
	}
}

// addAnalysisFlags registers the flags shared by analyze and simulate.
func addAnalysisFlags(flags *pflag.FlagSet) {
	flags.String("snapshot", "", "Path to the snapshot YAML file (required)")
	flags.String("user", "", "User id (defaults to the snapshot's user_id)")
	flags.String("output", "text", "Output format (text|json)")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	return runAnalysis(cmd, false)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	return runAnalysis(cmd, true)
}

func runAnalysis(cmd *cobra.Command, simulate bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	snapPath, _ := cmd.Flags().GetString("snapshot")
	if snapPath == "" {
		return fmt.Errorf("--snapshot is required")
	}
	snap, err := loadSnapshot(snapPath)
	if err != nil {
		return err
	}

	userID, _ := cmd.Flags().GetString("user")
	if userID == "" {
		userID = snap.UserID
	}
	if userID == "" {
		return fmt.Errorf("no user id in snapshot or --user flag")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	eng, cleanup, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := eng.AnalyzeWithExplanation(ctx, userID, *snap, engine.ReportOptions{Simulate: simulate})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	format, _ := cmd.Flags().GetString("output")
	if format == "json" {
		return json.NewEncoder(os.Stdout).Encode(report)
	}
	printReport(report)
	return nil
}

func runRuleSets(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	st, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	versions, err := st.ListRuleSets(ctx)
	if err != nil {
		return fmt.Errorf("list rule sets: %w", err)
	}
	if len(versions) == 0 {
		fmt.Println("No rule-set versions deployed.")
		return nil
	}
	for _, v := range versions {
		status := "active"
		if v.RetiredAt != nil {
			status = "retired"
		}
		fmt.Printf("%-24s %-10s %3d%%  %s  rules=%d\n",
			v.Name, v.Version, v.TestGroupPercent, status, len(v.ActiveRules))
	}
	return nil
}

func loadSnapshot(path string) (*domain.MetricsSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap domain.MetricsSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot YAML: %w", err)
	}
	return &snap, nil
}

// buildStore constructs the configured persistence backend. The returned
// cleanup releases any connections.
func buildStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "redis":
		rs := store.NewRedisStore(cfg.Storage.Redis)
		if err := rs.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("redis unreachable: %w", err)
		}
		return rs, func() {}, nil
	case "postgres":
		ps, err := store.NewPostgresStore(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return ps, func() { _ = ps.Close() }, nil
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}

func buildEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, func(), error) {
	st, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []engine.Option{
		engine.WithSimulator(sim.NewSimulator(
			sim.WithTrials(cfg.Simulation.Trials),
			sim.WithCacheLimits(cfg.Simulation.CacheEntries, cfg.Simulation.CacheTTL),
		)),
	}

	if cfg.Model.Enabled {
		guard := ml.DefaultGuardConfig()
		if cfg.Model.ConsecutiveFailures > 0 {
			guard.ConsecutiveFailures = cfg.Model.ConsecutiveFailures
		}
		if cfg.Model.BreakerTimeout > 0 {
			guard.Timeout = cfg.Model.BreakerTimeout
		}
		if cfg.Model.RateLimit > 0 {
			guard.RequestsPerSecond = cfg.Model.RateLimit
		}
		if cfg.Model.RateBurst > 0 {
			guard.Burst = cfg.Model.RateBurst
		}
		provider := ml.NewGuardedProvider(ml.NewStaticProvider(ml.ModelStatus(cfg.Model.Status)), guard)
		opts = append(opts, engine.WithOverlay(ml.NewOverlay(provider)))
	}

	eng := engine.New(st, opts...)

	for _, v := range cfg.RuleSetVersions(time.Now()) {
		if err := eng.DeployRuleSetVersion(ctx, v, v.TestGroupPercent); err != nil {
			log.Warn().Err(err).Str("name", v.Name).Msg("configured rule set not deployed")
		}
	}
	return eng, cleanup, nil
}

func printReport(report *engine.AnalysisReport) {
	fmt.Printf("Analysis for %s (%s rule set)\n", report.UserID, report.RuleSet)
	fmt.Printf("Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339))

	if len(report.Recommendations) == 0 {
		fmt.Println("No changes recommended. Plan is on track.")
	}
	for i, rec := range report.Recommendations {
		fmt.Printf("%d. [%s] %s (%d days)\n", i+1, rec.Priority, rec.Type, rec.DurationDays)
		for _, adj := range rec.Adjustments {
			fmt.Printf("     %s %+.0f%%\n", adj.Target, adj.Delta)
		}
		if rec.Explanation != "" {
			fmt.Printf("     %s\n", rec.Explanation)
		}
	}

	if report.Explanation != nil {
		fmt.Printf("\nWhy: %s (confidence %.0f%%)\n", report.Explanation.PrimaryReason, report.Explanation.Confidence*100)
		for _, risk := range report.Explanation.RiskFactors {
			fmt.Printf("  Risk: %s\n", risk)
		}
	}

	if plan := report.PreemptivePlan; plan != nil && len(plan.EarlyWarnings) > 0 {
		fmt.Println("\nEarly warnings:")
		for _, w := range plan.EarlyWarnings {
			fmt.Printf("  %s: %d days to critical\n", w.Metric, w.DaysToCritical)
		}
	}

	if simResult := report.Simulation; simResult != nil {
		fmt.Printf("\nSimulation (%d trials, %s): expected value %.1f, confidence %.0f%%\n",
			simResult.Trials, simResult.Scenario, simResult.ExpectedValue, simResult.Confidence*100)
	}
}
