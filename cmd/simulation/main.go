package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/casperlundberg/offload-autoscale-env/internal/config"
	"github.com/casperlundberg/offload-autoscale-env/internal/database"
	"github.com/casperlundberg/offload-autoscale-env/internal/logging"
	"github.com/casperlundberg/offload-autoscale-env/internal/simulation"
	"github.com/casperlundberg/offload-autoscale-env/pkg/baseline"
	"github.com/casperlundberg/offload-autoscale-env/pkg/env"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("EDGESIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "simulation",
		Short: "Run a baseline controller against the edge offload/autoscale environment",
		Long: `Runs one baseline policy (fixed, myopic, random or constant) for a number of
time slots, resetting at every episode boundary, and stores every slot in the
analytics database.

Every flag can also be set through an EDGESIM_ environment variable, e.g.
EDGESIM_POLICY=fixed EDGESIM_BUDGET=900.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, cmd.OutOrStdout())
		},
	}

	flags := root.Flags()
	flags.String("config", "configs/simulation.yaml", "path to YAML config file")
	flags.String("db", "analytics.db", "path to SQLite database file")
	flags.String("policy", baseline.NameMyopic, "policy to run: "+strings.Join(baseline.Names(), ", "))
	flags.Float64("budget", 600, "compute power budget of the fixed policy")
	flags.Float64("action", 0.5, "action repeated by the constant policy")
	flags.Int("slots", 100, "number of time slots to simulate")
	flags.Uint64("seed", 1234, "random seed")
	flags.String("name", "baseline simulation", "run name")
	flags.String("description", "", "run description")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	_ = v.BindPFlags(flags)

	return root
}

// loadConfig reads the config file and applies flags and environment
// variables that were set explicitly.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return nil, err
	}

	if v.IsSet("db") {
		cfg.Database.Path = v.GetString("db")
	}
	if v.IsSet("policy") {
		cfg.Simulation.Policy = v.GetString("policy")
	}
	if v.IsSet("budget") {
		cfg.Simulation.Budget = v.GetFloat64("budget")
	}
	if v.IsSet("action") {
		cfg.Simulation.Action = v.GetFloat64("action")
	}
	if v.IsSet("slots") {
		cfg.Simulation.Slots = v.GetInt("slots")
	}
	if v.IsSet("seed") {
		cfg.Simulation.Seed = v.GetUint64("seed")
	}
	if v.IsSet("name") {
		cfg.Simulation.Name = v.GetString("name")
	}
	if v.IsSet("description") {
		cfg.Simulation.Description = v.GetString("description")
	}
	if v.IsSet("log-level") {
		cfg.Logging.Level = v.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sim := cfg.Simulation
	policy, err := baseline.New(sim.Policy, baseline.Config{Budget: sim.Budget, Action: sim.Action, Seed: sim.Seed})
	if err != nil {
		return err
	}

	e, err := env.New(cfg.Parameters, env.WithSeed(sim.Seed), env.WithLogger(logger))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := database.NewRepository(db)

	dbCollector, err := simulation.NewDBCollector(repo, simulation.RunMeta{
		Name:        sim.Name,
		Description: sim.Description,
		Policy:      policy.Name(),
		Seed:        sim.Seed,
		Slots:       sim.Slots,
		Parameters:  cfg.Parameters,
	}, sim.BatchSize)
	if err != nil {
		return err
	}
	logger.Info("Created run", zap.String("run_id", dbCollector.RunID()))

	runner := simulation.NewRunner(e, policy,
		simulation.WithCollector(dbCollector),
		simulation.WithLogger(logger.With(zap.String("run_id", dbCollector.RunID()))))

	start := time.Now()
	report, err := runner.Run(ctx, sim.Slots)
	if err != nil {
		_ = dbCollector.CollectEvent(sim.Slots, database.EventRunFailed, simulation.SeverityError, err.Error(), nil)
		_ = dbCollector.Close(database.StatusFailed)
		return fmt.Errorf("simulation failed: %w", err)
	}
	if err := dbCollector.Close(database.StatusCompleted); err != nil {
		return err
	}
	logger.Info("Simulation completed", zap.Duration("elapsed", time.Since(start)))

	summary, err := repo.GetRunSummary(dbCollector.RunID())
	if err != nil {
		return err
	}
	printSummary(out, report, summary)
	return nil
}

func printSummary(out io.Writer, report *simulation.Report, summary *database.RunSummary) {
	avg := report.Latest()

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run\t%s\n", summary.Run.ID)
	fmt.Fprintf(tw, "Policy\t%s\n", report.Policy)
	fmt.Fprintf(tw, "Slots\t%d (%d infeasible, %d degenerate, %d floored)\n",
		report.Slots, report.InfeasibleSlots, report.DegenerateSlots, report.ClampedSlots)
	fmt.Fprintf(tw, "Episodes\t%d\n", report.Episodes)
	fmt.Fprintln(tw, "----\t----")
	fmt.Fprintf(tw, "Avg total cost\t%.4f\n", avg.Total)
	fmt.Fprintf(tw, "Avg delay cost\t%.4f\n", avg.Delay)
	fmt.Fprintf(tw, "Avg energy cost\t%.4f\n", avg.Energy)
	fmt.Fprintf(tw, "  backup\t%.4f\n", avg.Backup)
	fmt.Fprintf(tw, "  battery\t%.4f\n", avg.Battery)
	fmt.Fprintf(tw, "Avg servers\t%.2f\n", summary.AvgServers)
	fmt.Fprintf(tw, "Min battery\t%.2f\n", summary.MinBattery)
	fmt.Fprintf(tw, "Total reward\t%.4f\n", summary.TotalReward)
	tw.Flush()
}
