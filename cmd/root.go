package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eric2969/OR2025-Final/app"
	"github.com/eric2969/OR2025-Final/config"
	"github.com/eric2969/OR2025-Final/infra/logger"
)

var cfgPath string

// newService builds the service behind every command. Overridable in tests.
var newService = func(cfg *config.Config) (*app.Service, error) { return app.New(cfg) }

var rootCmd = &cobra.Command{
	Use:           "rebalance",
	Short:         "Multi-period fleet rebalancing planner",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json); env REBAL_* only when empty")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// planFlags are the overrides shared by the planning commands.
type planFlags struct {
	input     string
	area      string
	strategy  string
	batchSize int
	timeLimit float64
	gap       float64
	out       string
	prefix    string
	json      bool
	strict    bool
}

func (f *planFlags) register(cmd *cobra.Command, withStrategy bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.input, "input", "", "demand CSV")
	fs.StringVar(&f.area, "area", "", "keep only stations of this area")
	if withStrategy {
		fs.StringVar(&f.strategy, "strategy", "", "batched, full or greedy")
	}
	fs.IntVar(&f.batchSize, "batch-size", 0, "periods per window in batched mode")
	fs.Float64Var(&f.timeLimit, "time-limit", 0, "time limit per window in seconds")
	fs.Float64Var(&f.gap, "gap", 0, "relative optimality gap")
	fs.StringVar(&f.out, "out", "", "output directory")
	fs.StringVar(&f.prefix, "prefix", "", "output file name prefix")
	fs.BoolVar(&f.json, "json", false, "also write the full plan as JSON")
	fs.BoolVar(&f.strict, "strict-ledger", false, "greedy: never release more than was hidden")
}

// apply copies the flags the user set onto cfg.
func (f *planFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	if fs.Changed("input") {
		cfg.Input.Path = f.input
	}
	if fs.Changed("area") {
		cfg.Input.Area = f.area
	}
	if fs.Changed("strategy") {
		cfg.Solver.Strategy = strings.ToLower(f.strategy)
	}
	if fs.Changed("batch-size") {
		cfg.Solver.BatchSize = f.batchSize
	}
	if fs.Changed("time-limit") {
		cfg.Solver.TimeLimitSeconds = f.timeLimit
	}
	if fs.Changed("gap") {
		cfg.Solver.Gap = f.gap
	}
	if fs.Changed("out") {
		cfg.Output.Dir = f.out
	}
	if fs.Changed("prefix") {
		cfg.Output.Prefix = f.prefix
	}
	if fs.Changed("json") {
		cfg.Output.JSON = f.json
	}
	if fs.Changed("strict-ledger") {
		cfg.Solver.StrictLedger = f.strict
	}
	return cfg.Validate()
}

// withService loads the configuration, applies mutate and runs fn with a
// started service. SIGINT and SIGTERM cancel the context.
func withService(mutate func(*config.Config) error, fn func(ctx context.Context, svc *app.Service) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if mutate != nil {
		if err := mutate(cfg); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	svc.Start(ctx)
	return fn(ctx, svc)
}
