// Package cli defines the optexec command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"text/tabwriter"

	"optimal_execution/internal/bootstrap"
	"optimal_execution/internal/config"
	"optimal_execution/internal/report"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X optimal_execution/internal/cli.Version=...".
var Version = "dev"

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "optexec",
		Short: "optexec - optimal execution of large orders",
		Long: `optexec computes cost-minimizing trade schedules for large orders under
transient market impact, calibrates per-ticker liquidity bounds and stress-tests
the optimizer with Monte Carlo scenario batches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Configuration file path (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before the configuration")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override system.log_level")

	rootCmd.AddCommand(newSolveCmd(opts))
	rootCmd.AddCommand(newSimulateCmd(opts))
	rootCmd.AddCommand(newLiquidityCmd(opts))
	rootCmd.AddCommand(newRunsCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func (o *rootOptions) load() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.System.LogLevel = o.logLevel
	}
	o.cfg = cfg
	return nil
}

// withApp validates the (flag-adjusted) configuration, builds the application
// and runs fn under its lifecycle.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, app *bootstrap.App) error) error {
	if err := opts.cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	app, err := bootstrap.NewApp(opts.cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run(cmd.Context(), bootstrap.RunnerFunc(func(ctx context.Context) error {
		return fn(ctx, app)
	}))
}

func newSolveCmd(opts *rootOptions) *cobra.Command {
	var orderSize, maxTradeFraction float64
	var periods int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "solve [TICKER]",
		Short: "Optimize one execution schedule",
		Long: `Optimize one execution schedule and print it as JSON.
Without a ticker the configured market parameters are used; with a ticker its
calibration file and liquidity bound are applied.
Example: optexec solve AAPL --order-size=250000 --periods=20`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("order-size") {
				opts.cfg.Market.OrderSize = orderSize
			}
			if flags.Changed("periods") {
				opts.cfg.Market.Periods = periods
			}
			if flags.Changed("max-trade-fraction") {
				opts.cfg.Market.MaxTradeFraction = maxTradeFraction
			}
			if flags.Changed("seed") {
				opts.cfg.Optimizer.Seed = seed
			}

			ticker := ""
			if len(args) == 1 {
				ticker = strings.ToUpper(args[0])
			}
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				rep, err := app.Solve(ctx, ticker)
				if err != nil {
					return err
				}
				return report.WriteJSON(cmd.OutOrStdout(), rep)
			})
		},
	}

	cmd.Flags().Float64Var(&orderSize, "order-size", 0, "Order size in shares")
	cmd.Flags().IntVar(&periods, "periods", 0, "Number of trading periods")
	cmd.Flags().Float64Var(&maxTradeFraction, "max-trade-fraction", 0, "Per-period bound as a fraction of the order (ignored for calibrated tickers)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Optimizer seed")

	return cmd
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var scenarios, workers int
	var outputDir string
	var conservative bool

	cmd := &cobra.Command{
		Use:   "simulate [TICKER...]",
		Short: "Run Monte Carlo scenario batches",
		Long: `Run a Monte Carlo batch per ticker, each scenario solved on the worker pool,
and save the report as simulation_results_<timestamp>.json in the output directory.
Tickers default to simulation.tickers.
Example: optexec simulate AAPL NVDA --scenarios=50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("scenarios") {
				opts.cfg.Simulation.Scenarios = scenarios
			}
			if flags.Changed("workers") {
				opts.cfg.Simulation.Workers = workers
			}
			if flags.Changed("output-dir") {
				opts.cfg.Data.OutputDir = outputDir
			}
			if flags.Changed("conservative") {
				opts.cfg.Liquidity.Conservative = conservative
			}

			tickers := opts.cfg.Simulation.Tickers
			if len(args) > 0 {
				tickers = make([]string, len(args))
				for i, a := range args {
					tickers[i] = strings.ToUpper(a)
				}
			}
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Simulate(ctx, tickers)
				if err != nil {
					return err
				}
				printSimulation(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&scenarios, "scenarios", 0, "Scenarios per ticker")
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker pool size (0 means CPU count - 1)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for the JSON report")
	cmd.Flags().BoolVar(&conservative, "conservative", true, "Tighten liquidity bounds")

	return cmd
}

func printSimulation(w io.Writer, res *bootstrap.SimulationResult) {
	rep := res.Report
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tTIER\tBOUND\tN\tFAILED\tMEAN\tSTD\tMIN\tMAX\tCV")
	for _, ticker := range rep.Metadata.Tickers {
		a, ok := rep.Analysis[ticker]
		if !ok {
			continue
		}
		tier := "fallback"
		if a.Tier != nil {
			tier = a.Tier.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%d\t%d\t%s\t%s\t%s\t%s\t%.4f\n",
			ticker, tier, a.MaxTradeFraction, a.Count, a.Failed,
			a.Mean.StringFixed(2), a.StdDev.StringFixed(2), a.Min.StringFixed(2), a.Max.StringFixed(2), a.CV)
	}
	_ = tw.Flush()

	for _, s := range rep.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.Ticker, s.Reason)
	}
	fmt.Fprintf(w, "%d/%d scenarios succeeded (%.1f%%)\n", rep.Metadata.Succeeded, rep.Metadata.Attempted, rep.Metadata.SuccessRate*100)
	fmt.Fprintf(w, "report: %s\n", res.Path)
}

func newLiquidityCmd(opts *rootOptions) *cobra.Command {
	var orderSize float64

	cmd := &cobra.Command{
		Use:   "liquidity TICKER",
		Short: "Show the calibrated liquidity bound of a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := strings.ToUpper(args[0])
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				profile, err := app.Liquidity(ctx, ticker, orderSize)
				if err != nil {
					return err
				}
				return report.WriteJSON(cmd.OutOrStdout(), profile)
			})
		},
	}

	cmd.Flags().Float64Var(&orderSize, "order-size", 0, "Order size in shares (defaults to market.order_size)")

	return cmd
}

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List simulation runs stored in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.Data.DatabasePath == "" {
				return fmt.Errorf("data.database_path is not configured")
			}
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				runs, err := app.Store.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN ID\tCREATED\tSCENARIOS\tSUCCEEDED\tATTEMPTED")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", r.RunID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Scenarios, r.Succeeded, r.Attempted)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs (0 lists all)")

	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), opts.cfg.String())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	})

	return configCmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "optexec %s\n", Version)
		},
	}
}
