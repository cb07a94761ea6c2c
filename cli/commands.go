package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"debond_gov/config"
	"debond_gov/contract/dao"
	"debond_gov/scenario"
	"debond_gov/telemetry"
)

const (
	Version   = "0.3.0"
	BuildTime = "dev"
	appName   = "dgov"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCmd builds the dgov command tree.
func NewRootCmd() *cobra.Command {
	var gf globalFlags
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Staking-weighted governance engine",
		Long: `dgov hosts the governance engine outside the chain: replay YAML
scenarios against a configured store and inspect proposals, stakes and
accounts.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&gf.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&gf.logFormat, "log-format", "", "Log format override (json, console)")

	cmd.AddCommand(runCmd(&gf), inspectCmd(&gf), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})
	return cmd
}

func (gf *globalFlags) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(gf.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if gf.logLevel != "" {
		cfg.Log.Level = gf.logLevel
	}
	if gf.logFormat != "" {
		cfg.Log.Format = gf.logFormat
	}
	log, err := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log.With(zap.String("app", appName)), nil
}

func runCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a scenario against the configured engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			cfg, log, err := gf.load()
			if err != nil {
				return err
			}
			clock := genesisClock(cfg)
			a, err := openApp(cfg, log, clock)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if a.registry != nil {
				mctx, cancel := context.WithCancel(ctx)
				defer cancel()
				go func() {
					if err := telemetry.Serve(mctx, cfg.Metrics.Listen, a.registry, log); err != nil {
						log.Error("metrics server", zap.Error(err))
					}
				}()
			}

			rep, err := scenario.NewRunner(a.g, clock, a.router, log).Run(ctx, sc)
			if rep != nil {
				printReport(cmd.OutOrStdout(), rep)
			}
			if err != nil {
				return err
			}
			if !rep.OK() {
				return fmt.Errorf("%d of %d steps failed", rep.Failed, len(rep.Steps))
			}
			return nil
		},
	}
}

func printReport(w io.Writer, rep *scenario.Report) {
	fmt.Fprintf(w, "run %s: %s\n", rep.RunID, rep.Name)
	for _, s := range rep.Steps {
		switch {
		case !s.OK:
			fmt.Fprintf(w, "  FAIL %3d %-8s %s\n", s.Index, s.Do, s.Detail)
		case s.Symbol != "":
			fmt.Fprintf(w, "  ok   %3d %-8s (%s)\n", s.Index, s.Do, s.Symbol)
		default:
			fmt.Fprintf(w, "  ok   %3d %s\n", s.Index, s.Do)
		}
	}
	fmt.Fprintf(w, "%d steps, %d failed\n", len(rep.Steps), rep.Failed)
}

func inspectCmd(gf *globalFlags) *cobra.Command {
	var at int64
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print stored governance state as YAML",
	}
	cmd.PersistentFlags().Int64Var(&at, "at", 0, "Unix time to resolve statuses at (default now)")

	// with opens the engine on the configured store and prints what fn returns.
	with := func(cmd *cobra.Command, fn func(g *dao.Governance) (interface{}, error)) error {
		cfg, log, err := gf.load()
		if err != nil {
			return err
		}
		var clock dao.Clock
		if at != 0 {
			clock = dao.ClockFunc(func() int64 { return at })
		}
		a, err := openApp(cfg, log, clock)
		if err != nil {
			return err
		}
		defer a.Close()
		view, err := fn(a.g)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "proposal <class> <nonce>",
		Short: "Show a proposal with its resolved status and tally",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			class, nonce, err := twoUints(args)
			if err != nil {
				return err
			}
			return with(cmd, func(g *dao.Governance) (interface{}, error) { return proposalView(g, class, nonce) })
		},
	}, &cobra.Command{
		Use:   "stake <owner> <nonce>",
		Short: "Show one stake position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			nonce, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("nonce: %w", err)
			}
			return with(cmd, func(g *dao.Governance) (interface{}, error) {
				st, err := g.GetStake(dao.Address(args[0]), nonce)
				if err != nil {
					return nil, err
				}
				return stakeView(st), nil
			})
		},
	}, &cobra.Command{
		Use:   "account <address>",
		Short: "Show balances, vote credits, allowance and stakes of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return with(cmd, func(g *dao.Governance) (interface{}, error) { return accountView(g, dao.Address(args[0])) })
		},
	})
	return cmd
}

func twoUints(args []string) (uint64, uint64, error) {
	a, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("class: %w", err)
	}
	b, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("nonce: %w", err)
	}
	return a, b, nil
}
