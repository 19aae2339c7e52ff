package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hokutoh/formloop/internal/config"
	"github.com/hokutoh/formloop/internal/formfill"
	"github.com/hokutoh/formloop/internal/observability"
	"github.com/hokutoh/formloop/internal/orchestrator"
	"github.com/hokutoh/formloop/pkg/action"
	"github.com/hokutoh/formloop/pkg/batch"
	"github.com/hokutoh/formloop/pkg/browser"
	"github.com/hokutoh/formloop/pkg/player"
	"github.com/hokutoh/formloop/pkg/site"
	"github.com/hokutoh/formloop/pkg/site/toto"
)

// validCellValues is the allowed outcome set: home win, draw, away win.
var validCellValues = []int{0, 1, 2}

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Submits a dataset of bet rows through the site, one batch at a time",
		// The PreRunE function finalizes configuration before RunE. Binding
		// flags here is the idiomatic way to make CLI flags override values
		// from the config file and environment variables.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("run.batch_size", cmd.Flags().Lookup("batch-size")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from Execute (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			rc := cfg.Run()
			rc.InputFile = viper.GetString("input")
			rc.DryRun = viper.GetBool("dry-run")
			rc.Screenshot = viper.GetString("screenshot-dir")
			cfg.SetRunConfig(rc)

			if rc.InputFile == "" {
				return fmt.Errorf("an input dataset is required (--input)")
			}

			rows, err := batch.LoadCSV(rc.InputFile, batch.LoadOptions{
				Columns:     rc.Columns,
				ValidValues: validCellValues,
			})
			if err != nil {
				return err
			}
			logger.Info("Dataset loaded",
				zap.String("path", rc.InputFile),
				zap.Int("rows", len(rows)),
				zap.Int("batch_size", rc.BatchSize),
			)

			if rc.DryRun {
				return printPlan(rows, rc.BatchSize)
			}

			var seqs orchestrator.Sequences
			if viper.GetBool("basic") {
				logger.Info("Basic mode: using built-in site sequences")
				seqs = basicSequences()
			} else if seqs, err = loadSequences(cfg, logger); err != nil {
				return err
			}

			res, err := executeRun(ctx, cfg, logger, rows, seqs)
			if err != nil {
				return err
			}

			if res.Err != nil {
				if errors.Is(res.Err, orchestrator.ErrCancelled) {
					logger.Warn("Run aborted gracefully", zap.String("runID", res.RunID))
					return fmt.Errorf("run aborted by user signal")
				}
				logger.Error("Run failed",
					zap.String("runID", res.RunID),
					zap.Int("failed_batch", res.FailedBatch),
					zap.String("failed_state", res.FailedState.String()),
					zap.Error(res.Err),
				)
				return runFailure(res)
			}

			logger.Info("Run completed",
				zap.String("runID", res.RunID),
				zap.Int("batches", res.CompletedBatches),
			)
			fmt.Printf("\nRun complete. %d/%d batches submitted. Run ID: %s\n",
				res.CompletedBatches, res.TotalBatches, res.RunID)
			return nil
		},
	}

	runCmd.Flags().StringP("input", "i", "", "Path to the CSV dataset of bet rows.")
	runCmd.Flags().IntP("batch-size", "b", 0, "Rows per submission batch. (Overrides config/env)")
	runCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	runCmd.Flags().Bool("dry-run", false, "Validate and print the batch plan without opening a browser.")
	runCmd.Flags().String("screenshot-dir", "", "Directory for failure screenshots. If unset, none are taken.")
	runCmd.Flags().Bool("basic", false, "Use the built-in site sequences instead of recordings from the actions directory.")

	return runCmd
}

// runFailure converts a failed result into the error shown to the user. A
// zero FailedBatch means the run never reached its first batch, so no batch
// number is reported.
func runFailure(res *orchestrator.Result) error {
	if res.FailedBatch == 0 {
		return fmt.Errorf("run failed before the first batch in state %s: %w", res.FailedState, res.Err)
	}
	return fmt.Errorf("batch %d failed in state %s: %w", res.FailedBatch, res.FailedState, res.Err)
}

// basicSequences assembles the built-in recordings: no actions directory
// needed, selectors baked into the site adapter package.
func basicSequences() orchestrator.Sequences {
	cartReturn := toto.DefaultCartReturn()
	return orchestrator.Sequences{
		Navigation: map[site.PageKind]*action.Sequence{
			site.PageRoundSelect: toto.DefaultRoundSelect(),
			site.PageCart:        cartReturn,
		},
		Submit:    toto.DefaultSubmit(),
		NextBatch: cartReturn,
	}
}

// executeRun wires the browser, adapter, player, filler and orchestrator
// together and drives the full dataset through.
func executeRun(ctx context.Context, cfg config.Interface, logger *zap.Logger, rows []batch.Row, seqs orchestrator.Sequences) (*orchestrator.Result, error) {
	bc := cfg.Browser()
	rc := cfg.Run()

	mgr, err := browser.NewManager(ctx, logger, browser.Options{
		Headless:        bc.Headless,
		IgnoreTLSErrors: bc.IgnoreTLSErrors,
		Args:            bc.Args,
		StartupTimeout:  bc.StartupTimeout,
		UserAgent:       bc.UserAgent,
		WindowWidth:     bc.Viewport["width"],
		WindowHeight:    bc.Viewport["height"],
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser manager: %w", err)
	}
	defer mgr.Shutdown()

	tabCtx, cancelTab, err := mgr.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer cancelTab()

	adapter := toto.New(tabCtx, logger)
	if err := adapter.Navigate(tabCtx, cfg.Site().StartURL); err != nil {
		return nil, err
	}

	pl := player.New(adapter, adapter, logger, player.WithPollInterval(rc.PollInterval))
	filler := formfill.NewGridFiller(adapter, logger, rc.ActionTimeout)

	orch, err := orchestrator.New(orchestrator.Config{
		BatchSize:  rc.BatchSize,
		BatchPause: rc.BatchPause,
		MaxNavHops: rc.MaxNavHops,
	}, logger, adapter, pl, filler, seqs)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	res := orch.Run(tabCtx, rows)
	if res.Err != nil && rc.Screenshot != "" {
		shotPath := fmt.Sprintf("%s/failure-%s.png", rc.Screenshot, res.RunID)
		shotCtx, cancel := context.WithTimeout(tabCtx, 10*time.Second)
		defer cancel()
		if shotErr := adapter.CaptureScreenshot(shotCtx, shotPath); shotErr != nil {
			logger.Warn("Failed to capture failure screenshot", zap.Error(shotErr))
		} else {
			logger.Info("Failure screenshot captured", zap.String("path", shotPath))
		}
	}
	return res, nil
}

// loadSequences resolves the configured sequence names into recordings.
func loadSequences(cfg config.Interface, logger *zap.Logger) (orchestrator.Sequences, error) {
	store, err := action.NewStore(cfg.Run().ActionsDir, logger)
	if err != nil {
		return orchestrator.Sequences{}, err
	}

	sc := cfg.Site()
	seqs := orchestrator.Sequences{
		Navigation: make(map[site.PageKind]*action.Sequence),
	}

	load := func(name string) (*action.Sequence, error) {
		if name == "" {
			return nil, nil
		}
		seq, err := store.Load(name)
		if err != nil {
			return nil, fmt.Errorf("loading sequence %q: %w", name, err)
		}
		return seq, nil
	}

	for page, name := range sc.Navigation {
		seq, err := load(name)
		if err != nil {
			return orchestrator.Sequences{}, err
		}
		if seq != nil {
			seqs.Navigation[site.PageKind(page)] = seq
		}
	}
	if seqs.Submit, err = load(sc.Submit); err != nil {
		return orchestrator.Sequences{}, err
	}
	if seqs.Confirm, err = load(sc.Confirm); err != nil {
		return orchestrator.Sequences{}, err
	}
	if seqs.NextBatch, err = load(sc.NextBatch); err != nil {
		return orchestrator.Sequences{}, err
	}
	return seqs, nil
}

// printPlan reports how the dataset would be split without touching a browser.
func printPlan(rows []batch.Row, size int) error {
	batches, err := batch.Split(rows, size)
	if err != nil {
		return err
	}
	fmt.Printf("Dry run: %d rows across %d batches\n", len(rows), len(batches))
	for _, b := range batches {
		fmt.Printf("  batch %d: %d rows\n", b.Index+1, len(b.Rows))
	}
	return nil
}
