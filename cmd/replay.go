package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hokutoh/formloop/internal/config"
	"github.com/hokutoh/formloop/internal/observability"
	"github.com/hokutoh/formloop/pkg/action"
	"github.com/hokutoh/formloop/pkg/browser"
	"github.com/hokutoh/formloop/pkg/player"
	"github.com/hokutoh/formloop/pkg/site/toto"
)

// newReplayCmd creates the `replay` command, which plays a single recorded
// sequence against a live browser. Useful for verifying a recording before
// wiring it into a run.
func newReplayCmd() *cobra.Command {
	replayCmd := &cobra.Command{
		Use:   "replay <name>",
		Short: "Replays a recorded action sequence against the live site",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			store, err := action.NewStore(cfg.Run().ActionsDir, logger)
			if err != nil {
				return err
			}
			seq, err := store.Load(args[0])
			if err != nil {
				return err
			}

			bc := cfg.Browser()
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
				return fmt.Errorf("failed to initialize browser manager: %w", err)
			}
			defer mgr.Shutdown()

			tabCtx, cancelTab, err := mgr.NewSession(ctx)
			if err != nil {
				return fmt.Errorf("failed to open browser session: %w", err)
			}
			defer cancelTab()

			adapter := toto.New(tabCtx, logger)
			startURL := viper.GetString("url")
			if startURL == "" {
				startURL = cfg.Site().StartURL
			}
			if err := adapter.Navigate(tabCtx, startURL); err != nil {
				return err
			}

			pl := player.New(adapter, adapter, logger,
				player.WithPollInterval(cfg.Run().PollInterval))
			stats, err := pl.Play(tabCtx, seq)
			if err != nil {
				logger.Error("Replay failed",
					zap.String("sequence", args[0]),
					zap.Int("succeeded", stats.Succeeded),
					zap.Int("failed", stats.Failed),
					zap.Error(err),
				)
				return err
			}

			fmt.Printf("Replayed %q: %d steps, %d skipped, took %s\n",
				args[0], stats.Total, stats.Skipped, stats.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	replayCmd.Flags().String("url", "", "Start URL. Defaults to the configured site entry page.")
	replayCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")

	return replayCmd
}
