package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hokutoh/formloop/internal/config"
	"github.com/hokutoh/formloop/internal/observability"
	"github.com/hokutoh/formloop/pkg/browser"
	"github.com/hokutoh/formloop/pkg/site/toto"
)

// newRoundsCmd creates the `rounds` command, which lists the betting rounds
// currently open on the site.
func newRoundsCmd() *cobra.Command {
	roundsCmd := &cobra.Command{
		Use:   "rounds",
		Short: "Lists the rounds currently open for betting",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
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
			if err := adapter.Navigate(tabCtx, cfg.Site().StartURL); err != nil {
				return err
			}

			rounds, err := adapter.ReadAvailableRounds(tabCtx)
			if err != nil {
				return fmt.Errorf("reading available rounds: %w", err)
			}
			if len(rounds) == 0 {
				fmt.Println("No rounds are currently open.")
				return nil
			}
			for _, r := range rounds {
				fmt.Println(r)
			}
			return nil
		},
	}

	roundsCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	return roundsCmd
}
