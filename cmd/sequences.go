package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hokutoh/formloop/internal/config"
	"github.com/hokutoh/formloop/internal/observability"
	"github.com/hokutoh/formloop/pkg/action"
)

// newSequencesCmd creates the `sequences` command, listing stored recordings.
func newSequencesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sequences",
		Short: "Lists the recorded action sequences",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			store, err := action.NewStore(cfg.Run().ActionsDir, observability.GetLogger())
			if err != nil {
				return err
			}
			names, err := store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No sequences recorded yet.")
				return nil
			}
			for _, name := range names {
				seq, err := store.Load(name)
				if err != nil {
					fmt.Printf("%s (unreadable: %v)\n", name, err)
					continue
				}
				fmt.Printf("%-24s %3d steps  %s\n", name, len(seq.Steps), seq.Metadata.Description)
			}
			return nil
		},
	}
}
