package cmd

import (
	"github.com/jjenkins/okbills/internal/render"
	"github.com/jjenkins/okbills/internal/store"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the outcome of the latest sync of each type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := connect(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := store.NewSyncMetadataStore(db).GetAll(cmd.Context())
		if err != nil {
			return err
		}

		render.SyncStatus(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
