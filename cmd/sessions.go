package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/log"
	"github.com/parley-ai/parley/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored chat sessions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := session.NewStore(cfg.DataDir, log.NewNop())
		if err != nil {
			return err
		}

		ids, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No stored sessions.")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}
