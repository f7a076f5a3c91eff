package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexusforge/nexus/internal/snapshot"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved sessions, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := snapshot.NewStore(cfg.SnapshotDir())
		if err != nil {
			return err
		}
		infos, err := store.List()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("no saved sessions")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s  %s\n", info.ModTime.Format("2006-01-02 15:04"), info.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}
