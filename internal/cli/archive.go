package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexusforge/nexus"
	"github.com/nexusforge/nexus/internal/engine"
)

var archiveKeep int

var archiveCmd = &cobra.Command{
	Use:   "archive <session-file>",
	Short: "Archive a saved session and trim it in place",
	Long: `Loads a saved session, writes a full archive copy, condenses the
older turns into the character sheet, trims the log to the most recent
turns, and saves the session back to its file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := nexus.NewApp(cfg)
		if err != nil {
			return err
		}

		if _, err := app.LoadSession(args[0]); err != nil {
			return err
		}

		result, err := app.Session.ArchiveAndTrim(cmd.Context(), archiveKeep)
		if result != nil {
			fmt.Printf("archived %d turns to %s, %d kept\n", result.TrimmedTurns, result.ArchiveFile, result.KeptTurns)
		}
		if err != nil && !errors.Is(err, engine.ErrSummaryFailed) {
			return err
		}
		if err != nil {
			fmt.Println("continuity summary failed; character sheet unchanged")
		}

		saved, serr := app.Session.SaveSnapshot(args[0])
		if serr != nil {
			return serr
		}
		fmt.Printf("saved %s\n", saved)
		return err
	},
}

func init() {
	archiveCmd.Flags().IntVarP(&archiveKeep, "keep", "k", 10, "Turns to keep in the trimmed session")
	rootCmd.AddCommand(archiveCmd)
}
