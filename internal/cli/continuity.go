package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexusforge/nexus/internal/continuity"
)

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Inspect or edit the persistent character sheet",
}

var sheetShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the character sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := continuity.Open(cfg.ContinuityDir())
		if err != nil {
			return err
		}
		fmt.Println(store.CharacterSheet())
		return nil
	},
}

var sheetAppendCmd = &cobra.Command{
	Use:   "append <file>",
	Short: "Append a file's contents to the character sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := continuity.Open(cfg.ContinuityDir())
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return store.AppendCharacterSheet(string(data))
	},
}

var sheetClearConfirm bool

var sheetClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase the character sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := continuity.Open(cfg.ContinuityDir())
		if err != nil {
			return err
		}
		if err := store.ClearCharacterSheet(sheetClearConfirm); err != nil {
			return fmt.Errorf("%w (pass --yes to confirm)", err)
		}
		return nil
	},
}

var frameworkCmd = &cobra.Command{
	Use:   "framework",
	Short: "Inspect or replace the game-master framework",
}

var frameworkShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the framework",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := continuity.Open(cfg.ContinuityDir())
		if err != nil {
			return err
		}
		fmt.Println(store.Framework())
		return nil
	},
}

var frameworkSetCmd = &cobra.Command{
	Use:   "set <file>",
	Short: "Replace the framework with a file's contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := continuity.Open(cfg.ContinuityDir())
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return store.EditFramework(string(data))
	},
}

func init() {
	sheetClearCmd.Flags().BoolVar(&sheetClearConfirm, "yes", false, "Confirm erasing the sheet")
	sheetCmd.AddCommand(sheetShowCmd, sheetAppendCmd, sheetClearCmd)
	frameworkCmd.AddCommand(frameworkShowCmd, frameworkSetCmd)
	rootCmd.AddCommand(sheetCmd, frameworkCmd)
}
