package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/logcheck/internal/adb"
	"github.com/psantana5/logcheck/internal/runner"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the device log buffer (adb logcat -c)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge := adb.NewBridge(settings.ADBPath, settings.Serial)
		r := runner.New(cmd.OutOrStdout(), logger, settings.ClearTimeout)

		if _, err := r.Run(cmd.Context(), bridge.Clear()); err != nil {
			return fmt.Errorf("clear failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "device log cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().Duration("clear-timeout", 0, "upper bound for the clear command (default 10s)")
}
