package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/logcheck/internal/adb"
	"github.com/psantana5/logcheck/internal/doctor"
	"github.com/psantana5/logcheck/internal/runner"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check adb, its server and the attached device",
	Long: `Doctor verifies everything a watch session depends on: the adb executable,
its version, whether the adb server is running and which devices are attached.
It only reads state; it never clears logs or changes the device.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	bridge := adb.NewBridge(settings.ADBPath, settings.Serial)
	// failures are shown in the table, not as console diagnostics
	r := runner.New(io.Discard, logger, 10*time.Second)

	checks := doctor.New(bridge, r).Run(cmd.Context())

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Check", "Status", "Detail")
	for _, c := range checks {
		if err := table.Append(c.Name, string(c.Status), c.Detail); err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if !doctor.Healthy(checks) {
		return errors.New("one or more checks failed")
	}
	return nil
}
