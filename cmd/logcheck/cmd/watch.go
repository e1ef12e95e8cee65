package cmd

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/psantana5/logcheck/internal/adb"
	"github.com/psantana5/logcheck/internal/report"
	"github.com/psantana5/logcheck/internal/runner"
	"github.com/psantana5/logcheck/internal/session"
	"github.com/psantana5/logcheck/internal/shutdown"
	"github.com/psantana5/logcheck/internal/streamer"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Clear the device log, then follow the filtered log until Ctrl+C",
	Long: `Watch clears the device log buffer (adb logcat -c) and then follows the
device log restricted to one tag at debug level with every other tag silenced
(adb logcat AudioPlayerService:D *:S). Lines are printed exactly as adb emits them.

A failed clear is reported and the stream starts anyway. On Ctrl+C the closing
banner is printed at once and the adb child receives one SIGTERM; if it is
still alive after --grace-period it is killed. A second Ctrl+C exits at once.

Example:
  logcheck
  logcheck watch --tag PlaylistManager --priority I
  logcheck watch --filter "AudioPlayerService:V,ExoPlayerImpl:D" --no-clear
  logcheck watch -s emulator-5554 --summary --metrics-file /var/lib/node_exporter/logcheck.prom`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addWatchFlags(watchCmd)
}

func addWatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("tag", "", "log tag to follow (default "+adb.DefaultTag+")")
	cmd.Flags().StringP("priority", "p", "", "minimum priority for the tag: V D I W E F (default D)")
	cmd.Flags().String("filter", "", `full filter, e.g. "TagA:D,TagB:I" (overrides --tag/--priority)`)
	cmd.Flags().Bool("no-clear", false, "do not clear the device log before streaming")
	cmd.Flags().Duration("clear-timeout", 0, "upper bound for the clear command (default 10s)")
	cmd.Flags().Duration("grace-period", 0, "wait after SIGTERM before killing adb, 0 returns without waiting (default 5s)")
	cmd.Flags().Bool("summary", false, "print a session summary to stderr when the stream stops")
	cmd.Flags().String("metrics-file", "", "write session metrics in Prometheus textfile format on exit")
}

func runWatch(cmd *cobra.Command, args []string) error {
	sessionID := uuid.NewString()
	log := logger.WithField("session", sessionID)

	metrics := report.NewMetrics()

	mgr := shutdown.New(5*time.Second, log)
	mgr.Register("logger", func(ctx context.Context) error {
		return logger.Sync()
	})
	if settings.MetricsFile != "" {
		mgr.Register("metrics", func(ctx context.Context) error {
			return metrics.WriteTextfile(settings.MetricsFile)
		})
	}
	defer mgr.Shutdown()

	ctx, stop := mgr.NotifyContext(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	bridge := adb.NewBridge(settings.ADBPath, settings.Serial)

	sess := session.New(session.Config{
		ID:      sessionID,
		Bridge:  bridge,
		Filter:  settings.Filter,
		Clear:   settings.Clear,
		Hints:   settings.Hints,
		Out:     out,
		Runner:  runner.New(out, log, settings.ClearTimeout),
		Metrics: metrics,
		Logger:  logger,
		Streamer: streamer.New(streamer.Config{
			Out:         out,
			Logger:      log,
			GracePeriod: settings.GracePeriod,
		}),
	})

	outcome, err := sess.Run(ctx)

	if settings.Summary && outcome != nil {
		summary := &report.Summary{
			SessionID: sessionID,
			Serial:    settings.Serial,
			Filter:    settings.Filter.String(),
			Cleared:   outcome.Cleared,
			ClearErr:  outcome.ClearErr,
			Stream:    outcome.Stream,
		}
		if werr := summary.Write(cmd.ErrOrStderr()); werr != nil {
			log.Warn("failed to write summary", map[string]interface{}{"error": werr.Error()})
		}
	}

	return err
}
