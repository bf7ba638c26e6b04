package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"stride/internal/bootstrap"
	devicedto "stride/internal/modules/device/dto"
	exercisedto "stride/internal/modules/exercise/dto"
	exportdto "stride/internal/modules/export/dto"
	"stride/internal/platform/config"
	"stride/internal/ui/watch"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:           "stride",
		Short:         "Exercise session tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data", defaultDataDir(), "data directory")

	root.AddCommand(newRunCmd(&dataDir))
	root.AddCommand(newDevicesCmd(&dataDir))
	root.AddCommand(newHistoryCmd(&dataDir))
	root.AddCommand(newExportCmd(&dataDir))
	root.AddCommand(newImportCmd(&dataDir))
	return root
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stride"
	}
	return filepath.Join(home, ".stride")
}

func loadApp(dataDir string, opts bootstrap.Options) (*bootstrap.App, error) {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, opts)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRunCmd(dataDir *string) *cobra.Command {
	run := &cobra.Command{Use: "run", Short: "Session commands"}

	var (
		replayFile string
		interval   time.Duration
		kind       string
		withHR     bool
		headless   bool
	)

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a session and follow it until it ends",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{ReplayFile: replayFile, ReplayInterval: interval})
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			snapshots, err := app.ExerciseCLI.Watch(ctx)
			if err != nil {
				return err
			}
			go func() { _ = app.Run(ctx) }()

			// The bootstrap snapshot means the platform callback is
			// registered and commands will reach a live client.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-snapshots:
			}

			out, err := app.ExerciseCLI.Start(ctx, kind, withHR)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "started session %s\n", out.ExerciseID)
			if headless {
				return followHeadless(cmd, ctx, snapshots)
			}
			program := tea.NewProgram(watch.New(app.ExerciseCLI, snapshots), tea.WithAltScreen())
			_, err = program.Run()
			return err
		},
	}
	startCmd.Flags().StringVar(&replayFile, "replay", "", "FIT activity file to replay as the exercise source")
	startCmd.Flags().DurationVar(&interval, "interval", time.Second, "delay between replayed records")
	startCmd.Flags().StringVar(&kind, "kind", "outdoor_run", "exercise kind: outdoor_run|indoor_run")
	startCmd.Flags().BoolVar(&withHR, "hr", true, "request heart-rate tracking")
	startCmd.Flags().BoolVar(&headless, "headless", false, "print state lines instead of the live view")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			out, err := app.ExerciseCLI.Status(cmd.Context())
			if err != nil {
				return err
			}
			if !out.HasSession {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no session")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session %s status=%s duration=%s\n",
				out.ExerciseID, out.Status, out.Duration.Round(time.Second))
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the current session pointer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			if err := app.ExerciseCLI.Reset(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "session reset")
			return nil
		},
	}

	run.AddCommand(startCmd, statusCmd, resetCmd)
	return run
}

func followHeadless(cmd *cobra.Command, ctx context.Context, snapshots <-chan exercisedto.Snapshot) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			line := fmt.Sprintf("%s  %s", snap.Status, snap.Duration.Round(time.Second))
			if snap.HeartRateBPM > 0 {
				line += fmt.Sprintf("  %d bpm", snap.HeartRateBPM)
			}
			if snap.DistanceMeters > 0 {
				line += fmt.Sprintf("  %.0f m", snap.DistanceMeters)
			}
			if snap.Error != "" {
				line += "  error: " + snap.Error
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			if snap.Status == "ended" {
				return nil
			}
		}
	}
}

func printDevice(cmd *cobra.Command, d devicedto.DeviceOutput) {
	line := fmt.Sprintf("%s  %s  %s", d.DeviceID, d.Name, d.State)
	if d.RSSI != nil {
		line += fmt.Sprintf("  rssi=%d", *d.RSSI)
	}
	if d.BatteryLevel != nil {
		line += fmt.Sprintf("  battery=%d%%", *d.BatteryLevel)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
}

func newDevicesCmd(dataDir *string) *cobra.Command {
	devices := &cobra.Command{Use: "devices", Short: "Heart-rate strap commands"}

	var adapter string
	devices.PersistentFlags().StringVar(&adapter, "adapter", "hci0", "BlueZ adapter name")

	var searchTimeout time.Duration
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Scan for heart-rate straps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{BLEAdapter: adapter})
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			go func() { _ = app.Run(ctx) }()

			if err := app.DeviceCLI.StartSearch(ctx); err != nil {
				return err
			}
			updates, err := app.DeviceCLI.WatchSearch(ctx)
			if err != nil {
				return err
			}
			deadline := time.After(searchTimeout)
			seen := map[string]bool{}
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-deadline:
					return app.DeviceCLI.StopSearch(context.Background())
				case state, ok := <-updates:
					if !ok {
						return nil
					}
					for _, d := range state.Found {
						if seen[d.DeviceID] {
							continue
						}
						seen[d.DeviceID] = true
						printDevice(cmd, d)
					}
				}
			}
		},
	}
	searchCmd.Flags().DurationVar(&searchTimeout, "timeout", 30*time.Second, "how long to scan")

	connectCmd := &cobra.Command{
		Use:   "connect <device-id>",
		Short: "Connect a strap and stream its heart rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{BLEAdapter: adapter})
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			go func() { _ = app.Run(ctx) }()

			if err := app.DeviceCLI.Connect(ctx, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "connecting %s (ctrl+c stops streaming)\n", args[0])
			<-ctx.Done()
			return nil
		},
	}

	disconnectCmd := &cobra.Command{
		Use:   "disconnect <device-id>",
		Short: "Disconnect a strap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{BLEAdapter: adapter})
			if err != nil {
				return err
			}
			return app.DeviceCLI.Disconnect(cmd.Context(), args[0])
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List known straps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{BLEAdapter: adapter})
			if err != nil {
				return err
			}
			known, err := app.DeviceCLI.Known(cmd.Context())
			if err != nil {
				return err
			}
			if len(known) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no known devices")
				return nil
			}
			for _, d := range known {
				printDevice(cmd, d)
			}
			return nil
		},
	}

	devices.AddCommand(searchCmd, connectCmd, disconnectCmd, listCmd)
	return devices
}

func newHistoryCmd(dataDir *string) *cobra.Command {
	history := &cobra.Command{Use: "history", Short: "Stored session commands"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			sessions, err := app.ExerciseCLI.History(cmd.Context())
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			for _, s := range sessions {
				line := fmt.Sprintf("%s  %s (%s)", s.ExerciseID, s.Title, s.Kind)
				if s.Duration != nil {
					line += "  " + s.Duration.Round(time.Second).String()
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <exercise-id>",
		Short: "Show a session summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			summary, err := app.ExportCLI.Summary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s (%s)\n", summary.Title, summary.Kind)
			if summary.StartTime != nil {
				_, _ = fmt.Fprintf(out, "started   %s\n", summary.StartTime.Local().Format(time.RFC1123))
			}
			_, _ = fmt.Fprintf(out, "duration  %s\n", summary.Duration.Round(time.Second))
			_, _ = fmt.Fprintf(out, "distance  %.2f km\n", summary.TotalDistanceM/1000)
			if summary.AvgHRBPM > 0 {
				_, _ = fmt.Fprintf(out, "heart     avg %d / max %d bpm\n", summary.AvgHRBPM, summary.MaxHRBPM)
			}
			if summary.AvgPacePerKM > 0 {
				_, _ = fmt.Fprintf(out, "avg pace  %s/km\n", formatPace(summary.AvgPacePerKM))
			}
			return nil
		},
	}

	history.AddCommand(listCmd, showCmd)
	return history
}

func newExportCmd(dataDir *string) *cobra.Command {
	var format, outPath string
	exportCmd := &cobra.Command{
		Use:   "export <exercise-id>",
		Short: "Export a session's time series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = args[0] + "." + format
			}
			out, err := app.ExportCLI.Export(cmd.Context(), exportdto.ExportInput{ExerciseID: args[0], Format: format, Path: outPath})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", out.Rows, out.Path)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&format, "format", "csv", "output format: csv|parquet")
	exportCmd.Flags().StringVar(&outPath, "out", "", "output path (default <exercise-id>.<format>)")
	return exportCmd
}

func newImportCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <activity.fit>",
		Short: "Import a FIT activity as a completed session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			out, err := app.ExportCLI.Import(cmd.Context(), exportdto.ImportInput{Path: args[0]})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %s as %s (%d records, %s)\n",
				out.Title, out.ExerciseID, out.Records, out.Duration.Round(time.Second))
			return nil
		},
	}
}

func formatPace(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", d/time.Minute, (d%time.Minute)/time.Second)
}
