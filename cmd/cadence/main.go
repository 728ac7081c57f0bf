package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cadence/internal/bootstrap"
	sessiondto "cadence/internal/modules/session/dto"
	"cadence/internal/platform/config"
	"cadence/internal/platform/timefmt"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataPath string

	root := &cobra.Command{
		Use:           "cadence",
		Short:         "Tap-rhythm work timer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataPath, "data", bootstrap.DefaultDataPath(), "data directory")

	root.AddCommand(newPlayCmd(&dataPath))
	root.AddCommand(newSessionCmd(&dataPath))
	root.AddCommand(newStatsCmd(&dataPath))
	root.AddCommand(newReindexCmd(&dataPath))
	return root
}

func loadApp(dataPath string) (*bootstrap.App, error) {
	cfg, err := config.Load(dataPath)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg)
}

// withApp opens the app for one command and closes it afterwards.
func withApp(dataPath string, fn func(app *bootstrap.App) error) error {
	app, err := loadApp(dataPath)
	if err != nil {
		return err
	}
	runErr := fn(app)
	if closeErr := app.Close(); runErr == nil {
		runErr = closeErr
	}
	return runErr
}

func newPlayCmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Open a session and track taps in the terminal",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(*dataPath, bootstrap.RunTUI)
		},
	}
}

func newSessionCmd(dataPath *string) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Session commands"}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(app *bootstrap.App) error {
				sessions, err := app.SessionCLI.List(context.Background())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), sessions)
				}
				if len(sessions) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
					return nil
				}
				for _, s := range sessions {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), summaryLine(s))
				}
				return nil
			})
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*dataPath, func(app *bootstrap.App) error {
				s, err := app.SessionCLI.Show(context.Background(), args[0])
				if err != nil {
					return err
				}
				printDetail(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}

	active := &cobra.Command{
		Use:   "active",
		Short: "Show the open session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(app *bootstrap.App) error {
				s, err := app.SessionCLI.GetActive(context.Background())
				if err != nil {
					return err
				}
				printDetail(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Open a new session without the play screen",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(app *bootstrap.App) error {
				s, err := app.SessionCLI.Start(context.Background())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session started id=%s\n", s.ID)
				return nil
			})
		},
	}

	var at time.Duration
	note := &cobra.Command{
		Use:   "note <text>",
		Short: "Annotate the open session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*dataPath, func(app *bootstrap.App) error {
				ctx := context.Background()
				offset := at
				if !cmd.Flags().Changed("at") {
					current, err := app.SessionCLI.GetActive(ctx)
					if err != nil {
						return err
					}
					offset = sinceStart(app, current)
				}
				s, err := app.SessionCLI.Note(ctx, offset.Milliseconds(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "note added to %s (%d notes)\n", s.ID, len(s.Notes))
				return nil
			})
		},
	}
	note.Flags().DurationVar(&at, "at", 0, "offset into the session (default: now)")

	var (
		sessionID string
		clicks    int
		elapsed   time.Duration
	)
	end := &cobra.Command{
		Use:   "end",
		Short: "Close the open session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(app *bootstrap.App) error {
				ctx := context.Background()
				took := elapsed
				if !cmd.Flags().Changed("elapsed") {
					current, err := app.SessionCLI.GetActive(ctx)
					if err != nil {
						return err
					}
					took = sinceStart(app, current)
				}
				s, err := app.SessionCLI.End(ctx, sessionID, clicks, took.Milliseconds())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session ended id=%s clicks=%d upm=%.1f\n", s.ID, s.TotalClicks, s.FinalUPM)
				return nil
			})
		},
	}
	end.Flags().StringVar(&sessionID, "id", "", "expected open session id")
	end.Flags().IntVar(&clicks, "clicks", 0, "total taps")
	end.Flags().DurationVar(&elapsed, "elapsed", 0, "tracked time (default: since start)")

	var exportDir, exportID string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write sessions as markdown notes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.Export(context.Background(), exportDir, exportID)
				if err != nil {
					return err
				}
				for _, p := range out.Paths {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d sessions\n", len(out.Paths))
				return nil
			})
		},
	}
	export.Flags().StringVar(&exportDir, "dir", "", "target directory")
	export.Flags().StringVar(&exportID, "id", "", "single session id")
	_ = export.MarkFlagRequired("dir")

	session.AddCommand(list, show, active, start, note, end, export)
	return session
}

func newStatsCmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize completed sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(app *bootstrap.App) error {
				stats, err := app.SessionCLI.Stats(context.Background())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "sessions=%d\n", stats.Sessions)
				_, _ = fmt.Fprintf(w, "total_clicks=%d\n", stats.TotalClicks)
				_, _ = fmt.Fprintf(w, "total_time=%s\n", timefmt.Clock(time.Duration(stats.TotalDurationMs)*time.Millisecond))
				_, _ = fmt.Fprintf(w, "average_upm=%.1f\n", stats.AverageUPM)
				_, _ = fmt.Fprintf(w, "best_upm=%.1f\n", stats.BestUPM)
				_, _ = fmt.Fprintf(w, "best_flow=%d\n", stats.BestFlow)
				_, _ = fmt.Fprintf(w, "notes=%d\n", stats.Notes)
				return nil
			})
		},
	}
}

func newReindexCmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the SQLite stats index from stored sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(app *bootstrap.App) error {
				if err := app.SessionCLI.Reindex(context.Background()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "reindex completed")
				return nil
			})
		},
	}
}

// sinceStart is the wall time since s opened, read from the app clock.
func sinceStart(app *bootstrap.App, s sessiondto.SessionOutput) time.Duration {
	return max(app.Clock.Now().Sub(s.StartTime), 0)
}

func summaryLine(s sessiondto.SessionOutput) string {
	state := "open"
	if s.Complete {
		state = "done"
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%d taps\t%.1f upm",
		s.ID,
		s.StartTime.Format("2006-01-02 15:04"),
		state,
		timefmt.Clock(time.Duration(s.DurationMs)*time.Millisecond),
		s.TotalClicks,
		s.FinalUPM,
	)
}

func printDetail(w io.Writer, s sessiondto.SessionOutput) {
	_, _ = fmt.Fprintf(w, "id=%s\n", s.ID)
	_, _ = fmt.Fprintf(w, "start=%s\n", s.StartTime.Format(time.RFC3339))
	if s.Complete {
		_, _ = fmt.Fprintf(w, "end=%s\n", s.EndTime.Format(time.RFC3339))
	} else {
		_, _ = fmt.Fprintln(w, "end=open")
	}
	_, _ = fmt.Fprintf(w, "duration=%s\n", timefmt.Clock(time.Duration(s.DurationMs)*time.Millisecond))
	_, _ = fmt.Fprintf(w, "clicks=%d upm=%.1f\n", s.TotalClicks, s.FinalUPM)
	m := s.Smoothness
	_, _ = fmt.Fprintf(w, "consistency=%d rhythm=%d flow=%d critical=+%d/-%d\n",
		m.Consistency, m.Rhythm, m.FlowState, m.CriticalSuccess, m.CriticalFailure)
	for _, n := range s.Notes {
		_, _ = fmt.Fprintf(w, "note [%s] %s\n", timefmt.Clock(time.Duration(n.TimestampMs)*time.Millisecond), n.Text)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
