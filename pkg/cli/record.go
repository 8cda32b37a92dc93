package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lecture-notes/pkg/ai"
	"lecture-notes/pkg/models"
	"lecture-notes/pkg/output"
	"lecture-notes/pkg/session"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var (
		title     string
		tags      []string
		duration  time.Duration
		noSummary bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a lecture in the foreground",
		Long:  "Record from the configured capture device until --duration elapses or Ctrl+C is pressed, then summarize and save the note.",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(os.Stdout)

			a, err := newApp(context.Background(), deps.Config, deps.Logger)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			c, err := a.sessions.Start(context.Background())
			if err != nil {
				return err
			}
			formatter.RecordingStarted(c.ID())

			events, unsubscribe := c.Subscribe()
			defer unsubscribe()
			printed := make(chan struct{})
			go func() {
				defer close(printed)
				printEvents(formatter, events)
			}()

			waitForStop(duration)

			ctx := context.Background()
			if err := c.Stop(ctx); err != nil {
				return err
			}
			snap := c.Snapshot()
			formatter.RecordingStopped(time.Duration(snap.ElapsedSeconds * float64(time.Second)))

			if err := c.WaitIdle(ctx); err != nil {
				return err
			}
			if !noSummary {
				formatter.Summarizing()
				summary, err := c.RequestSummary(ctx)
				switch {
				case errors.Is(err, ai.ErrEmptyInput):
					formatter.Warning("Nothing was transcribed, saving without a summary")
				case err != nil:
					formatter.Warning(fmt.Sprintf("Summary failed: %v", err))
				default:
					formatter.Summary(summary)
				}
			}

			if title == "" {
				title = "Lecture " + snap.StartedAt.Local().Format("2006-01-02 15:04")
			}
			note, err := c.Save(ctx, title, tags)
			if err != nil {
				return err
			}
			<-printed
			formatter.NoteSaved(note)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Note title (default: date and time)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Extra tags, comma separated")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop after this long (default: until Ctrl+C)")
	cmd.Flags().BoolVar(&noSummary, "no-summary", false, "Skip summarization")

	return cmd
}

// waitForStop blocks until d elapses or the user interrupts. A zero d waits
// for the interrupt only.
func waitForStop(d time.Duration) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-ctx.Done():
	case <-timeout:
	}
}

func printEvents(f *output.Formatter, events <-chan session.Notification) {
	for n := range events {
		switch n.Type {
		case session.EventSegmentAdded:
			if n.Segment != nil {
				f.Segment(*n.Segment)
			}
		case session.EventChunkUpdated:
			if n.Chunk != nil && n.Chunk.Error != "" && n.Chunk.TranscriptionState == models.TranscriptionFailed {
				f.Warning(fmt.Sprintf("Chunk %d could not be transcribed: %s", n.Chunk.SequenceNumber, n.Chunk.Error))
			}
		case session.EventDegraded:
			f.Warning("Capture was interrupted, the recording may have gaps")
		case session.EventError:
			f.Error(n.Error)
		}
	}
}
