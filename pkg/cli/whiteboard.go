package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lecture-notes/pkg/output"
	"lecture-notes/pkg/whiteboard"
)

func NewWhiteboardCmd(deps *Dependencies) *cobra.Command {
	var (
		title string
		tags  []string
	)

	cmd := &cobra.Command{
		Use:   "whiteboard <image>",
		Short: "Analyze a whiteboard photo and save it as a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			store, err := openStore(deps)
			if err != nil {
				return err
			}
			defer store.Close()

			formatter := output.NewFormatter(os.Stdout)
			formatter.Info("Analyzing whiteboard...")
			boards := newWhiteboard(deps.Config, store, deps.Logger)
			note, err := boards.Capture(cmd.Context(), whiteboard.Request{Image: image, Title: title, Tags: tags})
			if err != nil {
				return err
			}
			formatter.Success("Saved note " + note.ID)
			formatter.Note(note)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", whiteboard.DefaultTitle, "Note title")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Extra tags, comma separated")
	return cmd
}
