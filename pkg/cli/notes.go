package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lecture-notes/pkg/notes"
	"lecture-notes/pkg/output"
	"lecture-notes/pkg/storage"
)

func NewNotesCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"note"},
		Short:   "Browse saved notes",
	}
	cmd.AddCommand(newNotesListCmd(deps))
	cmd.AddCommand(newNotesShowCmd(deps))
	cmd.AddCommand(newNotesRemoveCmd(deps))
	return cmd
}

func openStore(deps *Dependencies) (storage.Store, error) {
	store, err := storage.Open(deps.Config.Storage.Backend, deps.Config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return store, nil
}

func newNotesListCmd(deps *Dependencies) *cobra.Command {
	var q notes.Query

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List notes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(deps)
			if err != nil {
				return err
			}
			defer store.Close()

			found, err := notes.NewService(store).Find(cmd.Context(), q)
			if err != nil {
				return err
			}
			output.NewFormatter(os.Stdout).NoteList(found)
			return nil
		},
	}

	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "Match title or summary, ignoring case")
	cmd.Flags().StringVarP(&q.Filter, "filter", "f", "all", "all, important, exam or any tag")
	return cmd
}

func newNotesShowCmd(deps *Dependencies) *cobra.Command {
	var at float64

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note with its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(deps)
			if err != nil {
				return err
			}
			defer store.Close()

			note, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			formatter := output.NewFormatter(os.Stdout)
			if cmd.Flags().Changed("at") {
				seg, ok := note.SegmentAt(at)
				if !ok {
					return fmt.Errorf("no segment at %.0fs", at)
				}
				formatter.Segment(seg)
				return nil
			}
			formatter.Note(note)
			return nil
		},
	}

	cmd.Flags().Float64Var(&at, "at", 0, "Print only the segment playing at this offset in seconds")
	return cmd
}

func newNotesRemoveCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete notes",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(deps)
			if err != nil {
				return err
			}
			defer store.Close()

			formatter := output.NewFormatter(os.Stdout)
			svc := notes.NewService(store)
			for _, id := range args {
				if err := svc.Delete(cmd.Context(), id); err != nil {
					return err
				}
				formatter.Success("Deleted " + id)
			}
			return nil
		},
	}
}
