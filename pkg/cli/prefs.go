package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"lecture-notes/pkg/models"
	"lecture-notes/pkg/output"
	"lecture-notes/pkg/preferences"
)

func NewPrefsCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show current preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(deps)
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := preferences.Load(cmd.Context(), store, deps.Logger)
			if err != nil {
				return err
			}
			output.NewFormatter(os.Stdout).Preferences(svc.Get())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one preference (dark_mode, notifications, offline_access, learning_style)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apply, err := setter(args[0], args[1])
			if err != nil {
				return err
			}

			store, err := openStore(deps)
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := preferences.Load(cmd.Context(), store, deps.Logger)
			if err != nil {
				return err
			}
			prefs, err := svc.Update(cmd.Context(), apply)
			if err != nil {
				return err
			}
			output.NewFormatter(os.Stdout).Preferences(prefs)
			return nil
		},
	})

	return cmd
}

// setter parses value for key and returns the matching update.
func setter(key, value string) (func(*models.Preferences), error) {
	if key == "learning_style" {
		return func(p *models.Preferences) { p.LearningStyle = value }, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("%s expects true or false, got %q", key, value)
	}
	switch key {
	case "dark_mode":
		return func(p *models.Preferences) { p.DarkMode = b }, nil
	case "notifications":
		return func(p *models.Preferences) { p.Notifications = b }, nil
	case "offline_access":
		return func(p *models.Preferences) { p.OfflineAccess = b }, nil
	}
	return nil, fmt.Errorf("unknown preference %q", key)
}
