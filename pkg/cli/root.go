// Package cli implements the lecture-notes command line.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lecture-notes/pkg/config"
)

// Dependencies are resolved once flags are parsed, before any command runs.
type Dependencies struct {
	Config *config.Config
	Logger *log.Logger
}

func NewRootCmd() *cobra.Command {
	deps := &Dependencies{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "lecture-notes",
		Short:         "Record lectures, transcribe, annotate and summarize",
		Long:          "Records a lecture in 15 second chunks, transcribes each chunk as it arrives, and turns the annotated transcript into a note with a summary and chapter markers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.New(), configFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger, err := newLogger(cfg.Log.Level)
			if err != nil {
				return err
			}
			deps.Config = cfg
			deps.Logger = logger
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ./config.yaml)")

	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewNotesCmd(deps))
	rootCmd.AddCommand(NewWhiteboardCmd(deps))
	rootCmd.AddCommand(NewPrefsCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}

func newLogger(level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "lecture-notes",
	})
	logger.SetLevel(lvl)
	return logger, nil
}
