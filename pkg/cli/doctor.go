package cli

import (
	"os"

	"github.com/spf13/cobra"

	"lecture-notes/pkg/capture"
	"lecture-notes/pkg/config"
	"lecture-notes/pkg/output"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(os.Stdout)
			cfg := deps.Config
			ok := true

			if cfg.Capture.Device == config.DeviceFFmpeg {
				if err := capture.CheckFFmpeg(); err != nil {
					f.SetupCheck("ffmpeg", false, err.Error())
					ok = false
				} else {
					f.SetupCheck("ffmpeg", true, "installed")
				}
				f.SetupCheck("Microphone", true, cfg.Capture.InputFormat+" "+cfg.Capture.InputDevice)
			} else {
				f.SetupCheck("Capture", true, "simulated device")
			}

			if cfg.AI.Provider == config.ProviderOpenAI {
				f.SetupCheck("OpenAI", true, cfg.AI.TranscriptionModel+" / "+cfg.AI.SummaryModel+" / "+cfg.AI.VisionModel)
			} else {
				f.SetupCheck("AI provider", true, "simulated responses")
			}

			store, err := openStore(deps)
			if err != nil {
				f.SetupCheck("Storage", false, err.Error())
				ok = false
			} else {
				store.Close()
				f.SetupCheck("Storage", true, cfg.Storage.Backend+" at "+cfg.Storage.Path)
			}

			if ok {
				f.Success("\nAll prerequisites met. Ready to record!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}
