package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"lecture-notes/pkg/ai"
	"lecture-notes/pkg/capture"
	"lecture-notes/pkg/config"
	"lecture-notes/pkg/pipeline"
	"lecture-notes/pkg/preferences"
	"lecture-notes/pkg/session"
	"lecture-notes/pkg/storage"
	"lecture-notes/pkg/whiteboard"
)

// app is the wired object graph shared by the recording commands.
type app struct {
	store    storage.Store
	pool     *pipeline.WorkerPool
	sessions *session.Manager
	boards   *whiteboard.Service
	prefs    *preferences.Service
	logger   *log.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app, error) {
	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	prefs, err := preferences.Load(ctx, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	transcriber, summarizer := newProviders(cfg.AI)
	newDevice, err := newDeviceFactory(cfg.Capture)
	if err != nil {
		store.Close()
		return nil, err
	}

	pool := pipeline.NewWorkerPool(cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, logger)
	pool.Start(ctx)

	deps := session.Deps{
		Transcriber: transcriber,
		Summarizer:  summarizer,
		Notes:       store,
		Audio:       storage.NewFileAudioStore(cfg.Storage.AudioDir),
		Dispatcher:  pool,
		Logger:      logger,
	}
	opts := session.Options{
		ChunkInterval:      cfg.Session.ChunkInterval,
		MinTailChunk:       cfg.Session.MinTailChunk,
		TranscribeAttempts: cfg.Session.TranscribeAttempts,
		TranscribeTimeout:  cfg.Session.TranscribeTimeout,
		SummarizeTimeout:   cfg.Session.SummarizeTimeout,
	}

	logger.Info("Initialized",
		"storage", cfg.Storage.Backend,
		"ai", cfg.AI.Provider,
		"capture", cfg.Capture.Device,
	)
	return &app{
		store:    store,
		pool:     pool,
		sessions: session.NewManager(newDevice, deps, opts),
		boards:   newWhiteboard(cfg, store, logger),
		prefs:    prefs,
		logger:   logger,
	}, nil
}

// Close finalizes any recording still running before the workers and the
// store go away.
func (a *app) Close(ctx context.Context) {
	a.sessions.Shutdown(ctx)
	a.pool.Stop()
	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close storage", "err", err)
	}
}

func openAIOptions(cfg config.AIConfig) ai.OpenAIOptions {
	return ai.OpenAIOptions{
		APIKey:             cfg.APIKey,
		BaseURL:            cfg.BaseURL,
		TranscriptionModel: cfg.TranscriptionModel,
		SummaryModel:       cfg.SummaryModel,
		VisionModel:        cfg.VisionModel,
		Language:           cfg.Language,
		HTTPTimeout:        cfg.HTTPTimeout,
	}
}

func newProviders(cfg config.AIConfig) (session.Transcriber, session.Summarizer) {
	if cfg.Provider == config.ProviderOpenAI {
		opts := openAIOptions(cfg)
		return ai.NewOpenAITranscriber(opts), ai.NewOpenAISummarizer(opts)
	}
	return &ai.SimulatedTranscriber{Delay: cfg.SimulatedDelay},
		&ai.SimulatedSummarizer{Delay: cfg.SimulatedDelay}
}

func newWhiteboard(cfg *config.Config, notes whiteboard.NoteSaver, logger *log.Logger) *whiteboard.Service {
	var analyzer whiteboard.Analyzer = &ai.SimulatedAnalyzer{Delay: cfg.AI.SimulatedDelay}
	if cfg.AI.Provider == config.ProviderOpenAI {
		analyzer = ai.NewOpenAIAnalyzer(openAIOptions(cfg.AI))
	}
	return whiteboard.NewService(analyzer, notes, cfg.Storage.ImageDir, logger)
}

func newDeviceFactory(cfg config.CaptureConfig) (session.DeviceFactory, error) {
	if cfg.Device == config.DeviceFFmpeg {
		if err := capture.CheckFFmpeg(); err != nil {
			return nil, err
		}
		return func(id string) (capture.Device, error) {
			return capture.NewFFmpegDevice(cfg.InputFormat, cfg.InputDevice, filepath.Join(cfg.Dir, id)), nil
		}, nil
	}
	return func(id string) (capture.Device, error) {
		return capture.NewSimulatedDevice(filepath.Join(cfg.Dir, id)), nil
	}, nil
}
