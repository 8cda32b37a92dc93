// Package config loads settings from defaults, an optional YAML file, a
// .env file and LECTURENOTES_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "LECTURENOTES"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Session  SessionConfig  `mapstructure:"session"`
	Storage  StorageConfig  `mapstructure:"storage"`
	AI       AIConfig       `mapstructure:"ai"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PipelineConfig sizes the transcription worker pool.
type PipelineConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

type SessionConfig struct {
	ChunkInterval      time.Duration `mapstructure:"chunk_interval"`
	MinTailChunk       time.Duration `mapstructure:"min_tail_chunk"`
	TranscribeAttempts int           `mapstructure:"transcribe_attempts"`
	TranscribeTimeout  time.Duration `mapstructure:"transcribe_timeout"`
	SummarizeTimeout   time.Duration `mapstructure:"summarize_timeout"`
}

type StorageConfig struct {
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
	AudioDir string `mapstructure:"audio_dir"`
	ImageDir string `mapstructure:"image_dir"`
}

type AIConfig struct {
	Provider           string        `mapstructure:"provider"`
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"`
	TranscriptionModel string        `mapstructure:"transcription_model"`
	SummaryModel       string        `mapstructure:"summary_model"`
	VisionModel        string        `mapstructure:"vision_model"`
	Language           string        `mapstructure:"language"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`
	SimulatedDelay     time.Duration `mapstructure:"simulated_delay"`
}

type CaptureConfig struct {
	Device      string `mapstructure:"device"`
	InputFormat string `mapstructure:"input_format"`
	InputDevice string `mapstructure:"input_device"`
	Dir         string `mapstructure:"dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

const (
	ProviderSimulated = "simulated"
	ProviderOpenAI    = "openai"

	DeviceSimulated = "simulated"
	DeviceFFmpeg    = "ffmpeg"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("pipeline.workers", 2)
	v.SetDefault("pipeline.queue_size", 64)

	v.SetDefault("session.chunk_interval", 15*time.Second)
	v.SetDefault("session.min_tail_chunk", 5*time.Second)
	v.SetDefault("session.transcribe_attempts", 2)
	v.SetDefault("session.transcribe_timeout", time.Minute)
	v.SetDefault("session.summarize_timeout", 2*time.Minute)

	v.SetDefault("storage.backend", "badger")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.audio_dir", "./data/audio")
	v.SetDefault("storage.image_dir", "./data/images")

	v.SetDefault("ai.provider", ProviderSimulated)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.transcription_model", "whisper-1")
	v.SetDefault("ai.summary_model", "gpt-4o-mini")
	v.SetDefault("ai.vision_model", "gpt-4o-mini")
	v.SetDefault("ai.language", "")
	v.SetDefault("ai.http_timeout", 2*time.Minute)
	v.SetDefault("ai.simulated_delay", 1500*time.Millisecond)

	v.SetDefault("capture.device", DeviceSimulated)
	v.SetDefault("capture.input_format", defaultInputFormat())
	v.SetDefault("capture.input_device", defaultInputDevice())
	v.SetDefault("capture.dir", "./data/capture")

	v.SetDefault("log.level", "info")
}

// Load reads configuration. file may be empty, in which case config.yaml is
// looked up in the working directory and skipped if absent.
func Load(v *viper.Viper, file string) (*Config, error) {
	// A missing .env file is normal.
	_ = godotenv.Load()

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("ai.api_key", EnvPrefix+"_AI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.AI.Provider {
	case ProviderSimulated:
	case ProviderOpenAI:
		if c.AI.APIKey == "" {
			return fmt.Errorf("ai.provider is openai but no API key is set (OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}
	switch c.Capture.Device {
	case DeviceSimulated, DeviceFFmpeg:
	default:
		return fmt.Errorf("unknown capture.device %q", c.Capture.Device)
	}
	if c.Session.ChunkInterval <= 0 {
		return fmt.Errorf("session.chunk_interval must be positive")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be positive")
	}
	return nil
}
