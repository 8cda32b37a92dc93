package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"lecture-notes/pkg/models"
)

// DefaultSummaryPrompt asks for the summary shape the study notes need.
const DefaultSummaryPrompt = `You summarize lecture transcripts for students, including students with dyslexia.
Reply with a single JSON object with these fields:
  "summary": a short plain-language paragraph,
  "key_points": 3 to 6 strings, each starting with a relevant emoji,
  "chapters": 2 to 6 objects {"title", "emoji", "position"} where position is
              the fraction (0 to 1) of the lecture at which the chapter starts.
Order chapters by position. Do not add any text outside the JSON object.`

type OpenAIOptions struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	SummaryModel       string
	SummaryPrompt      string
	VisionModel        string
	Language           string
	HTTPTimeout        time.Duration
}

func newOpenAIClient(opts OpenAIOptions) *openai.Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	timeout := opts.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(cfg)
}

// OpenAITranscriber sends chunk audio to the Whisper transcription endpoint.
type OpenAITranscriber struct {
	client   *openai.Client
	model    string
	language string
}

func NewOpenAITranscriber(opts OpenAIOptions) *OpenAITranscriber {
	model := opts.TranscriptionModel
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAITranscriber{
		client:   newOpenAIClient(opts),
		model:    model,
		language: opts.Language,
	}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, chunk models.AudioChunk) (string, error) {
	if !supportedAudio(chunk.Audio.URI) {
		return "", fmt.Errorf("transcribe chunk %d: %w: %s", chunk.SequenceNumber, ErrUnsupportedFormat, filepath.Ext(chunk.Audio.URI))
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: chunk.Audio.URI,
		Language: t.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", classify(fmt.Sprintf("transcribe chunk %d", chunk.SequenceNumber), err)
	}
	return strings.TrimSpace(resp.Text), nil
}

var supportedExt = map[string]bool{
	".flac": true, ".m4a": true, ".mp3": true, ".mp4": true, ".mpeg": true,
	".mpga": true, ".oga": true, ".ogg": true, ".wav": true, ".webm": true,
}

func supportedAudio(uri string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(uri))]
}

// OpenAISummarizer produces summary, key points and chapters with a JSON-mode
// chat completion.
type OpenAISummarizer struct {
	client *openai.Client
	model  string
	prompt string
}

func NewOpenAISummarizer(opts OpenAIOptions) *OpenAISummarizer {
	model := opts.SummaryModel
	if model == "" {
		model = openai.GPT4oMini
	}
	prompt := opts.SummaryPrompt
	if prompt == "" {
		prompt = DefaultSummaryPrompt
	}
	return &OpenAISummarizer{
		client: newOpenAIClient(opts),
		model:  model,
		prompt: prompt,
	}
}

type summaryPayload struct {
	Summary   string           `json:"summary"`
	KeyPoints []string         `json:"key_points"`
	Chapters  []models.Chapter `json:"chapters"`
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, transcript string) (models.Summary, error) {
	if strings.TrimSpace(transcript) == "" {
		return models.Summary{}, ErrEmptyInput
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   1500,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.prompt},
			{Role: openai.ChatMessageRoleUser, Content: "Here is the lecture transcript:\n\n" + transcript},
		},
	})
	if err != nil {
		return models.Summary{}, classify("summarize", err)
	}
	if len(resp.Choices) == 0 {
		return models.Summary{}, fmt.Errorf("summarize: %w: no choices in response", ErrNetwork)
	}
	return parseSummary(resp.Choices[0].Message.Content)
}

func parseSummary(content string) (models.Summary, error) {
	var payload summaryPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return models.Summary{}, fmt.Errorf("summarize: %w: parse response: %v", ErrNetwork, err)
	}
	chapters := payload.Chapters[:0]
	for _, ch := range payload.Chapters {
		if ch.Title == "" {
			continue
		}
		ch.Position = clamp01(ch.Position)
		chapters = append(chapters, ch)
	}
	return models.Summary{
		Text:      strings.TrimSpace(payload.Summary),
		KeyPoints: payload.KeyPoints,
		Chapters:  chapters,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
