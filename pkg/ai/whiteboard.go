package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"lecture-notes/pkg/models"
)

// DefaultWhiteboardPrompt asks a vision model for a study-friendly reading of
// a whiteboard photo.
const DefaultWhiteboardPrompt = `You read photos of classroom whiteboards for students, including students with dyslexia.
Reply with a single JSON object with these fields:
  "analysis": one or two plain-language paragraphs explaining what the board shows,
  "key_points": 3 to 8 short strings with the facts a student should remember.
Do not add any text outside the JSON object.`

// ImageExtensions maps the image types the analyzers accept onto a file
// extension.
var ImageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

func checkImage(image []byte, contentType string) error {
	if len(image) == 0 {
		return fmt.Errorf("analyze whiteboard: %w: no image data", ErrEmptyInput)
	}
	if _, ok := ImageExtensions[contentType]; !ok {
		return fmt.Errorf("analyze whiteboard: %w: %s", ErrUnsupportedFormat, contentType)
	}
	return nil
}

// SimulatedAnalyzer describes a water cycle diagram whatever the photo shows.
type SimulatedAnalyzer struct {
	Delay time.Duration
}

func (a *SimulatedAnalyzer) Analyze(ctx context.Context, image []byte, contentType string) (models.WhiteboardAnalysis, error) {
	if err := checkImage(image, contentType); err != nil {
		return models.WhiteboardAnalysis{}, err
	}
	if err := sleep(ctx, a.Delay); err != nil {
		return models.WhiteboardAnalysis{}, classify("analyze whiteboard", err)
	}

	return models.WhiteboardAnalysis{
		Text: "The whiteboard displays a detailed illustration of the water cycle, which is a crucial ecological process. " +
			"The diagram captures how water circulates through the Earth's atmosphere, surface, and underground systems. " +
			"The arrows clearly indicate the flow direction between different states (liquid, gas, solid) and locations (atmosphere, surface, underground).\n\n" +
			"The diagram effectively demonstrates key processes including evaporation from bodies of water, transpiration from plants, condensation forming clouds, " +
			"precipitation as rain or snow, infiltration into the soil, and runoff into bodies of water. " +
			"The cyclical nature of the process is well-represented with a continuous flow of arrows connecting each stage.",
		KeyPoints: []string{
			"The sun provides energy that drives evaporation from oceans, lakes, and rivers",
			"Water vapor rises and condenses in the atmosphere to form clouds",
			"Precipitation occurs when water falls as rain or snow",
			"Some water infiltrates the soil and becomes groundwater",
			"Plants absorb water and release it through transpiration",
			"Surface runoff returns water to larger bodies of water",
		},
	}, nil
}

// OpenAIAnalyzer sends the photo inline to a vision-capable chat model.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

func NewOpenAIAnalyzer(opts OpenAIOptions) *OpenAIAnalyzer {
	model := opts.VisionModel
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAnalyzer{
		client: newOpenAIClient(opts),
		model:  model,
	}
}

type whiteboardPayload struct {
	Analysis  string   `json:"analysis"`
	KeyPoints []string `json:"key_points"`
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, image []byte, contentType string) (models.WhiteboardAnalysis, error) {
	if err := checkImage(image, contentType); err != nil {
		return models.WhiteboardAnalysis{}, err
	}

	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image)
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		MaxTokens:   1200,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: DefaultWhiteboardPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: "Here is the whiteboard photo."},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	})
	if err != nil {
		return models.WhiteboardAnalysis{}, classify("analyze whiteboard", err)
	}
	if len(resp.Choices) == 0 {
		return models.WhiteboardAnalysis{}, fmt.Errorf("analyze whiteboard: %w: no choices in response", ErrNetwork)
	}
	return parseWhiteboard(resp.Choices[0].Message.Content)
}

func parseWhiteboard(content string) (models.WhiteboardAnalysis, error) {
	var payload whiteboardPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return models.WhiteboardAnalysis{}, fmt.Errorf("analyze whiteboard: %w: parse response: %v", ErrNetwork, err)
	}
	points := payload.KeyPoints[:0]
	for _, p := range payload.KeyPoints {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	return models.WhiteboardAnalysis{
		Text:      strings.TrimSpace(payload.Analysis),
		KeyPoints: points,
	}, nil
}
