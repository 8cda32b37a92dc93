// Package whiteboard turns a photo of a whiteboard into a saved study note.
package whiteboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"lecture-notes/pkg/ai"
	"lecture-notes/pkg/models"
)

const (
	DefaultTitle = "Whiteboard Analysis"
	Tag          = "Whiteboard"
	Emoji        = "📋"
)

type Analyzer interface {
	Analyze(ctx context.Context, image []byte, contentType string) (models.WhiteboardAnalysis, error)
}

type NoteSaver interface {
	Save(ctx context.Context, note models.Note) (string, error)
}

// Request is one photo to analyze. A blank Title becomes DefaultTitle.
type Request struct {
	Image []byte
	Title string
	Tags  []string
}

// Service analyzes photos, keeps them under Dir and saves the result as a
// note tagged Tag.
type Service struct {
	analyzer Analyzer
	notes    NoteSaver
	dir      string
	now      func() time.Time
	logger   *log.Logger
}

func NewService(analyzer Analyzer, notes NoteSaver, dir string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		analyzer: analyzer,
		notes:    notes,
		dir:      dir,
		now:      time.Now,
		logger:   logger.With("component", "whiteboard"),
	}
}

func (s *Service) Capture(ctx context.Context, req Request) (models.Note, error) {
	if len(req.Image) == 0 {
		return models.Note{}, fmt.Errorf("capture whiteboard: %w: no image data", ai.ErrEmptyInput)
	}
	contentType := http.DetectContentType(req.Image)
	ext, ok := ai.ImageExtensions[contentType]
	if !ok {
		return models.Note{}, fmt.Errorf("capture whiteboard: %w: %s", ai.ErrUnsupportedFormat, contentType)
	}

	analysis, err := s.analyzer.Analyze(ctx, req.Image, contentType)
	if err != nil {
		s.logger.Error("Whiteboard analysis failed", "err", err)
		return models.Note{}, err
	}

	id := models.NewNoteID()
	image, err := s.storeImage(id+ext, req.Image, contentType)
	if err != nil {
		return models.Note{}, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle
	}
	note := models.Note{
		ID:          id,
		Title:       title,
		Emoji:       Emoji,
		CreatedAt:   s.now().UTC(),
		Tags:        tags(req.Tags),
		SummaryText: analysis.Text,
		KeyPoints:   analysis.KeyPoints,
		Image:       &image,
	}
	if _, err := s.notes.Save(ctx, note); err != nil {
		if rerr := os.Remove(image.URI); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			s.logger.Warn("Failed to remove image of unsaved note", "path", image.URI, "err", rerr)
		}
		return models.Note{}, fmt.Errorf("save whiteboard note: %w", err)
	}

	s.logger.Info("Whiteboard note saved", "note", id, "key_points", len(analysis.KeyPoints), "bytes", image.Size)
	return note, nil
}

func (s *Service) storeImage(name string, data []byte, contentType string) (models.ImageRef, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return models.ImageRef{}, fmt.Errorf("failed to create image directory: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return models.ImageRef{}, fmt.Errorf("store whiteboard image: %w", err)
	}
	return models.ImageRef{URI: path, Size: int64(len(data)), ContentType: contentType}, nil
}

// tags puts Tag first, then the trimmed user tags without duplicates.
func tags(user []string) []string {
	seen := map[string]bool{Tag: true}
	out := []string{Tag}
	for _, t := range user {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
