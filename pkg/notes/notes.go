// Package notes implements browsing saved notes: search, tag filters and
// deletion.
package notes

import (
	"context"
	"fmt"
	"strings"

	"lecture-notes/pkg/models"
	"lecture-notes/pkg/storage"
)

const (
	TagImportant = "Important"
	TagExamPrep  = "Exam Prep"
)

// Filter names accepted by Query, besides any literal tag.
const (
	FilterAll       = "all"
	FilterImportant = "important"
	FilterExam      = "exam"
)

// Query selects notes. Search matches title or summary, ignoring case.
// Filter is "all", "important", "exam" or an exact tag.
type Query struct {
	Search string
	Filter string
}

func (q Query) tag() string {
	switch strings.ToLower(strings.TrimSpace(q.Filter)) {
	case "", FilterAll:
		return ""
	case FilterImportant:
		return TagImportant
	case FilterExam:
		return TagExamPrep
	}
	return strings.TrimSpace(q.Filter)
}

// Match reports whether note satisfies q.
func (q Query) Match(note *models.Note) bool {
	if tag := q.tag(); tag != "" && !note.HasTag(tag) {
		return false
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(note.Title), search) ||
		strings.Contains(strings.ToLower(note.SummaryText), search)
}

type Service struct {
	store storage.NoteStore
}

func NewService(store storage.NoteStore) *Service {
	return &Service{store: store}
}

// Find lists matching notes, newest first.
func (s *Service) Find(ctx context.Context, q Query) ([]models.Note, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	out := make([]models.Note, 0, len(all))
	for i := range all {
		if q.Match(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Note, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Tags returns every tag in use, in order of first appearance over the
// newest-first listing.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	seen := map[string]bool{}
	var tags []string
	for _, n := range all {
		for _, t := range n.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	return tags, nil
}
