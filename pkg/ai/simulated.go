package ai

import (
	"context"
	"strings"
	"sync"
	"time"

	"lecture-notes/pkg/models"
)

var simulatedPhrases = []string{
	"The key characteristic of dyslexia is difficulty with phonological processing, which affects the ability to recognize and manipulate the sounds in words.",
	"Students with dyslexia often benefit from multisensory teaching methods that engage visual, auditory, and kinesthetic learning pathways simultaneously.",
	"Assistive technologies like text-to-speech software can significantly improve reading comprehension for dyslexic students.",
	"Dyslexia is not related to intelligence; many dyslexic individuals have average or above-average cognitive abilities.",
	"Early intervention is crucial for students with dyslexia to develop effective reading strategies and build confidence.",
	"Structured literacy approaches that explicitly teach phonics, decoding, and spelling rules are particularly effective for dyslexic learners.",
	"Many famous innovators and creative thinkers throughout history have had dyslexia, including Einstein, Leonardo da Vinci, and Steve Jobs.",
	"Dyslexia often co-occurs with other learning differences like ADHD, dysgraphia, or dyscalculia, requiring comprehensive support strategies.",
	"The brain of someone with dyslexia processes information differently, particularly in the regions responsible for language processing.",
	"Accommodations such as extended time on tests and alternative assessment methods can help dyslexic students demonstrate their true knowledge.",
}

// SimulatedTranscriber returns canned lecture sentences after an artificial
// delay. Chunk N always yields the same phrase.
type SimulatedTranscriber struct {
	Delay time.Duration
}

func (t *SimulatedTranscriber) Transcribe(ctx context.Context, chunk models.AudioChunk) (string, error) {
	if err := sleep(ctx, t.Delay); err != nil {
		return "", classify("transcribe", err)
	}
	idx := (chunk.SequenceNumber - 1) % len(simulatedPhrases)
	if idx < 0 {
		idx += len(simulatedPhrases)
	}
	return simulatedPhrases[idx], nil
}

// SimulatedSummarizer returns the demo lecture summary with four chapters at
// 20, 40, 60 and 80 percent of the recording.
type SimulatedSummarizer struct {
	Delay time.Duration

	mu    sync.Mutex
	calls int
}

func (s *SimulatedSummarizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *SimulatedSummarizer) Summarize(ctx context.Context, transcript string) (models.Summary, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if strings.TrimSpace(transcript) == "" {
		return models.Summary{}, ErrEmptyInput
	}
	if err := sleep(ctx, s.Delay); err != nil {
		return models.Summary{}, classify("summarize", err)
	}

	return models.Summary{
		Text: "This lecture focused on dyslexia, a learning disorder that affects reading ability due to difficulties identifying speech sounds and learning how they relate to letters. " +
			"Key characteristics include difficulty with phonological processing, which affects the ability to recognize and manipulate sounds in words. " +
			"The lecture emphasized that dyslexia is not related to intelligence, with many dyslexic individuals having average or above-average cognitive abilities.",
		KeyPoints: []string{
			"🧠 Dyslexia affects phonological processing but not intelligence",
			"👁 Multisensory teaching methods are particularly effective for learning",
			"🔊 Assistive technologies like text-to-speech improve reading comprehension",
			"⏱️ Early intervention is crucial for developing effective reading strategies",
			"📚 Structured literacy with explicit phonics instruction works best",
			"💡 Many successful innovators throughout history had dyslexia",
		},
		Chapters: []models.Chapter{
			{Title: "Understanding Dyslexia", Emoji: "🧠", Position: 0.2},
			{Title: "Characteristics & Symptoms", Emoji: "📊", Position: 0.4},
			{Title: "Teaching Strategies", Emoji: "📚", Position: 0.6},
			{Title: "Assistive Technologies", Emoji: "💻", Position: 0.8},
		},
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
