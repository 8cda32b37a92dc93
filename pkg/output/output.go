// Package output renders sessions, notes and preferences for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"lecture-notes/pkg/models"
)

type styles struct {
	title     lipgloss.Style
	timestamp lipgloss.Style
	highlight lipgloss.Style
	keyPoint  lipgloss.Style
	chapter   lipgloss.Style
	errText   lipgloss.Style
	dim       lipgloss.Style
}

// newStyles builds styles against w so colors are dropped when w is not a
// terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FFFF")),
		timestamp: r.NewStyle().Foreground(lipgloss.Color("#666666")),
		highlight: r.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		keyPoint:  r.NewStyle().Bold(true),
		chapter:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF00FF")),
		errText:   r.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		dim:       r.NewStyle().Foreground(lipgloss.Color("#444444")),
	}
}

type Formatter struct {
	w     io.Writer
	style styles
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w, style: newStyles(w)}
}

func (f *Formatter) RecordingStarted(sessionID string) {
	fmt.Fprintf(f.w, "🎙️  Recording started %s\n", f.style.dim.Render(sessionID))
}

func (f *Formatter) RecordingStopped(duration time.Duration) {
	fmt.Fprintf(f.w, "⏹️  Recording stopped (%s)\n", formatDuration(duration))
}

func (f *Formatter) Summarizing() {
	fmt.Fprintf(f.w, "🤖 Generating summary...\n")
}

func (f *Formatter) NoteSaved(note models.Note) {
	fmt.Fprintf(f.w, "\n📁 Note saved: %s (%s)\n", note.Title, note.ID)
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", f.style.errText.Render(msg))
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

// Segment prints one transcript line. Chapter markers print as headings.
func (f *Formatter) Segment(seg models.TranscriptSegment) {
	ts := f.style.timestamp.Render("[" + seg.TimestampLabel + "]")
	if seg.IsChapterMarker {
		fmt.Fprintf(f.w, "\n%s %s\n", ts, f.style.chapter.Render(strings.TrimSpace(seg.Emoji+" "+seg.Title)))
		return
	}

	text := seg.Text
	marks := ""
	switch {
	case seg.IsKeyPoint && seg.IsHighlighted:
		text = f.style.keyPoint.Inherit(f.style.highlight).Render(text)
		marks = " ⭐🖍️"
	case seg.IsKeyPoint:
		text = f.style.keyPoint.Render(text)
		marks = " ⭐"
	case seg.IsHighlighted:
		text = f.style.highlight.Render(text)
		marks = " 🖍️"
	}
	fmt.Fprintf(f.w, "%s %s%s\n", ts, text, marks)
}

func (f *Formatter) Transcript(segments []models.TranscriptSegment) {
	for _, seg := range segments {
		f.Segment(seg)
	}
}

func (f *Formatter) Summary(s models.Summary) {
	fmt.Fprintf(f.w, "\n%s\n%s\n", f.style.title.Render("Summary"), s.Text)
	if len(s.KeyPoints) > 0 {
		fmt.Fprintf(f.w, "\n%s\n", f.style.title.Render("Key points"))
		for _, p := range s.KeyPoints {
			fmt.Fprintf(f.w, "  • %s\n", p)
		}
	}
}

// NoteList prints notes as a table, newest first as given.
func (f *Formatter) NoteList(notes []models.Note) {
	if len(notes) == 0 {
		f.Info("No notes found")
		return
	}

	table := tablewriter.NewWriter(f.w)
	table.SetHeader([]string{"ID", "Created At", "Title", "Duration", "Tags"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, n := range notes {
		table.Append([]string{
			n.ID,
			n.CreatedAt.Local().Format("2006-01-02 15:04"),
			strings.TrimSpace(n.Emoji + " " + n.Title),
			formatDuration(time.Duration(n.DurationSeconds * float64(time.Second))),
			strings.Join(n.Tags, ", "),
		})
	}
	table.Render()
}

// Note prints a saved note in full.
func (f *Formatter) Note(n models.Note) {
	fmt.Fprintf(f.w, "%s\n", f.style.title.Render(strings.TrimSpace(n.Emoji+" "+n.Title)))
	fmt.Fprintf(f.w, "%s\n", f.style.dim.Render(fmt.Sprintf("%s · %s · %s",
		n.CreatedAt.Local().Format("2006-01-02 15:04"),
		formatDuration(time.Duration(n.DurationSeconds*float64(time.Second))),
		strings.Join(n.Tags, ", "))))

	if n.SummaryText != "" {
		f.Summary(models.Summary{Text: n.SummaryText, KeyPoints: n.KeyPoints})
	}
	if len(n.KeySegments) > 0 {
		fmt.Fprintf(f.w, "\n%s\n", f.style.title.Render("Key segments"))
		for _, ks := range n.KeySegments {
			fmt.Fprintf(f.w, "  %s %s: %s\n", f.style.timestamp.Render("["+ks.TimestampLabel+"]"), ks.Name, ks.Text)
		}
	}
	if len(n.FullTranscript) > 0 || !n.Audio.IsZero() {
		fmt.Fprintf(f.w, "\n%s\n", f.style.title.Render("Transcript"))
		f.Transcript(n.FullTranscript)
	}
	if !n.Audio.IsZero() {
		fmt.Fprintf(f.w, "\n🔊 %s\n", n.Audio.URI)
	}
	if n.Image != nil {
		fmt.Fprintf(f.w, "\n🖼 %s\n", n.Image.URI)
	}
}

func (f *Formatter) Preferences(p models.Preferences) {
	table := tablewriter.NewWriter(f.w)
	table.SetHeader([]string{"Setting", "Value"})
	table.SetBorder(false)
	table.SetAutoFormatHeaders(true)
	table.AppendBulk([][]string{
		{"dark_mode", fmt.Sprint(p.DarkMode)},
		{"notifications", fmt.Sprint(p.Notifications)},
		{"offline_access", fmt.Sprint(p.OfflineAccess)},
		{"learning_style", p.LearningStyle},
	})
	table.Render()
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, f.style.errText.Render(detail))
	}
}
