package sinks

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/JakeFAU/experience-hoarder/internal/crawler"
	"github.com/JakeFAU/experience-hoarder/internal/progress"
)

const (
	clearScreen  = "\x1b[H\x1b[2J"
	statusColumn = 2
)

// TableSink re-renders the whole active window as a table every time a code
// resolves, in the order the window was built.
type TableSink struct {
	mu     sync.Mutex
	out    io.Writer
	redraw bool

	title    lipgloss.Style
	header   lipgloss.Style
	cell     lipgloss.Style
	muted    lipgloss.Style
	found    lipgloss.Style
	notFound lipgloss.Style
	pending  lipgloss.Style
}

// NewTableSink renders to out. When redraw is set each frame clears the
// terminal first so the table updates in place.
func NewTableSink(out io.Writer, redraw bool) *TableSink {
	r := lipgloss.NewRenderer(out)
	return &TableSink{
		out:      out,
		redraw:   redraw,
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		header:   r.NewStyle().Bold(true).Padding(0, 1),
		cell:     r.NewStyle().Padding(0, 1),
		muted:    r.NewStyle().Foreground(lipgloss.Color("8")),
		found:    r.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("10")).Bold(true),
		notFound: r.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("9")),
		pending:  r.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("11")),
	}
}

// Consume renders a frame for window, resolution and completion events.
func (s *TableSink) Consume(_ context.Context, evt progress.Event) error {
	if evt.Stage == progress.StageSweepStart {
		return nil
	}
	frame := s.Render(evt)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.redraw {
		frame = clearScreen + frame
	}
	if _, err := io.WriteString(s.out, frame); err != nil {
		return fmt.Errorf("write status table: %w", err)
	}
	return nil
}

// Render builds one frame for evt without writing it.
func (s *TableSink) Render(evt progress.Event) string {
	rows := make([][]string, 0, len(evt.Window))
	for _, entry := range evt.Window {
		rows = append(rows, []string{
			entry.Code.String(),
			strconv.FormatInt(entry.Code.Int(), 10),
			string(entry.Status),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.muted).
		Headers("CODE", "VALUE", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return s.header
			case col == statusColumn && row >= 0 && row < len(evt.Window):
				return s.statusStyle(evt.Window[row].Status)
			default:
				return s.cell
			}
		})

	var sb strings.Builder
	sb.WriteString(s.title.Render(fmt.Sprintf("sweep %s  window %d  %s", evt.SweepID, evt.WindowIndex, evt.Stage)))
	sb.WriteString("\n")
	sb.WriteString(tbl.Render())
	sb.WriteString("\n")

	pending, found, notFound := evt.Counts()
	sb.WriteString(s.muted.Render(fmt.Sprintf("pending %d  found %d  not_found %d", pending, found, notFound)))
	sb.WriteString("\n")
	if evt.Note != "" {
		sb.WriteString(s.notFound.Render(evt.Note))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (s *TableSink) statusStyle(status crawler.Status) lipgloss.Style {
	switch status {
	case crawler.StatusFound:
		return s.found
	case crawler.StatusNotFound:
		return s.notFound
	default:
		return s.pending
	}
}

// Close implements the Sink interface; it performs no action.
func (s *TableSink) Close(context.Context) error {
	return nil
}
