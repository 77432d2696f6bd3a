package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"redstonemusic.ai/internal/sim/engine"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e03c28"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888")).Width(14)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3c9e3c"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e03c28")).Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderSummary(results []engine.Result) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, boxStyle.Render(renderResult(r)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func renderResult(r engine.Result) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(r.Name))
	b.WriteString("\n")
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	if !r.Success {
		row("status", errStyle.Render("failed"))
		row("error", r.Error)
		return strings.TrimSuffix(b.String(), "\n")
	}
	row("status", okStyle.Render("ok"))
	row("format", fmt.Sprintf("%s (%s)", r.Format, r.Strategy))
	row("file", r.FilePath)
	row("size", humanize.Bytes(uint64(r.FileSizeBytes)))
	row("dimensions", fmt.Sprintf("%d x %d x %d", r.Dimensions.Width, r.Dimensions.Height, r.Dimensions.Length))
	row("note blocks", humanize.Comma(int64(r.NoteBlocksCount)))
	row("rows", fmt.Sprintf("%d x %d per row", r.Rows, r.NotesPerRow))
	row("redstone", fmt.Sprintf("~%s dust, ~%s repeaters", humanize.Comma(int64(r.EstimatedRedstone)), humanize.Comma(int64(r.EstimatedRepeaters))))
	row("duration", fmt.Sprintf("%.1fs (%d ticks)", r.DurationSeconds, r.TotalTimeSpan))
	if r.Reflowed {
		row("layout", "reflowed across width")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
