package ui

import (
	"strings"

	"vocabbar/internal/draw"

	"github.com/charmbracelet/lipgloss"
)

const cardWidth = 56

var (
	wordStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	exampleStyle = lipgloss.NewStyle().Italic(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cardStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2).
			Width(cardWidth)
)

// RenderCard draws the snapshot as a bordered card. While a draw is loading
// or has failed, the previous word stays visible.
func RenderCard(s draw.Snapshot) string {
	var sections []string

	switch {
	case s.State == draw.Exhausted:
		sections = append(sections,
			wordStyle.Render(draw.ExhaustedTitle),
			draw.ExhaustedDetail,
		)
	case s.Entry.Word == "":
		sections = append(sections, faintStyle.Render(draw.LoadingTitle))
	default:
		sections = append(sections, renderEntry(s)...)
	}

	if s.State == draw.Loading && s.Entry.Word != "" && s.Err == nil {
		sections = append(sections, faintStyle.Render(draw.LoadingTitle))
	}
	if status := s.Status(); status != "" {
		sections = append(sections, statusStyle.Render(status))
	}

	return cardStyle.Render(strings.Join(sections, "\n\n"))
}

func renderEntry(s draw.Snapshot) []string {
	word := wordStyle.Render(s.Entry.Word)
	if s.State != draw.WordReady {
		word = faintStyle.Render(s.Entry.Word)
	}

	sections := []string{word}
	if s.Entry.Meaning != "" {
		sections = append(sections, labelStyle.Render("Meaning:")+"\n"+s.Entry.Meaning)
	}
	if s.Entry.Example != "" {
		sections = append(sections, labelStyle.Render("Example:")+"\n"+exampleStyle.Render(s.Entry.Example))
	}
	return sections
}

func RenderNotice(text string) string {
	return noticeStyle.Render(text)
}

func RenderHelp(text string) string {
	return helpStyle.Render(text)
}
