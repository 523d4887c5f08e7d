package review

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	accentColor  = lipgloss.Color("#2DA44E")
	primaryColor = lipgloss.Color("#0969DA")
	warningColor = lipgloss.Color("#D29922")
	errorColor   = lipgloss.Color("#CF222E")
	dimColor     = lipgloss.Color("#6E7681")
	scoreColor   = lipgloss.Color("#F778BA")
)

// styles renders against the gate's writer, so piped output stays plain.
type styles struct {
	header  lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	dim     lipgloss.Style
	score   lipgloss.Style
	issue   lipgloss.Style
	warning lipgloss.Style
	success lipgloss.Style
	reject  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header: r.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Padding(0, 2).
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(accentColor),
		title: r.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1),
		label:   r.NewStyle().Foreground(primaryColor).Bold(true),
		dim:     r.NewStyle().Foreground(dimColor),
		score:   r.NewStyle().Foreground(scoreColor).Bold(true),
		issue:   r.NewStyle().Foreground(errorColor),
		warning: r.NewStyle().Foreground(warningColor),
		success: r.NewStyle().Foreground(accentColor).Bold(true),
		reject:  r.NewStyle().Foreground(errorColor).Bold(true),
	}
}
