package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF4D4D", "#FFA500", "#7A7A7A")

// Palette is the stylesheet for every view, built with named [lipgloss.Style] fields.
type Palette struct {
	title  lipgloss.Style
	accent lipgloss.Style // spinner and highlighted values
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
}

// NewPalette builds a Palette from the accent, success, error, warning and muted foreground colors.
func NewPalette(accent, success, failure, warning, muted string) *Palette {
	return &Palette{
		title:  NewBold(accent).MarginBottom(1),
		accent: NewStyle(accent),
		ok:     NewBold(success),
		err:    NewBold(failure),
		warn:   NewStyle(warning),
		help:   NewEm(muted),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
