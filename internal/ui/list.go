package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/tunex/internal/tasks"
)

var _ list.Item = historyItem{}

// historyItem wraps a finished [tasks.Result] to implement [list.Item].
type historyItem struct {
	raw    string
	result tasks.Result
}

func (i historyItem) FilterValue() string { return i.raw }
func (i historyItem) Title() string       { return i.raw }
func (i historyItem) Description() string {
	if !i.result.Found {
		return "no match"
	}
	c := i.result.Candidate
	desc := c.Title
	if c.Performer != "" {
		desc = fmt.Sprintf("%s - %s", c.Performer, c.Title)
	}
	return fmt.Sprintf("%s • %s • %d", desc, i.result.Origin, c.Score)
}
