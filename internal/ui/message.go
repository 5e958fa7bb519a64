package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tunex/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgSearchComplete
)

type searchOutcome struct {
	result tasks.Result
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// searchCompleteMsg is the constructor for [MsgSearchComplete]
func searchCompleteMsg(result tasks.Result, err error) Msg {
	return Msg{kind: MsgSearchComplete, data: searchOutcome{result, err}}
}
