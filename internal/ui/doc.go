// Package ui implements an interactive terminal search interface using bubbletea's Elm architecture.
//
// The TUI moves through four views:
//  1. [InputView] : Type a query
//  2. [SearchingView] : Watch the fan-out progress while sources answer
//  3. [ResultView] : Inspect the winning track, or the miss
//  4. [HistoryView] : Browse and filter earlier searches from this session
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the coordinator, providing non-blocking status reporting during searches.
//
// Keyboard navigation uses enter, esc, tab, n and q with contextual help displayed via charmbracelet/bubbles/help.
package ui
