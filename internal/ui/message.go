package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// MsgKind enumerates the watcher's own message types.
type MsgKind int

// Msg is the watcher's message union. Bubbletea's built-in messages (keys, window size, spinner ticks)
// arrive alongside it.
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPolled MsgKind = iota
	MsgPollDue
)

type polled struct {
	snapshot Snapshot
	err      error
}

// polledMsg is the constructor for [MsgPolled]
func polledMsg(snapshot Snapshot, err error) Msg {
	return Msg{kind: MsgPolled, data: polled{snapshot, err}}
}

// pollDueMsg is the constructor for [MsgPollDue]
func pollDueMsg() Msg {
	return Msg{kind: MsgPollDue}
}
