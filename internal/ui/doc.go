// Package ui renders the progress of a single job in the terminal.
//
// The watcher is a bubbletea program: a [Model] polls a [Source] on an interval and redraws the job's
// events in a scrollable viewport with a spinner and status line above it. It quits on its own once the job
// reaches a terminal status, leaving the final frame on screen.
//
// Sources come in two flavours: [LocalSource] reads an in-process [tasks.Orchestrator] and [RemoteSource]
// polls the HTTP progress endpoint through [services.APIService].
//
// [Follow] is the non-interactive counterpart used with --plain, printing each new event as one line.
package ui
