package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/desertthunder/tunedl/internal/formatter"
	"github.com/desertthunder/tunedl/internal/ledger"
)

// same reports whether a and b are the same ledger entry.
func same(a, b ledger.Event) bool {
	return a.Timestamp.Equal(b.Timestamp) && a.Severity == b.Severity && a.Message == b.Message
}

// fresh returns the events of next that come after the last event of prev.
//
// The ledger drops its oldest events once full, so positions shift between polls; the last event seen is
// located by value instead. When it has already been evicted every event in next is new.
func fresh(prev, next []ledger.Event) []ledger.Event {
	if len(prev) == 0 {
		return next
	}
	last := prev[len(prev)-1]
	for i := len(next) - 1; i >= 0; i-- {
		if same(next[i], last) {
			return next[i+1:]
		}
	}
	return next
}

// renderEvents draws one styled line per event.
func renderEvents(events []ledger.Event) string {
	if len(events) == 0 {
		return styles.help.Render("Waiting for events...")
	}

	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = styles.Severity(e.Severity).Render(formatter.FormatEvent(e))
	}
	return strings.Join(lines, "\n")
}

// Follow polls source every interval and prints each new event to w as a plain line until the job ends.
//
// Consecutive poll failures are tolerated up to a limit, after which the last error is returned. A job
// that does not exist ends the loop on the first poll.
func Follow(ctx context.Context, w io.Writer, source Source, interval time.Duration) (Snapshot, error) {
	var (
		last     Snapshot
		failures int
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := source(ctx)
		switch {
		case err != nil:
			failures++
			if failures >= maxPollFailures || notFound(err) {
				return last, err
			}
		default:
			failures = 0
			for _, e := range fresh(last.Events, snap.Events) {
				fmt.Fprintln(w, formatter.FormatEvent(e))
			}
			last = snap
			if snap.Done() {
				return last, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
