// Package retrieval locates an audio source for a free text query and materializes it on disk.
package retrieval

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunedl/internal/shared"
)

// Request describes one retrieval: the search query and the exact file it must produce.
type Request struct {
	Query string
	Dest  string // final path, including the audio extension

	// Diagnostic, when set, receives each error line the engine reported, in order.
	Diagnostic func(line string)
}

// Result describes the source that was retrieved.
type Result struct {
	SourceTitle string
}

// Retriever searches for the single best audio source and writes it to [Request.Dest].
//
// Implementations apply their own bounded retries; a returned error is final for the request.
type Retriever interface {
	Retrieve(ctx context.Context, req Request) (*Result, error)
}

// Error reports a failed retrieval. It matches [shared.ErrRetrieval] and its cause.
type Error struct {
	Query string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("retrieval of %q failed: %v", e.Query, e.Err)
}

func (e *Error) Unwrap() []error { return []error{shared.ErrRetrieval, e.Err} }
