// Package server provides the HTTP JSON API: routing, middleware and the handlers in front of a
// [tasks.Orchestrator].
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Server] installs [Logging], [Recover] and [CORS] in that order.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering. Unknown paths get a
// JSON 404 and known paths called with the wrong method a JSON 405.
//
// # Endpoints
//
//	GET  /api/health                  liveness, no downstream calls
//	GET  /api/spotify/item?url=       item info and every track
//	GET  /api/spotify/info?url=       item info, track count and a five track preview
//	GET  /api/spotify/search?q=       catalog search (type defaults to playlist, limit to 10)
//	POST /api/download/start          {"url": ...}, returns 202 with a download_id immediately
//	GET  /api/download/progress/{id}  event log and status of a download
//
// Lookup endpoints are synchronous. Failures use {"success": false, "error": "..."} with 400 for bad input,
// 502 for catalog failures and 500 for everything else. Downloads never fail synchronously: their errors
// only appear in the progress log.
//
// # Shutdown
//
// [Server.ListenAndServe] runs the listener and a shutdown watcher in an errgroup; cancelling its context
// drains in-flight requests for up to [ShutdownTimeout].
package server
