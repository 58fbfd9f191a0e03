package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunedl/internal/ledger"
	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/naming"
	"github.com/desertthunder/tunedl/internal/retrieval"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/desertthunder/tunedl/internal/tagging"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

const (
	UnknownArtist = "unknown_artist"
	UnknownTitle  = "unknown_audio"
	UnknownAlbum  = "unknown_album"

	DefaultQualifier = "official audio"
	audioExtension   = ".mp3"
	writeTestFile    = ".tunedl-write-test"
)

// Disposition is the terminal outcome of one track.
type Disposition string

const (
	DispositionPresent    Disposition = "already_present"
	DispositionDownloaded Disposition = "downloaded"
	DispositionTagFailed  Disposition = "tag_failed" // downloaded, tags not written
	DispositionFailed     Disposition = "failed"
)

// Acquired reports whether the file is on disk.
func (d Disposition) Acquired() bool {
	return d == DispositionPresent || d == DispositionDownloaded || d == DispositionTagFailed
}

// TrackOutcome is the result for one track of a job. Position is 1-based.
type TrackOutcome struct {
	Position    int
	Track       models.TrackDescriptor
	Artist      string // normalized
	Title       string // normalized
	Path        string
	Disposition Disposition
	Err         error
}

// RunResult summarizes an [Engine.Run].
type RunResult struct {
	Dir        string
	Outcomes   []TrackOutcome
	Present    int
	Downloaded int
	TagFailed  int
	Failed     int
}

func (r *RunResult) add(o TrackOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Disposition {
	case DispositionPresent:
		r.Present++
	case DispositionDownloaded:
		r.Downloaded++
	case DispositionTagFailed:
		r.TagFailed++
	default:
		r.Failed++
	}
}

// Recorder receives every terminal track outcome. Recording errors are logged and otherwise ignored.
type Recorder interface {
	RecordOutcome(ctx context.Context, jobID string, outcome TrackOutcome) error
}

// EngineOpts contains the collaborators of an [Engine].
type EngineOpts struct {
	Root      string // download root; job folders are created beneath it
	Qualifier string // appended to every search query
	Retriever retrieval.Retriever
	Tagger    tagging.Tagger
	Ledger    *ledger.Ledger
	Recorder  Recorder // optional
	Logger    *log.Logger
}

// Engine turns a job's track list into tagged files, one track at a time.
type Engine struct {
	opts EngineOpts
}

// NewEngine creates an [Engine]. A nil Ledger or Logger is replaced with a private one.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Qualifier == "" {
		opts.Qualifier = DefaultQualifier
	}
	if opts.Ledger == nil {
		opts.Ledger = ledger.New(ledger.DefaultCapacity)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Engine{opts: opts}
}

// Ledger returns the ledger events are written to.
func (e *Engine) Ledger() *ledger.Ledger { return e.opts.Ledger }

// emit appends event to the job's log and mirrors it to the logger.
func (e *Engine) emit(jobID string, event ledger.Event) {
	e.opts.Ledger.Append(jobID, event)

	logger := shared.WithLogger(e.opts.Logger, "job", jobID)
	switch event.Severity {
	case ledger.Error:
		logger.Error(event.Message)
	case ledger.Warning:
		logger.Warn(event.Message)
	case ledger.Success:
		logger.Info(event.Message, "status", "success")
	default:
		logger.Info(event.Message)
	}
}

// Run acquires tracks into <Root>/<folder>. folder must already be normalized.
//
// The only error returned is a failed write pre-flight, which wraps [shared.ErrPermission];
// per-track failures are reported through the ledger and the [RunResult].
func (e *Engine) Run(ctx context.Context, jobID, folder string, tracks []models.TrackDescriptor) (*RunResult, error) {
	dir := filepath.Join(e.opts.Root, folder)
	result := &RunResult{Dir: dir, Outcomes: make([]TrackOutcome, 0, len(tracks))}

	if err := preflight(dir); err != nil {
		e.emit(jobID, permissionUpdate(err))
		return result, fmt.Errorf("%w: %v", shared.ErrPermission, err)
	}

	for i, track := range tracks {
		outcome := e.acquire(ctx, jobID, dir, i+1, len(tracks), track)
		result.add(outcome)

		if e.opts.Recorder != nil {
			if err := e.opts.Recorder.RecordOutcome(ctx, jobID, outcome); err != nil {
				e.opts.Logger.Warn("failed to record outcome", "job", jobID, "position", outcome.Position, "error", err)
			}
		}
	}

	return result, nil
}

// preflight creates dir and proves it is writable by creating and removing a test file.
func preflight(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp := filepath.Join(dir, writeTestFile)
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(tmp)
}

// trackFields extracts artist, title and album, substituting fixed fallbacks for missing values.
func trackFields(track models.TrackDescriptor) (artist, title, album string) {
	artist, title, album = track.PrimaryArtist(), track.Title, track.AlbumTitle
	if strings.TrimSpace(artist) == "" {
		artist = UnknownArtist
	}
	if strings.TrimSpace(title) == "" {
		title = UnknownTitle
	}
	if strings.TrimSpace(album) == "" {
		album = UnknownAlbum
	}
	return artist, title, album
}

// FileName is the on-disk name of a track: "<artist> - <title>.mp3", both parts normalized.
func FileName(track models.TrackDescriptor) string {
	artist, title, _ := trackFields(track)
	return naming.OrDefault(artist, UnknownArtist) + " - " + naming.OrDefault(title, UnknownTitle) + audioExtension
}

func (e *Engine) query(title, artist string) string {
	return strings.TrimSpace(strings.Join([]string{title, artist, e.opts.Qualifier}, " "))
}

func (e *Engine) acquire(ctx context.Context, jobID, dir string, step, total int, track models.TrackDescriptor) TrackOutcome {
	rawArtist, rawTitle, rawAlbum := trackFields(track)
	artist := naming.OrDefault(rawArtist, UnknownArtist)
	title := naming.OrDefault(rawTitle, UnknownTitle)
	album := naming.OrDefault(rawAlbum, UnknownAlbum)

	file := FileName(track)
	outcome := TrackOutcome{
		Position: step,
		Track:    track,
		Artist:   artist,
		Title:    title,
		Path:     filepath.Join(dir, file),
	}

	e.emit(jobID, trackUpdate(step, total, rawTitle, rawArtist))

	if _, err := os.Stat(outcome.Path); err == nil {
		e.emit(jobID, alreadyDownloadedUpdate(file))
		outcome.Disposition = DispositionPresent
		return outcome
	}

	res, err := e.opts.Retriever.Retrieve(ctx, retrieval.Request{
		Query: e.query(title, artist),
		Dest:  outcome.Path,
		Diagnostic: func(line string) {
			e.emit(jobID, diagnosticUpdate(line))
		},
	})
	if err != nil {
		e.emit(jobID, retrievalFailedUpdate(step, err))
		outcome.Disposition = DispositionFailed
		outcome.Err = err
		return outcome
	}

	if _, err := os.Stat(outcome.Path); err != nil {
		e.emit(jobID, missingFileUpdate(file))
		outcome.Disposition = DispositionFailed
		outcome.Err = fmt.Errorf("%w: %s not found after retrieval", shared.ErrRetrieval, file)
		return outcome
	}

	e.emit(jobID, downloadedUpdate(file))
	if res != nil && res.SourceTitle != "" && !fuzzy.MatchNormalizedFold(title, res.SourceTitle) {
		e.emit(jobID, mismatchUpdate(res.SourceTitle))
	}

	outcome.Disposition = DispositionDownloaded
	if e.opts.Tagger == nil {
		return outcome
	}

	err = e.opts.Tagger.Tag(ctx, outcome.Path, tagging.Tags{
		Artist:      artist,
		Title:       title,
		Album:       album,
		AlbumArtist: naming.Normalize(track.PrimaryAlbumArtist()),
		TrackNumber: track.TrackNumber,
		DiscNumber:  track.DiscNumber,
		CoverURL:    track.AlbumArtURL,
	})

	var coverErr *tagging.CoverError
	switch {
	case err == nil:
	case errors.As(err, &coverErr):
		e.emit(jobID, coverFailedUpdate())
		e.opts.Logger.Debug("cover art failed", "job", jobID, "error", err)
	default:
		e.emit(jobID, metadataFailedUpdate(err))
		outcome.Disposition = DispositionTagFailed
		outcome.Err = err
	}
	return outcome
}
