package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunedl/internal/ledger"
	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/naming"
	"github.com/desertthunder/tunedl/internal/reference"
	"github.com/desertthunder/tunedl/internal/services"
	"github.com/desertthunder/tunedl/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Status is the lifecycle state of a job. Only the job's own goroutine changes it.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"

	// StatusUnknown is reported for ids this process never issued.
	StatusUnknown Status = "unknown"
)

// Done reports whether the job has finished.
func (s Status) Done() bool { return s == StatusCompleted || s == StatusFailed }

// Job is a point in time snapshot of a submitted job.
type Job struct {
	ID          string         `json:"id"`
	Reference   string         `json:"reference"`
	Kind        reference.Kind `json:"kind,omitempty"`
	Name        string         `json:"name,omitempty"`
	Folder      string         `json:"folder,omitempty"`
	Status      Status         `json:"status"`
	TracksTotal int            `json:"tracks_total"`
	Present     int            `json:"already_present"`
	Downloaded  int            `json:"downloaded"`
	TagFailed   int            `json:"tag_failed"`
	Failed      int            `json:"failed"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// JobHistory persists job snapshots. SaveJob is called on submission, once the item is resolved,
// and when the job finishes; implementations upsert by [Job.ID].
type JobHistory interface {
	SaveJob(ctx context.Context, job Job) error
}

type job struct {
	mu   sync.Mutex
	snap Job
	done chan struct{}
}

func (j *job) snapshot() Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap
}

func (j *job) update(fn func(*Job)) Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.snap)
	j.snap.UpdatedAt = time.Now()
	return j.snap
}

// OrchestratorOpts contains the collaborators of an [Orchestrator].
type OrchestratorOpts struct {
	Catalog services.Catalog
	Engine  *Engine
	History JobHistory // optional
	Logger  *log.Logger
}

// Orchestrator accepts references and runs each one as an independent background job.
type Orchestrator struct {
	catalog services.Catalog
	engine  *Engine
	history JobHistory
	logger  *log.Logger

	mu   sync.RWMutex
	jobs map[string]*job
}

// NewOrchestrator creates an [Orchestrator].
func NewOrchestrator(opts OrchestratorOpts) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Orchestrator{
		catalog: opts.Catalog,
		engine:  opts.Engine,
		history: opts.History,
		logger:  opts.Logger,
		jobs:    make(map[string]*job),
	}
}

// Ledger returns the ledger jobs report progress to.
func (o *Orchestrator) Ledger() *ledger.Ledger { return o.engine.Ledger() }

// Catalog returns the catalog jobs resolve against.
func (o *Orchestrator) Catalog() services.Catalog { return o.catalog }

// Submit registers a job for input and starts it in its own goroutine. It returns the job id without
// waiting on any network or disk I/O.
//
// The job runs under a context detached from ctx, so it outlives the submitting request.
// Failures are only observable through the ledger and [Orchestrator.Job].
func (o *Orchestrator) Submit(ctx context.Context, input string) string {
	now := time.Now()
	j := &job{
		snap: Job{
			ID:        shared.GenerateID(),
			Reference: input,
			Status:    StatusQueued,
			CreatedAt: now,
			UpdatedAt: now,
		},
		done: make(chan struct{}),
	}

	o.Ledger().Register(j.snap.ID)

	o.mu.Lock()
	o.jobs[j.snap.ID] = j
	o.mu.Unlock()

	jobCtx := context.WithoutCancel(ctx)
	o.save(jobCtx, j.snap)

	go o.run(jobCtx, j)
	return j.snap.ID
}

// Job returns a snapshot of the job with id.
func (o *Orchestrator) Job(id string) (Job, bool) {
	o.mu.RLock()
	j, ok := o.jobs[id]
	o.mu.RUnlock()
	if !ok {
		return Job{}, false
	}
	return j.snapshot(), true
}

// Jobs returns snapshots of every job submitted to this process, oldest first.
func (o *Orchestrator) Jobs() []Job {
	o.mu.RLock()
	jobs := make([]Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		jobs = append(jobs, j.snapshot())
	}
	o.mu.RUnlock()

	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.Before(jobs[b].CreatedAt) })
	return jobs
}

// Wait blocks until the job with id finishes or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context, id string) (Job, error) {
	o.mu.RLock()
	j, ok := o.jobs[id]
	o.mu.RUnlock()
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}

	select {
	case <-j.done:
		return j.snapshot(), nil
	case <-ctx.Done():
		return j.snapshot(), ctx.Err()
	}
}

func (o *Orchestrator) save(ctx context.Context, snap Job) {
	if o.history == nil {
		return
	}
	if err := o.history.SaveJob(ctx, snap); err != nil {
		o.logger.Warn("failed to save job", "job", snap.ID, "error", err)
	}
}

// run is the job goroutine. Every error, including a panic, ends as a failed status.
func (o *Orchestrator) run(ctx context.Context, j *job) {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("job panicked", "job", j.snap.ID, "panic", r)
			o.finish(ctx, j, fmt.Errorf("%v", r), true)
		}
	}()

	j.update(func(s *Job) { s.Status = StatusRunning })

	err := o.execute(ctx, j)
	// A failed pre-flight has already reported its single event.
	o.finish(ctx, j, err, err != nil && !errors.Is(err, shared.ErrPermission))
}

func (o *Orchestrator) finish(ctx context.Context, j *job, err error, fatal bool) {
	id := j.snapshot().ID
	if fatal {
		o.engine.emit(id, fatalUpdate(err))
	}

	snap := j.update(func(s *Job) {
		now := time.Now()
		s.CompletedAt = &now
		s.Status = StatusCompleted
		if err != nil {
			s.Status = StatusFailed
			s.Error = err.Error()
		}
	})
	o.save(ctx, snap)
}

// execute resolves the reference, fetches the item and its tracks, and runs the engine.
func (o *Orchestrator) execute(ctx context.Context, j *job) error {
	snap := j.snapshot()

	ref, err := services.Resolve(ctx, o.catalog, snap.Reference)
	if err != nil {
		return err
	}

	var info *models.ItemInfo
	var tracks []models.TrackDescriptor

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() error {
		var err error
		info, err = o.catalog.ItemInfo(gctx, ref.Kind, ref.ID)
		return err
	}))
	g.Go(guard(func() error {
		var err error
		tracks, err = o.catalog.Tracks(gctx, ref.Kind, ref.ID)
		return err
	}))
	if err := g.Wait(); err != nil {
		return err
	}

	folder := naming.OrDefault(FolderName(info), naming.Unknown)
	snap = j.update(func(s *Job) {
		s.Kind = ref.Kind
		s.Name = info.Name
		s.Folder = folder
		s.TracksTotal = len(tracks)
	})
	o.save(ctx, snap)

	o.engine.emit(snap.ID, startedUpdate(info, len(tracks)))
	if len(tracks) == 0 {
		o.engine.emit(snap.ID, noTracksUpdate())
		return nil
	}

	o.engine.emit(snap.ID, foundTracksUpdate(len(tracks)))
	o.engine.emit(snap.ID, readyUpdate(len(tracks), folder))

	result, err := o.engine.Run(ctx, snap.ID, folder, tracks)
	j.update(func(s *Job) {
		s.Present = result.Present
		s.Downloaded = result.Downloaded
		s.TagFailed = result.TagFailed
		s.Failed = result.Failed
	})
	if err != nil {
		return err
	}

	o.engine.emit(snap.ID, completedUpdate(folder))
	return nil
}

// guard converts a panic in fn into an error so it ends the job instead of the process.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		return fn()
	}
}

// FolderName is the unnormalized folder for an item:
//   - "Playlist - <name>"
//   - "Album - <name> - <artists joined by ', '>"
//   - "Single - <title> - <primary artist>"
func FolderName(info *models.ItemInfo) string {
	switch info.Kind {
	case reference.KindPlaylist:
		return "Playlist - " + info.Name
	case reference.KindAlbum:
		return fmt.Sprintf("Album - %s - %s", info.Name, strings.Join(info.Artists, ", "))
	default:
		artist := ""
		if len(info.Artists) > 0 {
			artist = info.Artists[0]
		}
		return fmt.Sprintf("Single - %s - %s", info.Name, artist)
	}
}
