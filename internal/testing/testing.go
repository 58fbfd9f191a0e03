// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/reference"
	"github.com/desertthunder/tunedl/internal/retrieval"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/desertthunder/tunedl/internal/tagging"
)

// MockCatalog is an in-memory test double for services.Catalog
type MockCatalog struct {
	mu      sync.Mutex
	items   map[string]*models.ItemInfo
	tracks  map[string][]models.TrackDescriptor
	Results []models.SearchResult
	Err     error // returned by every call when set
	PanicOn string
	calls   int
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		items:  make(map[string]*models.ItemInfo),
		tracks: make(map[string][]models.TrackDescriptor),
	}
}

func key(kind reference.Kind, id string) string { return string(kind) + ":" + id }

// AddItem registers info and its tracks under (info.Kind, info.ID).
func (m *MockCatalog) AddItem(info models.ItemInfo, tracks []models.TrackDescriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key(info.Kind, info.ID)] = &info
	m.tracks[key(info.Kind, info.ID)] = tracks
}

// Calls returns the number of catalog calls made so far.
func (m *MockCatalog) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockCatalog) lookup(kind reference.Kind, id string) (*models.ItemInfo, []models.TrackDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.PanicOn != "" && m.PanicOn == id {
		panic("mock catalog panic for " + id)
	}
	if m.Err != nil {
		return nil, nil, m.Err
	}
	info, ok := m.items[key(kind, id)]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %w: %s %s", shared.ErrCatalog, shared.ErrItemNotFound, kind, id)
	}
	return info, m.tracks[key(kind, id)], nil
}

func (m *MockCatalog) ItemInfo(ctx context.Context, kind reference.Kind, id string) (*models.ItemInfo, error) {
	info, _, err := m.lookup(kind, id)
	return info, err
}

func (m *MockCatalog) Tracks(ctx context.Context, kind reference.Kind, id string) ([]models.TrackDescriptor, error) {
	_, tracks, err := m.lookup(kind, id)
	return tracks, err
}

func (m *MockCatalog) Track(ctx context.Context, id string) (*models.TrackDescriptor, error) {
	info, tracks, err := m.lookup(reference.KindTrack, id)
	if err != nil {
		return nil, err
	}
	if len(tracks) > 0 {
		return &tracks[0], nil
	}
	return &models.TrackDescriptor{ID: info.ID, Title: info.Name, Artists: info.Artists}, nil
}

func (m *MockCatalog) Search(ctx context.Context, query string, kind reference.Kind, limit int) ([]models.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results, nil
}

func (m *MockCatalog) Name() string { return "mock" }

// MockRetriever writes a stub file at the destination of every request unless told to fail.
type MockRetriever struct {
	mu          sync.Mutex
	requests    []retrieval.Request
	FailQueries map[string]error // query -> error
	SkipWrite   bool             // succeed without creating the file
	SourceTitle string
	Diagnostics []string // sent to every request's Diagnostic callback
}

func (m *MockRetriever) Retrieve(ctx context.Context, req retrieval.Request) (*retrieval.Result, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	err := m.FailQueries[req.Query]
	m.mu.Unlock()

	if req.Diagnostic != nil {
		for _, line := range m.Diagnostics {
			req.Diagnostic(line)
		}
	}
	if err != nil {
		return nil, &retrieval.Error{Query: req.Query, Err: err}
	}
	if !m.SkipWrite {
		if err := os.WriteFile(req.Dest, []byte("ID3 stub audio"), 0644); err != nil {
			return nil, &retrieval.Error{Query: req.Query, Err: err}
		}
	}
	return &retrieval.Result{SourceTitle: m.SourceTitle}, nil
}

// Requests returns a copy of the requests received so far.
func (m *MockRetriever) Requests() []retrieval.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]retrieval.Request(nil), m.requests...)
}

// MockTagger records tagged paths and returns Err for every call.
type MockTagger struct {
	mu     sync.Mutex
	tagged map[string]tagging.Tags
	Err    error
}

func (m *MockTagger) Tag(ctx context.Context, path string, tags tagging.Tags) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tagged == nil {
		m.tagged = make(map[string]tagging.Tags)
	}
	m.tagged[path] = tags
	return m.Err
}

// Tagged returns the tags written for path.
func (m *MockTagger) Tagged(path string) (tagging.Tags, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tags, ok := m.tagged[path]
	return tags, ok
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
