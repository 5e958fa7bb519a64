// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/tunex/internal/models"
)

// Script describes how a [ScriptedSource] answers for one source ID.
type Script struct {
	Results      []models.RawResult            // returned for any variant not in ByVariant
	ByVariant    map[string][]models.RawResult // per-variant answers
	Delay        time.Duration                 // time before answering
	Err          error                         // returned after Delay instead of results
	Hang         bool                          // block until the context is done
	IgnoreCancel bool                          // sleep the full Delay even after cancellation
}

// Call records one Query invocation.
type Call struct {
	SourceID string
	Query    string
	Timeout  time.Duration
}

// ScriptedSource is a test double for services.SourceClient driven by per-source scripts.
// Unknown source IDs answer with no results.
type ScriptedSource struct {
	mu          sync.Mutex
	scripts     map[string]Script
	calls       []Call
	inFlight    int
	maxInFlight int
}

// NewScriptedSource creates a ScriptedSource from scripts keyed by source ID.
func NewScriptedSource(scripts map[string]Script) *ScriptedSource {
	return &ScriptedSource{scripts: scripts}
}

func (s *ScriptedSource) Query(ctx context.Context, sourceID, query string, timeout time.Duration) ([]models.RawResult, error) {
	s.mu.Lock()
	script := s.scripts[sourceID]
	s.calls = append(s.calls, Call{SourceID: sourceID, Query: query, Timeout: timeout})
	s.inFlight++
	s.maxInFlight = max(s.maxInFlight, s.inFlight)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	switch {
	case script.Hang:
		<-ctx.Done()
		return nil, ctx.Err()
	case script.IgnoreCancel:
		time.Sleep(script.Delay)
	case script.Delay > 0:
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(script.Delay):
		}
	}

	if script.Err != nil {
		return nil, script.Err
	}
	if rs, ok := script.ByVariant[query]; ok {
		return rs, nil
	}
	return script.Results, nil
}

// Calls returns a copy of the recorded calls.
func (s *ScriptedSource) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount reports how many queries were made.
func (s *ScriptedSource) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// MaxInFlight reports the highest number of concurrent queries observed.
func (s *ScriptedSource) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// ManualClock is a settable clock for TTL tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock starts a clock at a fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
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

// JSONResponse builds an *http.Response with the given status and body.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
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

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
