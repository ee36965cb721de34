package resolver

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogEntry is one line of the run's audit trail. Entries are append-only and
// their insertion order is meaningful.
type LogEntry struct {
	Time    time.Time
	Message string
}

// Outcome is the terminal state of a resolution run.
type Outcome int

const (
	// OutcomeFound means a final link was extracted.
	OutcomeFound Outcome = iota
	// OutcomeExhausted means the heuristics ran out of ideas within the step
	// budget. Not an error.
	OutcomeExhausted
	// OutcomeLoopDetected means a redirect cycle was observed. Not an error.
	OutcomeLoopDetected
	// OutcomeCancelled means the caller's context was cancelled between steps.
	OutcomeCancelled
	// OutcomeFatal means an unexpected failure was caught at the loop
	// boundary.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeLoopDetected:
		return "loop_detected"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is what a resolution run delivers back to the caller. The log is
// produced on every terminal path, success or not.
type Result struct {
	Outcome  Outcome
	FinalURL string
	Steps    int
	Log      []LogEntry
	Err      error
}

// Session is the state of one resolution run. It is owned exclusively by
// that run and accessed strictly sequentially, so no locking is needed.
type Session struct {
	ID         string
	StartURL   string
	CurrentURL string
	Visited    map[string]struct{}
	StepCount  int
	MaxSteps   int
	FinalLink  string

	entries []LogEntry
	sink    func(LogEntry)
	logger  *zap.Logger
}

// NewSession creates the state for a single run. The start URL is recorded
// as visited immediately: every URL the session has observed as current is a
// member of the visited set, which is what makes cycle detection sound.
func NewSession(startURL string, maxSteps int, logger *zap.Logger, sink func(LogEntry)) *Session {
	id := uuid.New().String()
	s := &Session{
		ID:         id,
		StartURL:   startURL,
		CurrentURL: startURL,
		Visited:    map[string]struct{}{startURL: {}},
		MaxSteps:   maxSteps,
		sink:       sink,
		logger:     logger.With(zap.String("run_id", id)),
	}
	return s
}

// Logf appends a line to the audit trail, mirrors it to the structured
// logger, and delivers it to the sink if one is attached.
func (s *Session) Logf(format string, args ...interface{}) {
	entry := LogEntry{Time: time.Now(), Message: fmt.Sprintf(format, args...)}
	s.entries = append(s.entries, entry)
	s.logger.Info(entry.Message)
	if s.sink != nil {
		s.sink(entry)
	}
}

// MarkVisited records the URL in the visited set and reports whether it was
// already present.
func (s *Session) MarkVisited(url string) (seen bool) {
	if _, ok := s.Visited[url]; ok {
		return true
	}
	s.Visited[url] = struct{}{}
	return false
}

// Log returns a copy of the audit trail accumulated so far.
func (s *Session) Log() []LogEntry {
	out := make([]LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
