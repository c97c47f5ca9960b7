package model

import "time"

// Phase is the current state-machine state of a job.
type Phase string

const (
	PhaseNavigating Phase = "navigating"
	PhaseSearching  Phase = "searching"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether the phase ends the job.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Job is the user-submitted input for one scrape.
type Job struct {
	CompanyName string `json:"company_name"`
	SeedURL     string `json:"seed_url,omitempty"`
}

// ErrorKind classifies a recorded failure.
type ErrorKind string

const (
	ErrorKindFetch     ErrorKind = "fetch"
	ErrorKindExtract   ErrorKind = "extract"
	ErrorKindSearch    ErrorKind = "search"
	ErrorKindFatal     ErrorKind = "fatal"
	ErrorKindCancelled ErrorKind = "cancelled"
)

// RecordedError is one failure kept for diagnostics. Recording an error
// never aborts the job unless its kind is fatal.
type RecordedError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Target  string    `json:"target"` // URL or query the failure relates to
}

// State is the mutable record of one job's progress. It is owned exclusively
// by the engine goroutine running the job and needs no synchronization.
type State struct {
	Job             Job
	Info            CompanyInfo
	Phase           Phase
	Visited         map[string]bool
	VisitedOrder    []string
	Frontier        []string
	WebsiteAttempts int
	SearchAttempts  int
	Errors          []RecordedError
	LastAction      string
	StartedAt       time.Time
}

// NewState creates the initial state for a job. Jobs without a seed URL skip
// navigation and start directly in the searching phase.
func NewState(job Job) *State {
	s := &State{
		Job:       job,
		Phase:     PhaseNavigating,
		Visited:   make(map[string]bool),
		StartedAt: time.Now().UTC(),
	}
	if job.SeedURL == "" {
		s.Phase = PhaseSearching
		return s
	}
	s.Frontier = []string{job.SeedURL}
	return s
}

// MarkVisited records a URL as visited. Returns false if it was already
// visited (set semantics; a URL is never fetched twice per job).
func (s *State) MarkVisited(url string) bool {
	if s.Visited[url] {
		return false
	}
	s.Visited[url] = true
	s.VisitedOrder = append(s.VisitedOrder, url)
	return true
}

// PopFrontier removes and returns the next unvisited URL from the frontier.
func (s *State) PopFrontier() (string, bool) {
	for len(s.Frontier) > 0 {
		url := s.Frontier[0]
		s.Frontier = s.Frontier[1:]
		if !s.Visited[url] {
			return url, true
		}
	}
	return "", false
}

// PushFrontier appends URLs to the navigation frontier, skipping any already
// visited or already queued.
func (s *State) PushFrontier(urls ...string) {
	queued := make(map[string]bool, len(s.Frontier))
	for _, u := range s.Frontier {
		queued[u] = true
	}
	for _, u := range urls {
		if u == "" || s.Visited[u] || queued[u] {
			continue
		}
		queued[u] = true
		s.Frontier = append(s.Frontier, u)
	}
}

// RecordError appends a failure to the diagnostic log.
func (s *State) RecordError(kind ErrorKind, target string, err error) {
	s.Errors = append(s.Errors, RecordedError{
		Kind:    kind,
		Message: err.Error(),
		Target:  target,
	})
}

// Snapshot is the progress view emitted to the presentation layer after each
// engine step.
type Snapshot struct {
	Phase           Phase   `json:"phase"`
	WebsiteAttempts int     `json:"website_attempts"`
	SearchAttempts  int     `json:"search_attempts"`
	FieldsFound     []Field `json:"fields_found"`
	LastAction      string  `json:"last_action"`
}

// Snapshot captures the current progress.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Phase:           s.Phase,
		WebsiteAttempts: s.WebsiteAttempts,
		SearchAttempts:  s.SearchAttempts,
		FieldsFound:     s.Info.Found(),
		LastAction:      s.LastAction,
	}
}

// Result is the final output of a job: best-effort CompanyInfo plus every
// source visited and every error recorded along the way.
type Result struct {
	Job               Job             `json:"job"`
	Phase             Phase           `json:"phase"`
	Info              CompanyInfo     `json:"info"`
	Sources           []string        `json:"sources"`
	Errors            []RecordedError `json:"errors,omitempty"`
	MissingFields     []Field         `json:"missing_fields,omitempty"`
	AverageConfidence float64         `json:"average_confidence"`
	WebsiteAttempts   int             `json:"website_attempts"`
	SearchAttempts    int             `json:"search_attempts"`
}

// Result assembles the final output from the state.
func (s *State) Result(threshold float64) *Result {
	return &Result{
		Job:               s.Job,
		Phase:             s.Phase,
		Info:              s.Info,
		Sources:           append([]string(nil), s.VisitedOrder...),
		Errors:            append([]RecordedError(nil), s.Errors...),
		MissingFields:     s.Info.Missing(threshold),
		AverageConfidence: s.Info.AverageConfidence(),
		WebsiteAttempts:   s.WebsiteAttempts,
		SearchAttempts:    s.SearchAttempts,
	}
}
