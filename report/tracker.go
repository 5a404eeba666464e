package report

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/jasper-mcp/errors"
	"github.com/teranos/jasper-mcp/mcperr"
)

// Execution status values. Terminal states are ready, failed, cancelled.
const (
	StatusPending   = "pending"
	StatusPolling   = "polling"
	StatusRunning   = "running"
	StatusReady     = "ready"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Request is one report execution request. Immutable once submitted.
type Request struct {
	ReportURI    string         `json:"reportUri"`
	OutputFormat string         `json:"outputFormat"`
	Parameters   map[string]any `json:"parameters,omitempty"`
}

// Record is the tracker's view of one execution. Created open on Begin,
// finalized exactly once, immutable afterwards. Snapshots returned by the
// tracker are copies; callers never see live records.
type Record struct {
	ExecutionID  string         `json:"executionId"`
	ReportURI    string         `json:"reportUri"`
	OutputFormat string         `json:"outputFormat"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Status       string         `json:"status"`
	StartedAt    time.Time      `json:"startedAt"`
	FinishedAt   *time.Time     `json:"finishedAt,omitempty"`
	Success      bool           `json:"success"`
	FileName     string         `json:"fileName,omitempty"`
	ContentType  string         `json:"contentType,omitempty"`
	ErrorCode    string         `json:"errorCode,omitempty"`
}

// FormatStats aggregates outcomes per output format.
type FormatStats struct {
	Executions int `json:"executions"`
	Successes  int `json:"successes"`
	Failures   int `json:"failures"`
}

// Statistics aggregates outcomes across all terminal executions.
// Counters are monotonic until Clear; total == successful + failed always.
type Statistics struct {
	TotalExecutions      int                    `json:"totalExecutions"`
	SuccessfulExecutions int                    `json:"successfulExecutions"`
	FailedExecutions     int                    `json:"failedExecutions"`
	FormatStats          map[string]FormatStats `json:"formatStats"`
}

// Tracker is the in-memory registry of in-flight and historical executions.
// All state is guarded by one mutex so the statistics invariant can never
// be observed half-updated.
type Tracker struct {
	mu      sync.Mutex
	active  map[string]*Record
	history []*Record
	stats   Statistics
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		active: make(map[string]*Record),
		stats:  Statistics{FormatStats: make(map[string]FormatStats)},
	}
}

// Begin registers an open execution record and returns its ID.
// Statistics stay untouched until the record reaches a terminal state.
func (t *Tracker) Begin(req Request, status string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := &Record{
		ExecutionID:  uuid.NewString(),
		ReportURI:    req.ReportURI,
		OutputFormat: req.OutputFormat,
		Parameters:   req.Parameters,
		Status:       status,
		StartedAt:    time.Now().UTC(),
	}
	t.active[rec.ExecutionID] = rec
	return rec.ExecutionID
}

// SetStatus updates the status of an open record (pending -> polling).
// Terminal transitions go through Complete/Fail/Cancel instead.
func (t *Tracker) SetStatus(executionID, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.active[executionID]; ok {
		rec.Status = status
	}
}

// Complete finalizes an execution as successful and updates statistics.
func (t *Tracker) Complete(executionID, fileName, contentType string) error {
	return t.finalize(executionID, func(rec *Record) {
		rec.Status = StatusReady
		rec.Success = true
		rec.FileName = fileName
		rec.ContentType = contentType
	})
}

// Fail finalizes an execution as failed with its normalized error code.
func (t *Tracker) Fail(executionID string, normErr *mcperr.Error) error {
	code := mcperr.CodeInternalError
	if normErr != nil {
		code = normErr.Code
	}
	return t.finalize(executionID, func(rec *Record) {
		rec.Status = StatusFailed
		rec.Success = false
		rec.ErrorCode = code
	})
}

// Cancel finalizes an execution as cancelled. Cancelled executions count
// in the failure bucket so total == successful + failed stays intact.
func (t *Tracker) Cancel(executionID string) error {
	return t.finalize(executionID, func(rec *Record) {
		rec.Status = StatusCancelled
		rec.Success = false
		rec.ErrorCode = "Cancelled"
	})
}

// finalize moves a record from active to history and bumps the counters,
// all inside one critical section.
func (t *Tracker) finalize(executionID string, apply func(*Record)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.active[executionID]
	if !ok {
		return errors.Wrapf(errors.ErrExecutionNotFound, "execution %s is not active", executionID)
	}
	delete(t.active, executionID)

	now := time.Now().UTC()
	rec.FinishedAt = &now
	apply(rec)
	t.history = append(t.history, rec)

	fs := t.stats.FormatStats[rec.OutputFormat]
	fs.Executions++
	t.stats.TotalExecutions++
	if rec.Success {
		t.stats.SuccessfulExecutions++
		fs.Successes++
	} else {
		t.stats.FailedExecutions++
		fs.Failures++
	}
	t.stats.FormatStats[rec.OutputFormat] = fs
	return nil
}

// Snapshot returns a copy of one record, active or historical.
func (t *Tracker) Snapshot(executionID string) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.active[executionID]; ok {
		cp := *rec
		return &cp, true
	}
	for _, rec := range t.history {
		if rec.ExecutionID == executionID {
			cp := *rec
			return &cp, true
		}
	}
	return nil, false
}

// Active returns copies of all open records.
func (t *Tracker) Active() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, 0, len(t.active))
	for _, rec := range t.active {
		out = append(out, *rec)
	}
	return out
}

// History returns copies of all terminal records in insertion order.
func (t *Tracker) History() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, 0, len(t.history))
	for _, rec := range t.history {
		out = append(out, *rec)
	}
	return out
}

// Statistics returns a snapshot of the aggregated counters.
func (t *Tracker) Statistics() Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.stats
	snap.FormatStats = make(map[string]FormatStats, len(t.stats.FormatStats))
	for k, v := range t.stats.FormatStats {
		snap.FormatStats[k] = v
	}
	return snap
}

// Clear atomically drops all active records, history, and counters.
// Idempotent: clearing an empty tracker is a no-op.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = make(map[string]*Record)
	t.history = nil
	t.stats = Statistics{FormatStats: make(map[string]FormatStats)}
}
