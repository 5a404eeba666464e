package report

import (
	"context"
	"path"
	"sync"

	"github.com/teranos/jasper-mcp/jasper"
	"github.com/teranos/jasper-mcp/mcperr"
)

// asyncJob links a tracker record to its remote execution job.
type asyncJob struct {
	executionID string
	requestID   string
	fileName    string
	contentType string
}

// asyncJobs holds the open async executions. Terminal jobs are removed;
// their records live on in the tracker history.
type asyncJobs struct {
	mu   sync.Mutex
	jobs map[string]*asyncJob
}

func newAsyncJobs() *asyncJobs {
	return &asyncJobs{jobs: make(map[string]*asyncJob)}
}

func (a *asyncJobs) put(job *asyncJob) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.jobs[job.executionID] = job
}

func (a *asyncJobs) get(executionID string) (*asyncJob, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	job, ok := a.jobs[executionID]
	return job, ok
}

func (a *asyncJobs) remove(executionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.jobs, executionID)
}

func (a *asyncJobs) clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.jobs = make(map[string]*asyncJob)
}

// AsyncHandle is returned by RunAsync; the caller polls ExecutionStatus
// with the execution ID until the record reaches a terminal state.
type AsyncHandle struct {
	ExecutionID string `json:"executionId"`
	Status      string `json:"status"`
}

// RunAsync submits a report for non-blocking execution. The validation,
// resolution, and transform path is identical to RunSync; only the remote
// invocation differs: the server answers immediately with a job to poll.
func (e *Engine) RunAsync(ctx context.Context, req Request) (*AsyncHandle, error) {
	fd, verr := validateRequest(req)
	if verr != nil {
		return nil, verr
	}

	executionID := e.tracker.Begin(req, StatusPending)
	e.log.Infow("async report execution submitted",
		"execution_id", executionID,
		"report_uri", req.ReportURI,
		"format", fd.Format)

	if _, nerr := e.resolveReportUnit(ctx, req.ReportURI); nerr != nil {
		return nil, e.failExecution(executionID, nerr)
	}

	params, err := TransformParameters(req.Parameters)
	if err != nil {
		return nil, e.failExecution(executionID, mcperr.FromError(err))
	}

	details, err := e.svc.StartExecution(ctx, jasper.NewExecutionRequest(req.ReportURI, fd.Format, true, params))
	if err != nil {
		return nil, e.failExecution(executionID, mcperr.FromError(err))
	}

	e.jobs.put(&asyncJob{
		executionID: executionID,
		requestID:   details.RequestID,
		fileName:    path.Base(req.ReportURI) + "." + fd.Extension,
		contentType: fd.MimeType,
	})

	return &AsyncHandle{ExecutionID: executionID, Status: StatusPending}, nil
}

// ExecutionStatus returns a snapshot of one execution. For open async jobs
// it polls the remote status first and finalizes the record when the
// remote job reached a terminal state.
func (e *Engine) ExecutionStatus(ctx context.Context, executionID string) (*Record, error) {
	job, ok := e.jobs.get(executionID)
	if !ok {
		// Sync executions and finalized async jobs answer from the tracker.
		if rec, found := e.tracker.Snapshot(executionID); found {
			return rec, nil
		}
		return nil, mcperr.NewExecutionNotFoundError(executionID)
	}

	status, err := e.svc.ExecutionStatus(ctx, job.requestID)
	if err != nil {
		e.jobs.remove(executionID)
		return nil, e.failExecution(executionID, mcperr.FromError(err))
	}

	switch status.Value {
	case jasper.RemoteStatusQueued, jasper.RemoteStatusExecution:
		e.tracker.SetStatus(executionID, StatusPolling)

	case jasper.RemoteStatusReady:
		e.jobs.remove(executionID)
		if err := e.tracker.Complete(executionID, job.fileName, job.contentType); err != nil {
			e.log.Warnw("failed to finalize execution record", "execution_id", executionID, "error", err)
		}
		e.log.Infow("async report execution ready", "execution_id", executionID, "file_name", job.fileName)

	case jasper.RemoteStatusCancelled:
		e.jobs.remove(executionID)
		if err := e.tracker.Cancel(executionID); err != nil {
			e.log.Warnw("failed to finalize execution record", "execution_id", executionID, "error", err)
		}

	case jasper.RemoteStatusFailed:
		e.jobs.remove(executionID)
		nerr := mcperr.MapJasperError(status.ErrorDescriptor)
		if err := e.tracker.Fail(executionID, nerr); err != nil {
			e.log.Warnw("failed to finalize execution record", "execution_id", executionID, "error", err)
		}
		e.log.Warnw("async report execution failed",
			"execution_id", executionID,
			"code", nerr.Code)

	default:
		e.log.Warnw("unrecognized remote execution status",
			"execution_id", executionID,
			"remote_status", status.Value)
	}

	rec, found := e.tracker.Snapshot(executionID)
	if !found {
		return nil, mcperr.NewExecutionNotFoundError(executionID)
	}
	return rec, nil
}

// Cancel asks the server to cancel an open async job. Returns true when
// the remote job was cancelled. Cancelling an execution that is already
// terminal (or a sync execution) is a no-op returning false.
func (e *Engine) Cancel(ctx context.Context, executionID string) (bool, error) {
	job, ok := e.jobs.get(executionID)
	if !ok {
		if _, found := e.tracker.Snapshot(executionID); found {
			return false, nil
		}
		return false, mcperr.NewExecutionNotFoundError(executionID)
	}

	cancelled, err := e.svc.CancelExecution(ctx, job.requestID)
	if err != nil {
		// The cancel attempt failed but the job may still be running;
		// the record stays open for the next status poll.
		return false, mcperr.FromError(err)
	}
	if !cancelled {
		// Remote job already terminal; the next status poll finalizes.
		return false, nil
	}

	e.jobs.remove(executionID)
	if err := e.tracker.Cancel(executionID); err != nil {
		e.log.Warnw("failed to finalize execution record", "execution_id", executionID, "error", err)
	}
	e.log.Infow("async report execution cancelled", "execution_id", executionID)
	return true, nil
}
