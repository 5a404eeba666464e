package report

import (
	"context"
	"path"

	"go.uber.org/zap"

	"github.com/teranos/jasper-mcp/jasper"
	"github.com/teranos/jasper-mcp/mcperr"
)

// ResourceLookup resolves repository resource descriptors.
type ResourceLookup interface {
	Resource(ctx context.Context, uri string) (*jasper.ResourceDescriptor, error)
}

// ControlLookup resolves the input controls declared on a report.
type ControlLookup interface {
	InputControls(ctx context.Context, reportURI string) ([]jasper.InputControl, error)
}

// ExecutionService drives report rendering on the remote server.
type ExecutionService interface {
	RunReport(ctx context.Context, reportURI, extension string, params map[string]any) (*jasper.ReportOutput, error)
	StartExecution(ctx context.Context, req jasper.ExecutionRequest) (*jasper.ExecutionDetails, error)
	ExecutionStatus(ctx context.Context, requestID string) (*jasper.ExecutionStatusValue, error)
	CancelExecution(ctx context.Context, requestID string) (bool, error)
}

// Service is everything the engine needs from the remote server.
// *jasper.Client satisfies it; tests substitute stubs.
type Service interface {
	ResourceLookup
	ControlLookup
	ExecutionService
}

// Result is the packaged outcome of a successful synchronous run.
// A run either returns a fully populated Result or a normalized error,
// never a partial mix.
type Result struct {
	ExecutionID  string `json:"executionId"`
	Success      bool   `json:"success"`
	Status       string `json:"status"`
	OutputFormat string `json:"outputFormat"`
	ReportURI    string `json:"reportUri"`
	Content      []byte `json:"content"` // base64 in JSON
	ContentType  string `json:"contentType"`
	FileName     string `json:"fileName"`
}

// Engine orchestrates validation, parameter transformation, remote
// invocation, and execution tracking. Failures from any stage leave as
// *mcperr.Error; raw transport errors never cross this boundary.
type Engine struct {
	svc     Service
	tracker *Tracker
	log     *zap.SugaredLogger

	jobs *asyncJobs
}

// NewEngine builds an engine around a remote service and a fresh tracker.
func NewEngine(svc Service, log *zap.SugaredLogger) *Engine {
	return &Engine{
		svc:     svc,
		tracker: NewTracker(),
		log:     log,
		jobs:    newAsyncJobs(),
	}
}

// Tracker exposes the engine's execution tracker.
func (e *Engine) Tracker() *Tracker { return e.tracker }

// validateRequest performs the local shape checks that never reach the
// server. It returns the resolved format descriptor on success.
func validateRequest(req Request) (FormatDescriptor, *mcperr.Error) {
	var fieldErrors []mcperr.FieldError
	if req.ReportURI == "" {
		fieldErrors = append(fieldErrors, mcperr.FieldError{
			Field:   "reportUri",
			Message: "reportUri is required",
		})
	}
	fd, err := ResolveFormat(req.OutputFormat)
	if err != nil {
		fieldErrors = append(fieldErrors, mcperr.FieldError{
			Field:   "outputFormat",
			Message: "unsupported format: " + req.OutputFormat,
		})
	}
	if len(fieldErrors) > 0 {
		return FormatDescriptor{}, mcperr.NewValidationError(fieldErrors)
	}
	return fd, nil
}

// resolveReportUnit fetches the resource and checks it is executable.
func (e *Engine) resolveReportUnit(ctx context.Context, reportURI string) (*jasper.ResourceDescriptor, *mcperr.Error) {
	res, err := e.svc.Resource(ctx, reportURI)
	if err != nil {
		return nil, mcperr.FromError(err)
	}
	if res.ResourceType != jasper.ResourceTypeReportUnit {
		return nil, mcperr.NewNotExecutableError(reportURI, res.ResourceType)
	}
	return res, nil
}

// RunSync executes a report in one blocking round trip.
//
// Local validation happens before any tracker record exists; everything
// after Begin is finalized exactly once, success or failure.
func (e *Engine) RunSync(ctx context.Context, req Request) (*Result, error) {
	fd, verr := validateRequest(req)
	if verr != nil {
		return nil, verr
	}

	executionID := e.tracker.Begin(req, StatusRunning)
	e.log.Infow("report execution started",
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

	out, err := e.svc.RunReport(ctx, req.ReportURI, fd.Extension, params)
	if err != nil {
		return nil, e.failExecution(executionID, mcperr.FromError(err))
	}

	fileName := path.Base(req.ReportURI) + "." + fd.Extension
	contentType := out.ContentType
	if contentType == "" {
		contentType = fd.MimeType
	}

	if err := e.tracker.Complete(executionID, fileName, contentType); err != nil {
		e.log.Warnw("failed to finalize execution record", "execution_id", executionID, "error", err)
	}
	e.log.Infow("report execution ready",
		"execution_id", executionID,
		"file_name", fileName,
		"bytes", len(out.Content))

	return &Result{
		ExecutionID:  executionID,
		Success:      true,
		Status:       StatusReady,
		OutputFormat: fd.Format,
		ReportURI:    req.ReportURI,
		Content:      out.Content,
		ContentType:  contentType,
		FileName:     fileName,
	}, nil
}

// failExecution finalizes the record and hands the normalized error back.
func (e *Engine) failExecution(executionID string, nerr *mcperr.Error) error {
	if err := e.tracker.Fail(executionID, nerr); err != nil {
		e.log.Warnw("failed to finalize execution record", "execution_id", executionID, "error", err)
	}
	e.log.Warnw("report execution failed",
		"execution_id", executionID,
		"code", nerr.Code,
		"category", nerr.Category)
	return nerr
}

// Validation is the outcome of a side-effect-free report probe.
type Validation struct {
	Valid    bool                       `json:"valid"`
	Resource *jasper.ResourceDescriptor `json:"resource,omitempty"`
	Error    string                     `json:"error,omitempty"`
}

// Validate checks that a URI resolves to an executable report without
// touching the tracker or raising; callers use it to pre-flight.
func (e *Engine) Validate(ctx context.Context, reportURI string) *Validation {
	if reportURI == "" {
		return &Validation{Valid: false, Error: "reportUri is required"}
	}
	res, err := e.svc.Resource(ctx, reportURI)
	if err != nil {
		return &Validation{Valid: false, Error: mcperr.FromError(err).Message}
	}
	if res.ResourceType != jasper.ResourceTypeReportUnit {
		return &Validation{
			Valid:    false,
			Resource: res,
			Error:    "resource " + reportURI + " is not a report unit (type: " + res.ResourceType + ")",
		}
	}
	return &Validation{Valid: true, Resource: res}
}

// Metadata aggregates a resource descriptor with its input controls and
// the formats this server can render. Read-only; no tracker interaction.
type Metadata struct {
	URI              string                `json:"uri"`
	Label            string                `json:"label"`
	Description      string                `json:"description,omitempty"`
	ResourceType     string                `json:"resourceType"`
	CreationDate     string                `json:"creationDate,omitempty"`
	UpdateDate       string                `json:"updateDate,omitempty"`
	Version          int                   `json:"version"`
	InputControls    []jasper.InputControl `json:"inputControls"`
	SupportedFormats []string              `json:"supportedFormats"`
}

// Metadata fetches report metadata: one resource lookup plus one
// input-control lookup, composed into a single structure.
func (e *Engine) Metadata(ctx context.Context, reportURI string) (*Metadata, error) {
	res, err := e.svc.Resource(ctx, reportURI)
	if err != nil {
		return nil, mcperr.FromError(err)
	}

	var controls []jasper.InputControl
	if res.ResourceType == jasper.ResourceTypeReportUnit {
		controls, err = e.svc.InputControls(ctx, reportURI)
		if err != nil {
			return nil, mcperr.FromError(err)
		}
	}

	formats := make([]string, 0, len(formatRegistry))
	for _, fd := range formatRegistry {
		formats = append(formats, fd.Format)
	}

	return &Metadata{
		URI:              res.URI,
		Label:            res.Label,
		Description:      res.Description,
		ResourceType:     res.ResourceType,
		CreationDate:     res.CreationDate,
		UpdateDate:       res.UpdateDate,
		Version:          res.Version,
		InputControls:    controls,
		SupportedFormats: formats,
	}, nil
}

// Formats lists the supported output formats.
func (e *Engine) Formats() []FormatDescriptor { return Formats() }

// Statistics returns a snapshot of the aggregated execution counters.
func (e *Engine) Statistics() Statistics { return e.tracker.Statistics() }

// History returns all terminal execution records in insertion order.
func (e *Engine) History() []Record { return e.tracker.History() }

// Active returns all open execution records.
func (e *Engine) Active() []Record { return e.tracker.Active() }

// ClearHistory atomically resets history and statistics.
func (e *Engine) ClearHistory() {
	e.jobs.clear()
	e.tracker.Clear()
}
