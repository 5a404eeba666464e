package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/jasper-mcp/jasper"
	"github.com/teranos/jasper-mcp/mcperr"
)

// stubService is a canned-response Service implementation.
type stubService struct {
	resources   map[string]*jasper.ResourceDescriptor
	resourceErr error

	controls    []jasper.InputControl
	controlsErr error

	runOutput  *jasper.ReportOutput
	runErr     error
	lastRunURI string
	lastRunExt string
	lastParams map[string]any

	startDetails *jasper.ExecutionDetails
	startErr     error
	lastStart    jasper.ExecutionRequest

	statuses  []*jasper.ExecutionStatusValue
	statusErr error

	cancelOK    bool
	cancelErr   error
	cancelCalls int
}

func (s *stubService) Resource(_ context.Context, uri string) (*jasper.ResourceDescriptor, error) {
	if s.resourceErr != nil {
		return nil, s.resourceErr
	}
	if res, ok := s.resources[uri]; ok {
		return res, nil
	}
	return nil, &jasper.StatusError{
		StatusCode: 404,
		Descriptor: &jasper.ErrorDescriptor{ErrorCode: "resource.not.found", Message: "Resource " + uri + " not found"},
	}
}

func (s *stubService) InputControls(_ context.Context, _ string) ([]jasper.InputControl, error) {
	return s.controls, s.controlsErr
}

func (s *stubService) RunReport(_ context.Context, reportURI, extension string, params map[string]any) (*jasper.ReportOutput, error) {
	s.lastRunURI = reportURI
	s.lastRunExt = extension
	s.lastParams = params
	return s.runOutput, s.runErr
}

func (s *stubService) StartExecution(_ context.Context, req jasper.ExecutionRequest) (*jasper.ExecutionDetails, error) {
	s.lastStart = req
	return s.startDetails, s.startErr
}

func (s *stubService) ExecutionStatus(_ context.Context, _ string) (*jasper.ExecutionStatusValue, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	if len(s.statuses) == 0 {
		return &jasper.ExecutionStatusValue{Value: jasper.RemoteStatusQueued}, nil
	}
	next := s.statuses[0]
	s.statuses = s.statuses[1:]
	return next, nil
}

func (s *stubService) CancelExecution(_ context.Context, _ string) (bool, error) {
	s.cancelCalls++
	return s.cancelOK, s.cancelErr
}

func reportUnit(uri string) *jasper.ResourceDescriptor {
	return &jasper.ResourceDescriptor{
		URI:          uri,
		Label:        "Test Report",
		ResourceType: jasper.ResourceTypeReportUnit,
	}
}

func newTestEngine(svc Service) *Engine {
	return NewEngine(svc, zap.NewNop().Sugar())
}

func TestRunSync_Success(t *testing.T) {
	svc := &stubService{
		resources: map[string]*jasper.ResourceDescriptor{"/reports/test_report": reportUnit("/reports/test_report")},
		runOutput: &jasper.ReportOutput{Content: []byte("%PDF-1.4"), ContentType: "application/pdf"},
	}
	engine := newTestEngine(svc)

	result, err := engine.RunSync(context.Background(), Request{
		ReportURI:    "/reports/test_report",
		OutputFormat: "pdf",
		Parameters:   map[string]any{"limit": 10},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, StatusReady, result.Status)
	assert.Equal(t, "test_report.pdf", result.FileName)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, []byte("%PDF-1.4"), result.Content)
	assert.NotEmpty(t, result.ExecutionID)

	// Parameters reached the transport coerced to strings
	assert.Equal(t, "/reports/test_report", svc.lastRunURI)
	assert.Equal(t, "pdf", svc.lastRunExt)
	assert.Equal(t, map[string]any{"limit": "10"}, svc.lastParams)

	stats := engine.Statistics()
	assert.Equal(t, 1, stats.TotalExecutions)
	assert.Equal(t, 1, stats.SuccessfulExecutions)
	assert.Zero(t, stats.FailedExecutions)
}

func TestRunSync_ContentTypeFallsBackToFormat(t *testing.T) {
	svc := &stubService{
		resources: map[string]*jasper.ResourceDescriptor{"/reports/r": reportUnit("/reports/r")},
		runOutput: &jasper.ReportOutput{Content: []byte("a,b\n1,2\n")},
	}
	engine := newTestEngine(svc)

	result, err := engine.RunSync(context.Background(), Request{ReportURI: "/reports/r", OutputFormat: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
}

func TestRunSync_LocalValidationLeavesNoRecord(t *testing.T) {
	engine := newTestEngine(&stubService{})

	_, err := engine.RunSync(context.Background(), Request{ReportURI: "", OutputFormat: "mp3"})
	require.Error(t, err)

	var nerr *mcperr.Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, mcperr.CodeInvalidRequest, nerr.Code)
	assert.Equal(t, mcperr.CategoryValidation, nerr.Category)
	assert.Equal(t, "Validation failed for 2 field(s)", nerr.Message)

	// Requests rejected before submission never reach the tracker
	assert.Empty(t, engine.History())
	assert.Empty(t, engine.Active())
	assert.Zero(t, engine.Statistics().TotalExecutions)
}

func TestRunSync_NonReportResource(t *testing.T) {
	svc := &stubService{
		resources: map[string]*jasper.ResourceDescriptor{
			"/datasources/main": {URI: "/datasources/main", ResourceType: "jdbcDataSource"},
		},
	}
	engine := newTestEngine(svc)

	_, err := engine.RunSync(context.Background(), Request{ReportURI: "/datasources/main", OutputFormat: "pdf"})
	require.Error(t, err)

	var nerr *mcperr.Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, mcperr.CodeInvalidRequest, nerr.Code)
	assert.Contains(t, nerr.Message, "is not a report unit")

	// The failure is recorded: the request passed local validation
	history := engine.History()
	require.Len(t, history, 1)
	assert.Equal(t, StatusFailed, history[0].Status)
	assert.Equal(t, mcperr.CodeInvalidRequest, history[0].ErrorCode)
}

func TestRunSync_RemoteErrorIsNormalizedAndRecordedOnce(t *testing.T) {
	svc := &stubService{
		resources: map[string]*jasper.ResourceDescriptor{"/reports/r": reportUnit("/reports/r")},
		runErr: &jasper.StatusError{
			StatusCode: 500,
			Descriptor: &jasper.ErrorDescriptor{ErrorCode: "datasource.error", Message: "connection pool exhausted"},
		},
	}
	engine := newTestEngine(svc)

	_, err := engine.RunSync(context.Background(), Request{ReportURI: "/reports/r", OutputFormat: "pdf"})
	require.Error(t, err)

	var nerr *mcperr.Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, mcperr.CodeInternalError, nerr.Code)
	assert.Equal(t, mcperr.CategoryExecution, nerr.Category)

	stats := engine.Statistics()
	assert.Equal(t, 1, stats.TotalExecutions)
	assert.Equal(t, 1, stats.FailedExecutions)
	assert.Equal(t, stats.TotalExecutions, stats.SuccessfulExecutions+stats.FailedExecutions)
}

func TestRunSync_UnknownReport(t *testing.T) {
	engine := newTestEngine(&stubService{resources: map[string]*jasper.ResourceDescriptor{}})

	_, err := engine.RunSync(context.Background(), Request{ReportURI: "/reports/missing", OutputFormat: "pdf"})
	require.Error(t, err)

	var nerr *mcperr.Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, mcperr.CodeResourceNotFound, nerr.Code)
	assert.Equal(t, mcperr.CategoryResource, nerr.Category)
}

func TestValidate(t *testing.T) {
	svc := &stubService{
		resources: map[string]*jasper.ResourceDescriptor{
			"/reports/good": reportUnit("/reports/good"),
			"/folders/data": {URI: "/folders/data", ResourceType: "folder"},
		},
	}
	engine := newTestEngine(svc)

	v := engine.Validate(context.Background(), "/reports/good")
	assert.True(t, v.Valid)
	require.NotNil(t, v.Resource)
	assert.Equal(t, jasper.ResourceTypeReportUnit, v.Resource.ResourceType)

	v = engine.Validate(context.Background(), "/folders/data")
	assert.False(t, v.Valid)
	assert.Contains(t, v.Error, "is not a report unit")
	assert.NotNil(t, v.Resource)

	v = engine.Validate(context.Background(), "/reports/missing")
	assert.False(t, v.Valid)
	assert.NotEmpty(t, v.Error)

	v = engine.Validate(context.Background(), "")
	assert.False(t, v.Valid)

	// Validation is side-effect free
	assert.Zero(t, engine.Statistics().TotalExecutions)
	assert.Empty(t, engine.Active())
}

func TestMetadata(t *testing.T) {
	svc := &stubService{
		resources: map[string]*jasper.ResourceDescriptor{"/reports/r": reportUnit("/reports/r")},
		controls: []jasper.InputControl{
			{ID: "start_date", Label: "Start Date", Type: "singleValueDate", Mandatory: true},
		},
	}
	engine := newTestEngine(svc)

	meta, err := engine.Metadata(context.Background(), "/reports/r")
	require.NoError(t, err)

	assert.Equal(t, "/reports/r", meta.URI)
	assert.Equal(t, jasper.ResourceTypeReportUnit, meta.ResourceType)
	require.Len(t, meta.InputControls, 1)
	assert.Equal(t, "start_date", meta.InputControls[0].ID)
	assert.Contains(t, meta.SupportedFormats, "pdf")
	assert.Contains(t, meta.SupportedFormats, "csv")
}

func TestMetadata_NonReportSkipsControls(t *testing.T) {
	svc := &stubService{
		resources:   map[string]*jasper.ResourceDescriptor{"/folders/f": {URI: "/folders/f", ResourceType: "folder"}},
		controlsErr: assert.AnError, // would fail if called
	}
	engine := newTestEngine(svc)

	meta, err := engine.Metadata(context.Background(), "/folders/f")
	require.NoError(t, err)
	assert.Empty(t, meta.InputControls)
}

func TestRunAsync_LifecycleToReady(t *testing.T) {
	svc := &stubService{
		resources:    map[string]*jasper.ResourceDescriptor{"/reports/r": reportUnit("/reports/r")},
		startDetails: &jasper.ExecutionDetails{RequestID: "remote-1", Status: "queued"},
		statuses: []*jasper.ExecutionStatusValue{
			{Value: jasper.RemoteStatusExecution},
			{Value: jasper.RemoteStatusReady},
		},
	}
	engine := newTestEngine(svc)

	handle, err := engine.RunAsync(context.Background(), Request{ReportURI: "/reports/r", OutputFormat: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, handle.Status)
	assert.Equal(t, "pdf", svc.lastStart.OutputFormat)
	assert.True(t, svc.lastStart.Async)

	// First poll: still running remotely
	rec, err := engine.ExecutionStatus(context.Background(), handle.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, StatusPolling, rec.Status)

	// Second poll: terminal
	rec, err = engine.ExecutionStatus(context.Background(), handle.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, rec.Status)
	assert.True(t, rec.Success)
	assert.Equal(t, "r.pdf", rec.FileName)

	stats := engine.Statistics()
	assert.Equal(t, 1, stats.SuccessfulExecutions)

	// Further polls answer from history without touching the server
	rec, err = engine.ExecutionStatus(context.Background(), handle.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, rec.Status)
}

func TestRunAsync_RemoteFailure(t *testing.T) {
	svc := &stubService{
		resources:    map[string]*jasper.ResourceDescriptor{"/reports/r": reportUnit("/reports/r")},
		startDetails: &jasper.ExecutionDetails{RequestID: "remote-2", Status: "queued"},
		statuses: []*jasper.ExecutionStatusValue{
			{
				Value:           jasper.RemoteStatusFailed,
				ErrorDescriptor: &jasper.ErrorDescriptor{ErrorCode: "compilation.error", Message: "jrxml broken"},
			},
		},
	}
	engine := newTestEngine(svc)

	handle, err := engine.RunAsync(context.Background(), Request{ReportURI: "/reports/r", OutputFormat: "pdf"})
	require.NoError(t, err)

	rec, err := engine.ExecutionStatus(context.Background(), handle.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, mcperr.CodeInternalError, rec.ErrorCode)

	stats := engine.Statistics()
	assert.Equal(t, 1, stats.FailedExecutions)
}

func TestCancel_OpenJob(t *testing.T) {
	svc := &stubService{
		resources:    map[string]*jasper.ResourceDescriptor{"/reports/r": reportUnit("/reports/r")},
		startDetails: &jasper.ExecutionDetails{RequestID: "remote-3", Status: "queued"},
		cancelOK:     true,
	}
	engine := newTestEngine(svc)

	handle, err := engine.RunAsync(context.Background(), Request{ReportURI: "/reports/r", OutputFormat: "pdf"})
	require.NoError(t, err)

	cancelled, err := engine.Cancel(context.Background(), handle.ExecutionID)
	require.NoError(t, err)
	assert.True(t, cancelled)
	assert.Equal(t, 1, svc.cancelCalls)

	rec, found := engine.Tracker().Snapshot(handle.ExecutionID)
	require.True(t, found)
	assert.Equal(t, StatusCancelled, rec.Status)

	// Cancelling a terminal execution is a no-op, not an error
	cancelled, err = engine.Cancel(context.Background(), handle.ExecutionID)
	require.NoError(t, err)
	assert.False(t, cancelled)
	assert.Equal(t, 1, svc.cancelCalls, "terminal executions must not reach the server")
}

func TestCancel_RemoteAlreadyTerminal(t *testing.T) {
	svc := &stubService{
		resources:    map[string]*jasper.ResourceDescriptor{"/reports/r": reportUnit("/reports/r")},
		startDetails: &jasper.ExecutionDetails{RequestID: "remote-4", Status: "queued"},
		cancelOK:     false, // server answered 204: nothing to cancel
	}
	engine := newTestEngine(svc)

	handle, err := engine.RunAsync(context.Background(), Request{ReportURI: "/reports/r", OutputFormat: "pdf"})
	require.NoError(t, err)

	cancelled, err := engine.Cancel(context.Background(), handle.ExecutionID)
	require.NoError(t, err)
	assert.False(t, cancelled)

	// The record stays open for the next status poll to finalize
	rec, found := engine.Tracker().Snapshot(handle.ExecutionID)
	require.True(t, found)
	assert.Equal(t, StatusPending, rec.Status)
}

func TestCancel_UnknownExecution(t *testing.T) {
	engine := newTestEngine(&stubService{})

	_, err := engine.Cancel(context.Background(), "never-existed")
	require.Error(t, err)

	var nerr *mcperr.Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, mcperr.CodeResourceNotFound, nerr.Code)
}

func TestExecutionStatus_SyncExecution(t *testing.T) {
	svc := &stubService{
		resources: map[string]*jasper.ResourceDescriptor{"/reports/r": reportUnit("/reports/r")},
		runOutput: &jasper.ReportOutput{Content: []byte("x"), ContentType: "application/pdf"},
	}
	engine := newTestEngine(svc)

	result, err := engine.RunSync(context.Background(), Request{ReportURI: "/reports/r", OutputFormat: "pdf"})
	require.NoError(t, err)

	rec, err := engine.ExecutionStatus(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, rec.Status)
}

func TestExecutionStatus_UnknownExecution(t *testing.T) {
	engine := newTestEngine(&stubService{})

	_, err := engine.ExecutionStatus(context.Background(), "never-existed")
	require.Error(t, err)

	var nerr *mcperr.Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, mcperr.CodeResourceNotFound, nerr.Code)
}

func TestClearHistory(t *testing.T) {
	svc := &stubService{
		resources: map[string]*jasper.ResourceDescriptor{"/reports/r": reportUnit("/reports/r")},
		runOutput: &jasper.ReportOutput{Content: []byte("x"), ContentType: "application/pdf"},
	}
	engine := newTestEngine(svc)

	_, err := engine.RunSync(context.Background(), Request{ReportURI: "/reports/r", OutputFormat: "pdf"})
	require.NoError(t, err)
	require.Equal(t, 1, engine.Statistics().TotalExecutions)

	engine.ClearHistory()
	engine.ClearHistory()

	assert.Zero(t, engine.Statistics().TotalExecutions)
	assert.Empty(t, engine.History())
}
