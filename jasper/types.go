package jasper

import "fmt"

// ResourceTypeReportUnit is the repository type of executable reports.
const ResourceTypeReportUnit = "reportUnit"

// ErrorDescriptor is the error payload returned by JasperReports Server.
// It is kept untouched and attached to StatusError so the error mapping
// layer can classify it; nothing in this package interprets the code.
type ErrorDescriptor struct {
	ErrorCode  string         `json:"errorCode"`
	Message    string         `json:"message"`
	Parameters []string       `json:"parameters,omitempty"`
	ErrorUID   string         `json:"errorUid,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// StatusError is returned for any non-2xx response from the server.
// Descriptor is nil when the body did not carry a parseable errorDescriptor.
type StatusError struct {
	StatusCode int
	Descriptor *ErrorDescriptor
	Body       string
}

func (e *StatusError) Error() string {
	if e.Descriptor != nil && e.Descriptor.ErrorCode != "" {
		return fmt.Sprintf("jasperserver returned %d (%s): %s", e.StatusCode, e.Descriptor.ErrorCode, e.Descriptor.Message)
	}
	return fmt.Sprintf("jasperserver returned %d", e.StatusCode)
}

// ResourceDescriptor describes a repository resource (report, folder,
// datasource, ...). ResourceType is derived from the response content type
// when the body omits it.
type ResourceDescriptor struct {
	URI          string `json:"uri"`
	Label        string `json:"label"`
	Description  string `json:"description,omitempty"`
	ResourceType string `json:"resourceType,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	UpdateDate   string `json:"updateDate,omitempty"`
	Version      int    `json:"version,omitempty"`
}

// InputControl describes one report input control.
type InputControl struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Type      string `json:"type"`
	URI       string `json:"uri,omitempty"`
	Mandatory bool   `json:"mandatory,omitempty"`
	ReadOnly  bool   `json:"readOnly,omitempty"`
	Visible   bool   `json:"visible,omitempty"`
}

// inputControlsResponse is the wire shape of GET reports{uri}/inputControls.
type inputControlsResponse struct {
	InputControl []InputControl `json:"inputControl"`
}

// ReportOutput is the rendered content of a synchronous report run.
type ReportOutput struct {
	Content     []byte
	ContentType string
}

// ReportParameter is one named parameter of a report execution request.
// JasperReports accepts only string values, multi-select as string arrays.
type ReportParameter struct {
	Name  string   `json:"name"`
	Value []string `json:"value"`
}

// ExecutionRequest is the wire shape of POST reportExecutions.
type ExecutionRequest struct {
	ReportUnitURI string `json:"reportUnitUri"`
	OutputFormat  string `json:"outputFormat"`
	Async         bool   `json:"async"`
	Parameters    *struct {
		ReportParameter []ReportParameter `json:"reportParameter"`
	} `json:"parameters,omitempty"`
}

// NewExecutionRequest builds an ExecutionRequest from a flat parameter map
// whose values are already coerced to string or []string.
func NewExecutionRequest(reportURI, outputFormat string, async bool, params map[string]any) ExecutionRequest {
	req := ExecutionRequest{
		ReportUnitURI: reportURI,
		OutputFormat:  outputFormat,
		Async:         async,
	}
	if len(params) == 0 {
		return req
	}
	wrapped := &struct {
		ReportParameter []ReportParameter `json:"reportParameter"`
	}{}
	for name, value := range params {
		p := ReportParameter{Name: name}
		switch v := value.(type) {
		case []string:
			p.Value = v
		case string:
			p.Value = []string{v}
		default:
			p.Value = []string{fmt.Sprintf("%v", v)}
		}
		wrapped.ReportParameter = append(wrapped.ReportParameter, p)
	}
	req.Parameters = wrapped
	return req
}

// Export is one export artifact of a report execution.
type Export struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ExecutionDetails is the server's view of a report execution job.
type ExecutionDetails struct {
	RequestID    string   `json:"requestId"`
	ReportURI    string   `json:"reportURI,omitempty"`
	Status       string   `json:"status"`
	TotalPages   int      `json:"totalPages,omitempty"`
	CurrentPage  int      `json:"currentPage,omitempty"`
	Exports      []Export `json:"exports,omitempty"`
}

// ExecutionStatusValue is the wire shape of GET reportExecutions/{id}/status.
type ExecutionStatusValue struct {
	Value           string           `json:"value"`
	ErrorDescriptor *ErrorDescriptor `json:"errorDescriptor,omitempty"`
}

// Remote execution status values, as returned by the status endpoint.
const (
	RemoteStatusQueued    = "queued"
	RemoteStatusExecution = "execution"
	RemoteStatusReady     = "ready"
	RemoteStatusFailed    = "failed"
	RemoteStatusCancelled = "cancelled"
)

// IsTerminalRemoteStatus reports whether the remote job will not change state again.
func IsTerminalRemoteStatus(s string) bool {
	switch s {
	case RemoteStatusReady, RemoteStatusFailed, RemoteStatusCancelled:
		return true
	default:
		return false
	}
}
