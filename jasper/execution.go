package jasper

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/teranos/jasper-mcp/errors"
)

// RunReport renders a report synchronously in one blocking round trip:
// GET rest_v2/reports{uri}.{ext} with parameters in the query string.
// params values must already be coerced to string or []string.
func (c *Client) RunReport(ctx context.Context, reportURI, extension string, params map[string]any) (*ReportOutput, error) {
	if !strings.HasPrefix(reportURI, "/") {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "report URI %q must start with /", reportURI)
	}

	query := url.Values{}
	for name, value := range params {
		switch v := value.(type) {
		case []string:
			for _, item := range v {
				query.Add(name, item)
			}
		case string:
			query.Set(name, v)
		default:
			return nil, errors.Newf("parameter %q has untransformed type %T", name, value)
		}
	}

	return c.getRaw(ctx, "/reports"+reportURI+"."+extension, query, "*/*")
}

// StartExecution submits a report execution job: POST rest_v2/reportExecutions.
// With req.Async true the call returns immediately with a request ID to poll.
func (c *Client) StartExecution(ctx context.Context, req ExecutionRequest) (*ExecutionDetails, error) {
	var details ExecutionDetails
	if err := c.postJSON(ctx, "/reportExecutions", req, &details); err != nil {
		return nil, err
	}
	if details.RequestID == "" {
		return nil, errors.New("jasperserver accepted the execution but returned no request ID")
	}
	return &details, nil
}

// ExecutionStatus polls the state of a report execution job.
func (c *Client) ExecutionStatus(ctx context.Context, requestID string) (*ExecutionStatusValue, error) {
	var status ExecutionStatusValue
	if _, err := c.getJSON(ctx, "/reportExecutions/"+url.PathEscape(requestID)+"/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ExecutionInfo fetches the full job record, including export artifacts.
func (c *Client) ExecutionInfo(ctx context.Context, requestID string) (*ExecutionDetails, error) {
	var details ExecutionDetails
	if _, err := c.getJSON(ctx, "/reportExecutions/"+url.PathEscape(requestID), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// CancelExecution asks the server to cancel a running job:
// PUT rest_v2/reportExecutions/{id}/status with value "cancelled".
// The server answers 200 when it cancelled the job and 204 when there was
// nothing to cancel (job already in a terminal state).
func (c *Client) CancelExecution(ctx context.Context, requestID string) (bool, error) {
	body := ExecutionStatusValue{Value: RemoteStatusCancelled}
	status, err := c.putJSON(ctx, "/reportExecutions/"+url.PathEscape(requestID)+"/status", body, nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}

// ExecutionOutput downloads one export artifact of a finished job.
func (c *Client) ExecutionOutput(ctx context.Context, requestID, exportID string) (*ReportOutput, error) {
	path := "/reportExecutions/" + url.PathEscape(requestID) + "/exports/" + url.PathEscape(exportID) + "/outputResource"
	return c.getRaw(ctx, path, nil, "*/*")
}
