package mcperr

import (
	"context"
	"net"
	"strings"

	"github.com/teranos/jasper-mcp/errors"
	"github.com/teranos/jasper-mcp/jasper"
)

// httpStatusEntry is one row of the HTTP status mapping table.
type httpStatusEntry struct {
	code     string
	category Category
	severity Severity
}

// httpStatusTable maps HTTP status codes directly onto the taxonomy.
var httpStatusTable = map[int]httpStatusEntry{
	400: {CodeInvalidRequest, CategoryValidation, SeverityLow},
	401: {CodeAuthenticationRequired, CategoryAuthentication, SeverityHigh},
	403: {CodePermissionDenied, CategoryAuthorization, SeverityHigh},
	404: {CodeResourceNotFound, CategoryResource, SeverityMedium},
	408: {CodeTimeoutError, CategoryNetwork, SeverityMedium},
	409: {CodeResourceConflict, CategoryResource, SeverityMedium},
	500: {CodeInternalError, CategoryInternal, SeverityHigh},
	503: {CodeServiceUnavailable, CategoryInternal, SeverityHigh},
}

// MapHTTPStatus converts an HTTP status into a normalized error. Statuses
// outside the table degrade to UnknownError with the original status
// preserved so callers can still see what the server answered.
func MapHTTPStatus(statusCode int, message string, details map[string]any) *Error {
	if entry, ok := httpStatusTable[statusCode]; ok {
		return newError(entry.code, entry.category, entry.severity, message, details, intPtr(statusCode))
	}
	return newError(CodeUnknownError, CategoryInternal, SeverityHigh, message, details, intPtr(statusCode))
}

// jasperCodeEntry is one row of the exact-match server error code table.
type jasperCodeEntry struct {
	code       string
	category   Category
	severity   Severity
	statusCode int
}

// jasperCodeTable maps known JasperReports Server error codes onto the
// taxonomy. Exact matches win over the substring fallback below.
var jasperCodeTable = map[string]jasperCodeEntry{
	"resource.not.found":      {CodeResourceNotFound, CategoryResource, SeverityMedium, 404},
	"access.denied":           {CodePermissionDenied, CategoryAuthorization, SeverityHigh, 403},
	"invalid.credentials":     {CodeAuthenticationRequired, CategoryAuthentication, SeverityHigh, 401},
	"resource.already.exists": {CodeResourceConflict, CategoryResource, SeverityMedium, 409},
	"validation.error":        {CodeInvalidRequest, CategoryValidation, SeverityLow, 400},
	"compilation.error":       {CodeInternalError, CategoryExecution, SeverityHigh, 500},
	"parameter.error":         {CodeInvalidParams, CategoryValidation, SeverityLow, 400},
	"datasource.error":        {CodeInternalError, CategoryExecution, SeverityHigh, 500},
	"export.error":            {CodeInternalError, CategoryExecution, SeverityHigh, 500},
	"job.not.found":           {CodeResourceNotFound, CategoryResource, SeverityMedium, 404},
	"user.not.found":          {CodeResourceNotFound, CategoryResource, SeverityMedium, 404},
	"role.not.found":          {CodeResourceNotFound, CategoryResource, SeverityMedium, 404},
	"domain.not.found":        {CodeResourceNotFound, CategoryResource, SeverityMedium, 404},
}

// substringRule is one ordered fallback rule for unrecognized server codes.
type substringRule struct {
	substrings []string
	entry      jasperCodeEntry
}

// substringRules are checked in order after the exact table misses. The
// order is a tie-break contract: a code matching several rules classifies
// as the first one.
var substringRules = []substringRule{
	{[]string{"not.found"}, jasperCodeEntry{CodeResourceNotFound, CategoryResource, SeverityMedium, 404}},
	{[]string{"access", "permission"}, jasperCodeEntry{CodePermissionDenied, CategoryAuthorization, SeverityHigh, 403}},
	{[]string{"validation", "invalid"}, jasperCodeEntry{CodeInvalidRequest, CategoryValidation, SeverityLow, 400}},
	{[]string{"authentication", "credentials"}, jasperCodeEntry{CodeAuthenticationRequired, CategoryAuthentication, SeverityHigh, 401}},
}

// MapJasperError converts a raw server error descriptor into a normalized
// error. Resolution order: exact code table, then substring rules, then an
// internal-error default. The mapper never fails to classify.
func MapJasperError(raw *jasper.ErrorDescriptor) *Error {
	if raw == nil {
		return NewInternalError("jasperserver returned an error without a descriptor", nil)
	}

	details := map[string]any{"jasperError": raw}

	message := raw.Message
	if message == "" {
		message = raw.ErrorCode
	}

	if entry, ok := jasperCodeTable[raw.ErrorCode]; ok {
		if raw.ErrorCode == "validation.error" && len(raw.Parameters) > 0 {
			details["fieldErrors"] = raw.Parameters
		}
		return newError(entry.code, entry.category, entry.severity, message, details, intPtr(entry.statusCode))
	}

	for _, rule := range substringRules {
		for _, sub := range rule.substrings {
			if strings.Contains(raw.ErrorCode, sub) {
				return newError(rule.entry.code, rule.entry.category, rule.entry.severity, message, details, intPtr(rule.entry.statusCode))
			}
		}
	}

	return newError(CodeInternalError, CategoryInternal, SeverityHigh, message, details, intPtr(500))
}

// FromError routes any Go error into the taxonomy. Already-normalized
// errors pass through untouched; transport errors split into server
// responses (status mapping) and connection-level failures.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var norm *Error
	if errors.As(err, &norm) {
		return norm
	}

	var se *jasper.StatusError
	if errors.As(err, &se) {
		if se.Descriptor != nil {
			return MapJasperError(se.Descriptor)
		}
		return MapHTTPStatus(se.StatusCode, se.Error(), nil)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newError(CodeTimeoutError, CategoryNetwork, SeverityMedium, err.Error(), nil, intPtr(408))
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return newError(CodeTimeoutError, CategoryNetwork, SeverityMedium, err.Error(), nil, intPtr(408))
		}
		return NewConnectionError(err.Error(), nil)
	}

	return NewInternalError(err.Error(), nil)
}
