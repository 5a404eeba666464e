// Package server exposes the report execution engine as MCP tools over
// the stdio transport.
package server

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/teranos/jasper-mcp/mcperr"
	"github.com/teranos/jasper-mcp/report"
	"github.com/teranos/jasper-mcp/version"
)

// MCPServer wraps the execution engine and exposes it via Model Context Protocol
type MCPServer struct {
	engine *report.Engine
	server *server.MCPServer
	log    *zap.SugaredLogger
}

// NewMCPServer creates a new MCP server around an execution engine
func NewMCPServer(engine *report.Engine, log *zap.SugaredLogger) *MCPServer {
	s := &MCPServer{
		engine: engine,
		log:    log,
	}

	s.server = server.NewMCPServer(
		"jasper-mcp",
		version.Get().Version,
		server.WithToolCapabilities(true),
	)

	s.registerTools()
	return s
}

// registerTools registers all MCP tools for report operations
func (s *MCPServer) registerTools() {
	runSyncTool := mcp.NewTool("jasper_run_report_sync",
		mcp.WithDescription("Run a report synchronously and return the rendered content (base64 for binary formats)"),
		mcp.WithString("report_uri",
			mcp.Required(),
			mcp.Description("Repository URI of the report unit, e.g. /reports/shop/sales"),
		),
		mcp.WithString("output_format",
			mcp.Description("Output format (default: pdf); see jasper_list_formats"),
		),
		mcp.WithObject("parameters",
			mcp.Description("Report parameters; values may be scalars, dates, or arrays for multi-select"),
		),
	)
	s.server.AddTool(runSyncTool, s.handleRunReportSync)

	runAsyncTool := mcp.NewTool("jasper_run_report_async",
		mcp.WithDescription("Submit a report for asynchronous execution; poll with jasper_get_execution_status"),
		mcp.WithString("report_uri",
			mcp.Required(),
			mcp.Description("Repository URI of the report unit"),
		),
		mcp.WithString("output_format",
			mcp.Description("Output format (default: pdf)"),
		),
		mcp.WithObject("parameters",
			mcp.Description("Report parameters"),
		),
	)
	s.server.AddTool(runAsyncTool, s.handleRunReportAsync)

	statusTool := mcp.NewTool("jasper_get_execution_status",
		mcp.WithDescription("Get the current record of an execution; polls the server for open async jobs"),
		mcp.WithString("execution_id",
			mcp.Required(),
			mcp.Description("Execution ID returned by a run tool"),
		),
	)
	s.server.AddTool(statusTool, s.handleExecutionStatus)

	cancelTool := mcp.NewTool("jasper_cancel_execution",
		mcp.WithDescription("Cancel an in-flight async execution; cancelling a finished execution is a no-op"),
		mcp.WithString("execution_id",
			mcp.Required(),
			mcp.Description("Execution ID returned by jasper_run_report_async"),
		),
	)
	s.server.AddTool(cancelTool, s.handleCancelExecution)

	validateTool := mcp.NewTool("jasper_validate_report",
		mcp.WithDescription("Check that a URI resolves to an executable report, without running it"),
		mcp.WithString("report_uri",
			mcp.Required(),
			mcp.Description("Repository URI to probe"),
		),
	)
	s.server.AddTool(validateTool, s.handleValidateReport)

	metadataTool := mcp.NewTool("jasper_get_report_metadata",
		mcp.WithDescription("Get report metadata: descriptor, input controls, and supported output formats"),
		mcp.WithString("report_uri",
			mcp.Required(),
			mcp.Description("Repository URI of the report"),
		),
	)
	s.server.AddTool(metadataTool, s.handleReportMetadata)

	formatsTool := mcp.NewTool("jasper_list_formats",
		mcp.WithDescription("List the supported output formats with mime types and extensions"),
	)
	s.server.AddTool(formatsTool, s.handleListFormats)

	statisticsTool := mcp.NewTool("jasper_execution_statistics",
		mcp.WithDescription("Get aggregated execution statistics (totals and per-format counters)"),
	)
	s.server.AddTool(statisticsTool, s.handleExecutionStatistics)

	historyTool := mcp.NewTool("jasper_execution_history",
		mcp.WithDescription("List finished executions in insertion order"),
	)
	s.server.AddTool(historyTool, s.handleExecutionHistory)

	clearTool := mcp.NewTool("jasper_clear_execution_history",
		mcp.WithDescription("Clear execution history and reset all statistics counters"),
	)
	s.server.AddTool(clearTool, s.handleClearHistory)
}

// requestFromArgs builds an execution request from tool arguments.
func requestFromArgs(request mcp.CallToolRequest) (report.Request, error) {
	reportURI, err := request.RequireString("report_uri")
	if err != nil {
		return report.Request{}, err
	}
	req := report.Request{
		ReportURI:    reportURI,
		OutputFormat: request.GetString("output_format", "pdf"),
	}
	if params, ok := request.GetArguments()["parameters"].(map[string]any); ok {
		req.Parameters = params
	}
	return req, nil
}

// toolError serializes a normalized error as the tool result. Anything
// that is not already normalized goes through the mapper first.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(mcperr.FromError(err).JSON())
}

// toolJSON renders a result value as pretty JSON text content.
func toolJSON(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(string(out))
}

// handleRunReportSync handles jasper_run_report_sync tool calls
func (s *MCPServer) handleRunReportSync(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := requestFromArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.engine.RunSync(ctx, req)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(result), nil
}

// handleRunReportAsync handles jasper_run_report_async tool calls
func (s *MCPServer) handleRunReportAsync(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := requestFromArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	handle, err := s.engine.RunAsync(ctx, req)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(handle), nil
}

// handleExecutionStatus handles jasper_get_execution_status tool calls
func (s *MCPServer) handleExecutionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID, err := request.RequireString("execution_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	record, err := s.engine.ExecutionStatus(ctx, executionID)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(record), nil
}

// handleCancelExecution handles jasper_cancel_execution tool calls
func (s *MCPServer) handleCancelExecution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID, err := request.RequireString("execution_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cancelled, err := s.engine.Cancel(ctx, executionID)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(map[string]any{"executionId": executionID, "cancelled": cancelled}), nil
}

// handleValidateReport handles jasper_validate_report tool calls
func (s *MCPServer) handleValidateReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reportURI, err := request.RequireString("report_uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(s.engine.Validate(ctx, reportURI)), nil
}

// handleReportMetadata handles jasper_get_report_metadata tool calls
func (s *MCPServer) handleReportMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reportURI, err := request.RequireString("report_uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	metadata, err := s.engine.Metadata(ctx, reportURI)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(metadata), nil
}

// handleListFormats handles jasper_list_formats tool calls
func (s *MCPServer) handleListFormats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolJSON(s.engine.Formats()), nil
}

// handleExecutionStatistics handles jasper_execution_statistics tool calls
func (s *MCPServer) handleExecutionStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolJSON(s.engine.Statistics()), nil
}

// handleExecutionHistory handles jasper_execution_history tool calls
func (s *MCPServer) handleExecutionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolJSON(s.engine.History()), nil
}

// handleClearHistory handles jasper_clear_execution_history tool calls
func (s *MCPServer) handleClearHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.engine.ClearHistory()
	return mcp.NewToolResultText("Execution history cleared"), nil
}

// Serve starts the MCP server using stdio transport
func (s *MCPServer) Serve() error {
	s.log.Infow("serving MCP over stdio")
	return server.ServeStdio(s.server)
}
