package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/citelink/internal/config"
	"github.com/hpungsan/citelink/internal/errors"
	"github.com/hpungsan/citelink/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// Request types for each tool

// SuggestRequest represents the arguments for citation_suggest.
type SuggestRequest struct {
	Project string `json:"project,omitempty"`
	Text    string `json:"text"`
	Limit   int    `json:"limit,omitempty"`
}

// ResolveRequest represents the arguments for citation_resolve.
type ResolveRequest struct {
	Project     string `json:"project,omitempty"`
	Reference   string `json:"reference,omitempty"`
	FileID      string `json:"file_id,omitempty"`
	Description string `json:"description,omitempty"`
	Record      *bool  `json:"record,omitempty"`
}

// PathRequest represents the arguments for citation_scan, exhibit_import and exhibit_export.
type PathRequest struct {
	Project string `json:"project,omitempty"`
	Path    string `json:"path"`
}

// ProjectRequest represents the arguments for exhibit_list and history_clear.
type ProjectRequest struct {
	Project string `json:"project,omitempty"`
}

// HistoryListRequest represents the arguments for history_list.
type HistoryListRequest struct {
	Project string `json:"project,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// Handler implementations

// HandleSuggest handles the citation_suggest tool call.
func (h *Handlers) HandleSuggest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SuggestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Suggest(ctx, h.db, h.cfg, ops.SuggestInput{
		Project: input.Project,
		Text:    input.Text,
		Limit:   input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleResolve handles the citation_resolve tool call.
func (h *Handlers) HandleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ResolveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Resolve(ctx, h.db, h.cfg, ops.ResolveInput{
		Project:     input.Project,
		Reference:   input.Reference,
		FileID:      input.FileID,
		Description: input.Description,
		Record:      input.Record,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleScan handles the citation_scan tool call.
func (h *Handlers) HandleScan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Scan(ctx, h.db, h.cfg, ops.ScanInput{
		Project: input.Project,
		Path:    input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the exhibit_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Project: input.Project,
		Path:    input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the exhibit_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{
		Project: input.Project,
		Path:    input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the exhibit_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Exhibits(ctx, h.db, h.cfg, ops.ExhibitsInput{Project: input.Project})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistoryList handles the history_list tool call.
func (h *Handlers) HandleHistoryList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.HistoryList(ctx, h.db, h.cfg, ops.HistoryListInput{
		Project: input.Project,
		Limit:   input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistoryClear handles the history_clear tool call.
func (h *Handlers) HandleHistoryClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.HistoryClear(ctx, h.db, h.cfg, ops.HistoryClearInput{Project: input.Project})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var citeErr *errors.CiteError
	if stderrors.As(err, &citeErr) {
		errorObj := map[string]any{
			"code":    citeErr.Code,
			"message": citeErr.Message,
			"status":  citeErr.Status,
		}
		// SQL errors and file paths stay out of INTERNAL results
		if citeErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if citeErr.Details != nil {
			errorObj["details"] = citeErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
