// Package mcp exposes citelink operations as MCP tools over stdio.
package mcp

import (
	"database/sql"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/citelink/internal/config"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"citation", "exhibit", "history"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var projectArg = mcp.WithString("project",
	mcp.Description("Project name (case-insensitive). Defaults to default_project from config."))

var (
	suggestToolDef = mcp.NewTool("citation_suggest",
		mcp.WithDescription("Detect a citation being typed at the end of text and rank exhibit completions. "+
			"Pass the text before the caret, e.g. \"as shown in [2\". Returns at most 8 suggestions."),
		projectArg,
		mcp.WithString("text", mcp.Required(), mcp.Description("Text before the caret")),
		mcp.WithNumber("limit", mcp.Description("Maximum suggestions (1-8)")),
	)

	resolveToolDef = mcp.NewTool("citation_resolve",
		mcp.WithDescription("Resolve a citation such as \"2B:15\" to the file and page or timestamp the viewer "+
			"should open, and record the visit in history. An exhibit with no linked file resolves "+
			"without a file_id rather than failing."),
		projectArg,
		mcp.WithString("reference", mcp.Description("Citation reference, e.g. 2B or 2B:15")),
		mcp.WithString("file_id", mcp.Description("File id to open directly")),
		mcp.WithString("description", mcp.Description("Annotation shown alongside the target")),
		mcp.WithBoolean("record", mcp.Description("Record the visit in history (default true)")),
	)

	scanToolDef = mcp.NewTool("citation_scan",
		mcp.WithDescription("List the bracketed citations in a Markdown file and whether each resolves to a file. "+
			"Code and raw HTML are ignored."),
		projectArg,
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to a .md file")),
	)

	importToolDef = mcp.NewTool("exhibit_import",
		mcp.WithDescription("Replace a project's exhibit directory and files from a .jsonl file or .yaml manifest. "+
			"Nothing is imported if any record is rejected."),
		projectArg,
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to a .jsonl, .yaml or .yml file")),
	)

	exportToolDef = mcp.NewTool("exhibit_export",
		mcp.WithDescription("Write a project's exhibits and files to a .jsonl file that exhibit_import reads back. "+
			"Defaults to the imports directory."),
		projectArg,
		mcp.WithString("path", mcp.Description("Destination .jsonl path")),
	)

	listToolDef = mcp.NewTool("exhibit_list",
		mcp.WithDescription("List a project's exhibits and files in import order."),
		projectArg,
	)

	historyListToolDef = mcp.NewTool("history_list",
		mcp.WithDescription("List visited citations for a project, most recent first."),
		projectArg,
		mcp.WithNumber("limit", mcp.Description("Maximum entries (default from config recent_history, max 1000)")),
	)

	historyClearToolDef = mcp.NewTool("history_clear",
		mcp.WithDescription("Remove every history entry for a project. This cannot be undone."),
		projectArg,
	)
)

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"citation_suggest": {
		def:     suggestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSuggest },
	},
	"citation_resolve": {
		def:     resolveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleResolve },
	},
	"citation_scan": {
		def:     scanToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScan },
	},
	"exhibit_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"exhibit_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"exhibit_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"history_list": {
		def:     historyListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryList },
	},
	"history_clear": {
		def:     historyClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryClear },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "citation_resolve" → "citation").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with citelink tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"citelink",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg)

	// Expand types first, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(db, cfg, version))
}
