// Package mcpserver exposes selection over the Model Context Protocol.
package mcpserver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentic-research/nixsel/internal/attrpath"
	"github.com/agentic-research/nixsel/internal/render"
	"github.com/agentic-research/nixsel/internal/scope"
	"github.com/agentic-research/nixsel/internal/selector"
	"github.com/agentic-research/nixsel/internal/syntax"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Handlers holds the tool implementations; they share one compiler so
// repeated requests hit its cache.
type Handlers struct {
	compiler *selector.Compiler
	logger   *slog.Logger
}

// NewHandlers returns handlers over c. A nil logger means slog.Default().
func NewHandlers(c *selector.Compiler, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{compiler: c, logger: logger}
}

// New builds an MCP server with the select_values and discover_frames tools.
func New(h *Handlers, version string) *server.MCPServer {
	s := server.NewMCPServer("nixsel", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("select_values",
		mcp.WithDescription("Select the elements bound to an attribute path in Nix source, "+
			"optionally only where the binding is nested under with/let frames."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Nix source text")),
		mcp.WithString("attr", mcp.Required(), mcp.Description(`Attribute path, e.g. meta.maintainers or "a.b"`)),
		mcp.WithArray("frames",
			mcp.Description(`Frames outermost first: "with", "with=ENV", "let", "let=a,b"`),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("jsonpath", mcp.Description("Optional JSONPath applied to the result array")),
	), h.SelectValues)

	s.AddTool(mcp.NewTool("discover_frames",
		mcp.WithDescription("List every binding of an attribute path with the with/let frames wrapping its value."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Nix source text")),
		mcp.WithString("attr", mcp.Required(), mcp.Description("Attribute path")),
	), h.DiscoverFrames)

	return s
}

func (h *Handlers) parse(ctx context.Context, req mcp.CallToolRequest) (*syntax.Document, attrpath.Path, error) {
	src, err := req.RequireString("source")
	if err != nil {
		return nil, nil, err
	}
	attr, err := req.RequireString("attr")
	if err != nil {
		return nil, nil, err
	}
	path, err := attrpath.Parse(attr)
	if err != nil {
		return nil, nil, err
	}
	doc, err := syntax.Parse(ctx, "source.nix", []byte(src))
	if err != nil {
		return nil, nil, err
	}
	return doc, path, nil
}

// SelectValues answers select_values with a JSON array of records.
func (h *Handlers) SelectValues(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, path, err := h.parse(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer doc.Close()

	frames, err := scope.ParseFrames(req.GetStringSlice("frames", nil))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var buf bytes.Buffer
	w, err := render.NewWriter(&buf, render.JSON, req.GetString("jsonpath", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	vals, err := h.compiler.Select(ctx, doc, selector.Request{Path: path, Shape: selector.ListElements, Frames: frames})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n := 0
	for v := range vals.All() {
		if err := w.Write(v.Record(path.String())); err != nil {
			return nil, err
		}
		n++
	}
	if err := vals.Err(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	h.logger.Debug("select_values", "attr", path.String(), "frames", len(frames), "values", n)
	return mcp.NewToolResultText(strings.TrimSpace(buf.String())), nil
}

// DiscoverFrames answers discover_frames with one line per binding.
func (h *Handlers) DiscoverFrames(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, path, err := h.parse(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer doc.Close()

	found, err := h.compiler.Discover(ctx, doc, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var b strings.Builder
	for _, d := range found {
		fmt.Fprintln(&b, d.String())
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("no bindings of " + path.String()), nil
	}
	return mcp.NewToolResultText(strings.TrimSpace(b.String())), nil
}
