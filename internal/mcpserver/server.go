// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes masque tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/masque/internal/apperr"
	"github.com/starford/masque/internal/maskservice"
	"github.com/starford/masque/internal/models"
)

// FormatURI is the resource holding the mask file contract.
const FormatURI = "masque://mask-format"

// Server wraps the MCP server with masque tools.
type Server struct {
	mcp *server.MCPServer
	svc *maskservice.Service
}

// New creates a new MCP server with all masque tools registered.
func New(svc *maskservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"masque",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_masks",
		mcp.WithDescription("List masks in display order, one per line as <id>\t<name>. "+
			"Builtin presets are marked [builtin], the selected mask [selected]."),
	), s.listMasks)

	s.mcp.AddTool(mcp.NewTool("read_mask",
		mcp.WithDescription("Read a mask as JSON in the mask file format."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mask id")),
	), s.readMask)

	s.mcp.AddTool(mcp.NewTool("create_mask",
		mcp.WithDescription("Create a new mask and select it. The model configuration is copied "+
			"from the global one. Read the contract first via the get_mask_format tool or the "+
			FormatURI+" resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("prompt", mcp.Description("Optional system prompt, stored as the first context entry")),
		mcp.WithBoolean("hide_context", mcp.Description("Hide the context prompts in chats")),
	), s.createMask)

	s.mcp.AddTool(mcp.NewTool("export_mask",
		mcp.WithDescription("Write a mask file into the export directory and return its name."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mask id")),
	), s.exportMask)

	s.mcp.AddTool(mcp.NewTool("set_active_tab",
		mcp.WithDescription("Switch the sidebar tab."),
		mcp.WithString("tab", mcp.Required(), mcp.Description("One of chat, mask, config"),
			mcp.Enum(string(models.TabChat), string(models.TabMask), string(models.TabConfig))),
	), s.setActiveTab)

	s.mcp.AddTool(mcp.NewTool("get_mask_format",
		mcp.WithDescription("Returns the mask file format contract used by read_mask, "+
			"export and the import directory."),
	), s.getMaskFormat)

	// Resource: mask file contract.
	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Mask File Format",
			mcp.WithResourceDescription("JSON format of exported and importable mask files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMaskFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("mask not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listMasks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	masks := s.svc.ListMasks(ctx)
	if len(masks) == 0 {
		return mcp.NewToolResultText("no masks"), nil
	}
	lines := make([]string, 0, len(masks))
	for _, m := range masks {
		line := m.ID + "\t" + m.Name
		if m.Builtin {
			line += " [builtin]"
		}
		if m.Selected {
			line += " [selected]"
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readMask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, data, err := s.svc.MaskFile(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createMask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	seed := models.Mask{Name: name}
	if prompt, pErr := req.RequireString("prompt"); pErr == nil && prompt != "" {
		seed.Context = []models.ChatMessage{{Role: models.RoleSystem, Content: models.Text(prompt)}}
	}
	if hide, hErr := req.RequireBool("hide_context"); hErr == nil {
		seed.HideContext = hide
	}

	m, err := s.svc.CreateMask(ctx, seed)
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.Marshal(map[string]string{"id": m.ID, "revision": m.Revision})
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) exportMask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := s.svc.ExportMask(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrUnsupported) {
			return mcp.NewToolResultError("export directory is not configured"), nil
		}
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("exported: %s", name)), nil
}

func (s *Server) setActiveTab(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tab, err := req.RequireString("tab")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.SetActiveTab(ctx, models.Tab(tab)); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("active tab: " + tab), nil
}

func (s *Server) getMaskFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MaskFormatContract), nil
}

func (s *Server) readMaskFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     MaskFormatContract,
		},
	}, nil
}
