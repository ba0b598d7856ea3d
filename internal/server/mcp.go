package server

import (
	"context"
	"io"

	json "github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/agentic-research/shape/api"
	"github.com/agentic-research/shape/internal/structure"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

func pathArg() mcp.ToolOption {
	return mcp.WithArray("path",
		mcp.Required(),
		mcp.Description(`Node path segments, e.g. ["root", "[]", "addr"]. "[]" selects array content.`),
		mcp.Items(map[string]any{"type": "string"}),
	)
}

// MCPServer registers the read and header tools on a new MCP server.
func (s *Service) MCPServer() *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer("shape", Version, mcpserver.WithToolCapabilities(false))
	srv.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Return the node at a path with its properties and children."),
		pathArg(),
	), s.toolGetNode)
	srv.AddTool(mcp.NewTool("column_types",
		mcp.WithDescription("Return the column name to node type map below a node."),
		pathArg(),
	), s.toolColumnTypes)
	srv.AddTool(mcp.NewTool("type_name",
		mcp.WithDescription("Return the flat type name derived from a node path."),
		pathArg(),
	), s.toolTypeName)
	srv.AddTool(mcp.NewTool("generate_header_names",
		mcp.WithDescription("Assign safe, unique header names to every node that lacks one and return the tree."),
	), s.toolGenerateHeaderNames)
	srv.AddTool(mcp.NewTool("get_structure",
		mcp.WithDescription("Return the whole reconciled structure tree."),
	), s.toolGetStructure)
	return srv
}

// ServeStdio serves the MCP tools on in and out until ctx is done or in
// is closed.
func (s *Service) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	return mcpserver.NewStdioServer(s.MCPServer()).Listen(ctx, in, out)
}

func toolPath(req mcp.CallToolRequest) (structure.NodePath, error) {
	segs, err := req.RequireStringSlice("path")
	if err != nil {
		return structure.NodePath{}, err
	}
	return structure.NewNodePath(segs...), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (s *Service) toolGetNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := toolPath(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, found := s.Node(p)
	if !found {
		return mcp.NewToolResultError("node " + p.String() + " not found"), nil
	}
	return jsonResult(api.NodeResult{Path: p.Segments(), Found: true, Node: node})
}

func (s *Service) toolColumnTypes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := toolPath(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(api.ColumnsResult{Path: p.Segments(), Columns: s.ColumnTypes(p)})
}

func (s *Service) toolTypeName(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := toolPath(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.TypeName(p)), nil
}

func (s *Service) toolGenerateHeaderNames(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.GenerateHeaderNames())
}

func (s *Service) toolGetStructure(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.Structure())
}
