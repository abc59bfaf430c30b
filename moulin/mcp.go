package moulin

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/moulinette/kit"
)

// RegisterMCP registers the pipeline's tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerConvertTool(srv)
	p.registerDetectTool(srv)
	p.registerFormatsTool(srv)
}

// mcpEnrich tags tool contexts with the MCP transport, so logs can tell
// tool traffic from HTTP traffic.
func mcpEnrich(ctx context.Context) context.Context {
	return kit.WithTransport(ctx, "mcp")
}

// toolLog logs every invocation of a tool with its transport and duration.
func (p *Pipeline) toolLog(name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			p.logger.Debug("mcp tool call",
				"tool", name, "transport", kit.GetTransport(ctx),
				"duration", time.Since(start), "error", err)
			return resp, err
		}
	}
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- convert ---

type convertReq struct {
	Path     string `json:"path"`
	Filename string `json:"filename,omitempty"`
}

func (p *Pipeline) registerConvertTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "moulinette_convert",
		Description: "Convert a local document file (pdf, doc, docx, pptx, xlsx) to Markdown.",
		InputSchema: inputSchema(map[string]any{
			"path":     map[string]any{"type": "string", "description": "Local path of the file to convert"},
			"filename": map[string]any{"type": "string", "description": "Filename used for format detection; defaults to the path's base name"},
		}, []string{"path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*convertReq)
		name := r.Filename
		if name == "" {
			name = filepath.Base(r.Path)
		}
		format, err := p.Detect(name)
		if err != nil {
			return nil, err
		}
		md, err := p.Extract(ctx, Document{Path: r.Path, Filename: name})
		if err != nil {
			return nil, err
		}
		return map[string]any{"format": string(format), "markdown": md}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r convertReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpEnrich}, nil
	}

	kit.RegisterMCPTool(srv, tool, kit.Chain(p.toolLog(tool.Name))(endpoint), decode)
}

// --- detect ---

type detectReq struct {
	Filename string `json:"filename"`
}

func (p *Pipeline) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "moulinette_detect",
		Description: "Detect the document format of a filename from its extension.",
		InputSchema: inputSchema(map[string]any{
			"filename": map[string]any{"type": "string", "description": "Filename to classify"},
		}, []string{"filename"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*detectReq)
		format, err := p.Detect(r.Filename)
		if err != nil {
			return nil, err
		}
		return map[string]any{"format": string(format)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r detectReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpEnrich}, nil
	}

	kit.RegisterMCPTool(srv, tool, kit.Chain(p.toolLog(tool.Name))(endpoint), decode)
}

// --- formats ---

func (p *Pipeline) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "moulinette_formats",
		Description: "List the supported document formats and file extensions.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"formats": Formats(), "extensions": Extensions()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{EnrichCtx: mcpEnrich}, nil
	}

	kit.RegisterMCPTool(srv, tool, kit.Chain(p.toolLog(tool.Name))(endpoint), decode)
}
