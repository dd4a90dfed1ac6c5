package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ironsheep/rectnest-mcp/internal/imaging"
	"github.com/ironsheep/rectnest-mcp/internal/logger"
	"github.com/ironsheep/rectnest-mcp/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "rect_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// paramsError marks tool arguments that could not be decoded or are missing.
type paramsError struct {
	err error
}

func (e *paramsError) Error() string { return e.err.Error() }
func (e *paramsError) Unwrap() error { return e.err }

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Malformed arguments return -32602; tool execution errors return -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		logger.Log().Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		var pe *paramsError
		if errors.As(err, &pe) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_preprocess":
		return s.handleImagePreprocess(args)

	// Rectangle Detection
	case "rect_detect":
		return s.handleRectDetect(args)
	case "rect_annotate":
		return s.handleRectAnnotate(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments and requires a path.
func decodeArgs(args json.RawMessage, v interface{ path() string }) error {
	if len(args) == 0 {
		return &paramsError{errors.New("missing arguments")}
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &paramsError{err}
	}
	if v.path() == "" {
		return &paramsError{errors.New("path is required")}
	}
	return nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (a *imageLoadArgs) path() string { return a.Path }

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imagePreprocessArgs struct {
	Path  string `json:"path"`
	Stage string `json:"stage"`
}

func (a *imagePreprocessArgs) path() string { return a.Path }

func (s *Server) handleImagePreprocess(args json.RawMessage) (interface{}, error) {
	var a imagePreprocessArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.pipeline.Preprocess(a.Path, pipeline.Stage(a.Stage))
}

// === Rectangle Detection Handlers ===

type rectDetectArgs struct {
	Path string `json:"path"`
}

func (a *rectDetectArgs) path() string { return a.Path }

func (s *Server) handleRectDetect(args json.RawMessage) (interface{}, error) {
	var a rectDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.pipeline.Detect(a.Path)
}

type rectAnnotateArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
}

func (a *rectAnnotateArgs) path() string { return a.Path }

func (s *Server) handleRectAnnotate(args json.RawMessage) (interface{}, error) {
	var a rectAnnotateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.pipeline.Annotate(a.Path, a.OutputPath, true)
}
