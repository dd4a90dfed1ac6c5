package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is the schema of the image path argument shared by all tools.
var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded image is cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_preprocess",
			Description: "Return an intermediate image of the rectangle detector as base64-encoded PNG: the blurred, contrast-equalized grayscale ('enhanced') or the thresholded mask contours are traced on ('binary').",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"stage": map[string]interface{}{
						"type":        "string",
						"description": "Which stage to return",
						"enum":        []string{"enhanced", "binary"},
						"default":     "enhanced",
					},
				},
				"required": []string{"path"},
			},
		},

		// Rectangle Detection
		{
			Name:        "rect_detect",
			Description: "Detect convex four-sided shapes that do not touch the image border. Each rectangle is reported as its bounding box (top_left inclusive, bottom_right exclusive) with a nesting level counting the shapes it encloses.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "rect_annotate",
			Description: "Detect rectangles and draw each one with its nesting level on a copy of the image. Returns the detection report and the annotated image as base64-encoded PNG; also writes the copy when output_path is given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the annotated image to (format from extension)",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
