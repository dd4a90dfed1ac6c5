// Package server implements the MCP (Model Context Protocol) server for
// nested rectangle detection.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_preprocess: Inspect the enhanced or binary stage of the detector
//
// Rectangle Detection:
//   - rect_detect: Find rectangles and their nesting levels
//   - rect_annotate: Draw the detected rectangles and levels on a copy
//
// # Image Caching
//
// Decoded images are cached by path for the lifetime of the process and
// shared by every tool.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses:
//   - -32602: malformed arguments or missing path
//   - -32000: tool execution failure, with the Go error string as data
//   - -32601: unknown method
//
// # Usage
//
//	srv, err := server.New(cfg, version)
//	if err != nil {
//	    return err
//	}
//	return srv.Run()
//
// Logs go to stderr through the logger package; stdout carries only protocol
// messages.
package server
