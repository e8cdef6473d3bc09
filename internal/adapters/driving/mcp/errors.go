// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It lets AI assistants ask questions about local documents and manage their indexes.
package mcp

import "errors"

// ErrMissingQAService is returned when the question-answering service is not provided.
var ErrMissingQAService = errors.New("mcp: qa service is required")
