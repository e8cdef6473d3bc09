package mcp

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP server.
type Ports struct {
	// QA answers questions and manages document indexes.
	QA driving.QAService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.QA == nil {
		return ErrMissingQAService
	}
	return nil
}
