// Package tui provides an interactive chat interface for asking questions
// about documents. It implements a driving adapter following hexagonal
// architecture principles.
package tui

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates the driving ports and options the TUI runs against.
type Ports struct {
	// QA lists documents, builds indexes and answers questions.
	QA driving.QAService

	// TopK is the number of passages retrieved per question.
	// Zero uses the configured default.
	TopK int
}

// NewPorts creates a new Ports aggregate.
func NewPorts(qa driving.QAService) *Ports {
	return &Ports{QA: qa}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.QA == nil {
		return ErrMissingQAService
	}
	if p.TopK < 0 {
		return ErrInvalidPorts
	}
	return nil
}
