package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Document string `json:"document" jsonschema:"document name, ID or path to question"`
	Question string `json:"question" jsonschema:"the question to answer from the document"`
	K        int    `json:"k,omitempty" jsonschema:"number of passages to retrieve (default from settings)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer     string         `json:"answer"`
	DocumentID string         `json:"document_id"`
	Sources    []SourceOutput `json:"sources"`
}

// SourceOutput is a retrieved passage backing an answer.
type SourceOutput struct {
	Position   int     `json:"position"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// ListDocumentsInput is the (empty) input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []domain.DocumentInfo `json:"documents"`
	Count     int                   `json:"count"`
}

// IndexInput is the input schema for the index_document tool.
type IndexInput struct {
	Document string `json:"document" jsonschema:"document name, ID or path to index"`
	Rebuild  bool   `json:"rebuild,omitempty" jsonschema:"discard any stored index and rebuild it"`
}

// IndexOutput is the output schema for the index_document tool.
type IndexOutput struct {
	DocumentID  string `json:"document_id"`
	Model       string `json:"model"`
	Dimensions  int    `json:"dimensions"`
	Chunks      int    `json:"chunks"`
	ContentHash string `json:"content_hash,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the content of a local document",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents available for questioning",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_document",
		Description: "Build or rebuild the vector index for a document",
	}, s.handleIndex)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	path, err := s.ports.QA.Resolve(ctx, input.Document)
	if err != nil {
		return nil, AskOutput{}, fmt.Errorf("resolving document: %w", err)
	}

	answer, err := s.ports.QA.Ask(ctx, path, input.Question, input.K)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:     answer.Text,
		DocumentID: answer.DocumentID,
		Sources:    make([]SourceOutput, len(answer.Sources)),
	}
	for i, hit := range answer.Sources {
		output.Sources[i] = SourceOutput{
			Position:   hit.Position,
			Similarity: hit.Similarity,
			Content:    hit.Content,
		}
	}

	return nil, output, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.QA.Documents(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	if docs == nil {
		docs = []domain.DocumentInfo{}
	}
	return nil, ListDocumentsOutput{Documents: docs, Count: len(docs)}, nil
}

// handleIndex handles the index_document tool invocation.
func (s *Server) handleIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	path, err := s.ports.QA.Resolve(ctx, input.Document)
	if err != nil {
		return nil, IndexOutput{}, fmt.Errorf("resolving document: %w", err)
	}

	manifest, err := s.ports.QA.Index(ctx, path, input.Rebuild)
	if err != nil {
		return nil, IndexOutput{}, err
	}

	return nil, IndexOutput{
		DocumentID:  manifest.DocumentID,
		Model:       manifest.Model,
		Dimensions:  manifest.Dimensions,
		Chunks:      manifest.Count,
		ContentHash: manifest.ContentHash,
	}, nil
}
