package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"stencil/internal/errors"
	"stencil/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// ParseRequest represents the arguments for template_parse.
type ParseRequest struct {
	Name   string `json:"name"`
	Format string `json:"format,omitempty"`
	Body   string `json:"body"`
}

// ConsolidateRequest represents the arguments for template_consolidate.
type ConsolidateRequest struct {
	TemplateIDs []string `json:"template_ids"`
}

// GenerateRequest represents the arguments for document_generate.
type GenerateRequest struct {
	Requests []GenerateItem `json:"requests"`
}

// GenerateItem is one generation request.
type GenerateItem struct {
	TemplateID string            `json:"template_id"`
	Values     map[string]string `json:"values,omitempty"`
}

// FetchRequest represents the arguments for document_fetch.
type FetchRequest struct {
	DocumentID     string `json:"document_id"`
	IncludeContent bool   `json:"include_content,omitempty"`
}

// HistoryRequest represents the arguments for document_history.
type HistoryRequest struct {
	LineageID  string `json:"lineage_id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

// EvaluateRequest represents the arguments for document_evaluate.
type EvaluateRequest struct {
	DocumentID string            `json:"document_id"`
	NewValues  map[string]string `json:"new_values"`
}

// EditRequest represents the arguments for document_edit.
type EditRequest struct {
	DocumentID string            `json:"document_id"`
	NewValues  map[string]string `json:"new_values"`
}

// RevertRequest represents the arguments for document_revert.
type RevertRequest struct {
	DocumentID string `json:"document_id"`
}

// ExportRequest represents the arguments for document_export.
type ExportRequest struct {
	DocumentID string `json:"document_id"`
	OutPath    string `json:"out_path,omitempty"`
}

// Handler implementations

// HandleParse handles the template_parse tool call.
func (h *Handlers) HandleParse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ParseRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ParseTemplate(ctx, h.env, ops.ParseTemplateInput{
		Name:   input.Name,
		Format: input.Format,
		Body:   input.Body,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the template_list tool call.
func (h *Handlers) HandleList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListTemplates(ctx, h.env, ops.ListTemplatesInput{})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleConsolidate handles the template_consolidate tool call.
func (h *Handlers) HandleConsolidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConsolidateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Consolidate(ctx, h.env, ops.ConsolidateInput{
		TemplateIDs: input.TemplateIDs,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGenerate handles the document_generate tool call.
func (h *Handlers) HandleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GenerateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	requests := make([]ops.GenerateRequest, len(input.Requests))
	for i, item := range input.Requests {
		requests[i] = ops.GenerateRequest{
			TemplateID: item.TemplateID,
			Values:     item.Values,
		}
	}

	result, err := ops.GenerateBatch(ctx, h.env, ops.GenerateBatchInput{Requests: requests})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the document_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.env, ops.FetchInput{
		DocumentID:     input.DocumentID,
		IncludeContent: input.IncludeContent,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the document_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(ctx, h.env, ops.HistoryInput{
		LineageID:  input.LineageID,
		DocumentID: input.DocumentID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleEvaluate handles the document_evaluate tool call.
func (h *Handlers) HandleEvaluate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EvaluateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.EvaluateEdit(ctx, h.env, ops.EvaluateEditInput{
		DocumentID: input.DocumentID,
		NewValues:  input.NewValues,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleEdit handles the document_edit tool call.
func (h *Handlers) HandleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EditRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ApplyEdit(ctx, h.env, ops.ApplyEditInput{
		DocumentID: input.DocumentID,
		NewValues:  input.NewValues,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRevert handles the document_revert tool call.
func (h *Handlers) HandleRevert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RevertRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RevertEdit(ctx, h.env, ops.RevertEditInput{
		DocumentID: input.DocumentID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the document_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.env, ops.ExportInput{
		DocumentID: input.DocumentID,
		OutPath:    input.OutPath,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// errorResult builds an error tool result with a structured payload.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if sErr, ok := err.(*errors.Error); ok {
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": sErr.Message,
			"status":  sErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult builds a success tool result with JSON content.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
