package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var parseToolDef = mcp.NewTool("template_parse",
	mcp.WithDescription("Register a template and extract its placeholder fields. Placeholders use {token} syntax with optional markers ({token?}) and annotations ({token|...})."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Unique template name")),
	mcp.WithString("format", mcp.Description("Template format: text or markdown (default text)")),
	mcp.WithString("body", mcp.Required(), mcp.Description("Raw template content")),
)

var listToolDef = mcp.NewTool("template_list",
	mcp.WithDescription("List all registered templates, newest first."),
)

var consolidateToolDef = mcp.NewTool("template_consolidate",
	mcp.WithDescription("Merge the placeholders of several templates into one minimal field list. Semantically equivalent fields (applicant_name, customer_name, name) are asked for once."),
	mcp.WithArray("template_ids", mcp.Required(),
		mcp.Description("Template ids to consolidate"),
		mcp.Items(map[string]any{"type": "string"})),
)

var generateToolDef = mcp.NewTool("document_generate",
	mcp.WithDescription("Generate documents in batch, one per request. Requests are isolated: a failing request never affects the others."),
	mcp.WithArray("requests", mcp.Required(),
		mcp.Description("Generation requests, each {template_id, values}"),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"template_id": map[string]any{"type": "string"},
				"values": map[string]any{
					"type":                 "object",
					"additionalProperties": map[string]any{"type": "string"},
				},
			},
			"required": []string{"template_id"},
		})),
)

var fetchToolDef = mcp.NewTool("document_fetch",
	mcp.WithDescription("Fetch a generated document instance by id, optionally with its rendered content."),
	mcp.WithString("document_id", mcp.Required(), mcp.Description("Document instance id")),
	mcp.WithBoolean("include_content", mcp.Description("Include the rendered output")),
)

var historyToolDef = mcp.NewTool("document_history",
	mcp.WithDescription("Show a document lineage's full version history and edit ledger. Accepts a lineage id or any document id in the lineage."),
	mcp.WithString("lineage_id", mcp.Description("Lineage id")),
	mcp.WithString("document_id", mcp.Description("Any document id in the lineage")),
)

var evaluateToolDef = mcp.NewTool("document_evaluate",
	mcp.WithDescription("Price an edit without applying it: which fields change, whether it is within the free quota, and whether it would fork a new version."),
	mcp.WithString("document_id", mcp.Required(), mcp.Description("Document instance id")),
	mcp.WithObject("new_values", mcp.Required(),
		mcp.Description("Complete replacement field snapshot")),
)

var editToolDef = mcp.NewTool("document_edit",
	mcp.WithDescription("Apply an edit to a document. Within the free quota the document is rewritten in place; past it, a flat fee is charged and a new version forks."),
	mcp.WithString("document_id", mcp.Required(), mcp.Description("Document instance id")),
	mcp.WithObject("new_values", mcp.Required(),
		mcp.Description("Complete replacement field snapshot")),
)

var revertToolDef = mcp.NewTool("document_revert",
	mcp.WithDescription("Undo the most recent edit on a document, restoring the prior field snapshot. Reverting a paid edit refunds the fee."),
	mcp.WithString("document_id", mcp.Required(), mcp.Description("Document instance id")),
)

var exportToolDef = mcp.NewTool("document_export",
	mcp.WithDescription("Export a completed document as a paginated PDF under the exports directory."),
	mcp.WithString("document_id", mcp.Required(), mcp.Description("Document instance id")),
	mcp.WithString("out_path", mcp.Description("Override the default export path")),
)
