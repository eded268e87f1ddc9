package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/athapong/pii-mcp/pkg/ingest"
	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/athapong/pii-mcp/pkg/pii/metrics"
	"github.com/athapong/pii-mcp/pkg/pipeline"
	"github.com/athapong/pii-mcp/util"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterPIITools exposes detection and masking over MCP
func RegisterPIITools(s *server.MCPServer, p *pipeline.Pipeline) {
	detectTool := mcp.NewTool("pii_detect",
		mcp.WithDescription("Detect personal and health information in OCR text spans. Returns typed, scored entities with masked values, bounding boxes and any false positives demoted by contextual validation."),
		mcp.WithString("document", mcp.Description("Document JSON: {\"document_id\", \"pages\": [{\"page_no\", \"width\", \"height\", \"spans\": [{\"span_id\", \"text\", \"bbox\": [x1,y1,x2,y2], \"language\", \"ocr_confidence\"}]}]} or a bare span array")),
		mcp.WithString("text", mcp.Description("Plain text to scan instead of a document; each line becomes a span")),
		mcp.WithBoolean("use_llm", mcp.Description("Run contextual validation on every detected entity")),
		mcp.WithBoolean("include_values", mcp.Description("Include raw entity values in the output. Defaults to false, only masked values are returned")),
	)

	maskTool := mcp.NewTool("pii_mask",
		mcp.WithDescription("Mask a single value using the redaction rule of the given entity type"),
		mcp.WithString("value", mcp.Required(), mcp.Description("The value to mask")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Canonical entity type, e.g. AADHAAR, PAN, PHONE, MEDICAL_RECORD_NUMBER")),
	)

	typesTool := mcp.NewTool("pii_entity_types",
		mcp.WithDescription("List the canonical entity types the detector can emit"),
	)

	s.AddTool(detectTool, util.ErrorGuard(detectHandler(p)))
	s.AddTool(maskTool, util.ErrorGuard(maskHandler))
	s.AddTool(typesTool, util.ErrorGuard(entityTypesHandler))
}

func detectHandler(p *pipeline.Pipeline) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		arguments := request.Params.Arguments

		documentJSON, _ := arguments["document"].(string)
		text, _ := arguments["text"].(string)
		useLLM, _ := arguments["use_llm"].(bool)
		includeValues, _ := arguments["include_values"].(bool)

		var doc *pii.Document
		switch {
		case strings.TrimSpace(documentJSON) != "":
			decoded, err := ingest.DecodeDocument(strings.NewReader(documentJSON))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid document: %v", err)), nil
			}
			doc = decoded
		case strings.TrimSpace(text) != "":
			doc = ingest.ParseText(text)
		default:
			return mcp.NewToolResultError("either document or text must be provided"), nil
		}

		result, err := p.Process(ctx, doc, useLLM)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("detection failed: %v", err)), nil
		}
		metrics.UpdateSystemMetrics()

		if !includeValues {
			result.WithholdValues()
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func maskHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := request.Params.Arguments

	value, ok := arguments["value"].(string)
	if !ok {
		return mcp.NewToolResultError("value must be a string"), nil
	}
	typeName, ok := arguments["type"].(string)
	if !ok {
		return mcp.NewToolResultError("type must be a string"), nil
	}

	entityType, ok := pii.ParseEntityType(typeName)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown entity type %q", typeName)), nil
	}

	return mcp.NewToolResultText(pii.Mask(value, entityType)), nil
}

func entityTypesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	types := pii.AllEntityTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}
