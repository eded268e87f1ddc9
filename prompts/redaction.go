package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func RegisterRedactionPrompts(s *server.MCPServer) {
	prompt := mcp.NewPrompt("redaction_review",
		mcp.WithPromptDescription("Review a scanned document for personal and health information before it is shared"),
		mcp.WithArgument("document_name", mcp.ArgumentDescription("The name of the document being reviewed")),
		mcp.WithArgument("audience", mcp.ArgumentDescription("Who the redacted document will be shared with")),
	)
	s.AddPrompt(prompt, redactionReviewHandler)
}

func redactionReviewHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	documentName := request.Params.Arguments["document_name"]
	if documentName == "" {
		documentName = "the document"
	}
	audience := request.Params.Arguments["audience"]
	if audience == "" {
		audience = "an external party"
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Redaction review of %s", documentName),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf("Use the pii_detect tool with use_llm enabled on %s. "+
						"List every entity that must be masked before sharing with %s, grouped by type, using only the redacted values. "+
						"Call out false positives and any entity whose type or value was corrected during validation.", documentName, audience),
				},
			},
		},
	}, nil
}
