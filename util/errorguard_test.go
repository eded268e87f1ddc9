package util

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestErrorGuardRecoversPanics(t *testing.T) {
	guarded := ErrorGuard(func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("nil map write")
	})

	result, err := guarded(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("expected panic to become a result, got error %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatalf("expected error result, got %+v", result)
	}
}

func TestErrorGuardPassesThrough(t *testing.T) {
	guarded := ErrorGuard(func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	})

	result, err := guarded(context.Background(), mcp.CallToolRequest{})
	if err != nil || result.IsError {
		t.Fatalf("unexpected result %+v, %v", result, err)
	}
}
