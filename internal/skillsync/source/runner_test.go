package source

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExecuteCommand_Success(t *testing.T) {
	ctx := context.Background()
	out, err := ExecuteCommand(ctx, "echo", []string{"hello"})
	if err != nil {
		t.Fatalf("ExecuteCommand failed: %v", err)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("Expected 'hello' in output, got: %q", out)
	}
}

func TestExecuteCommand_Failure(t *testing.T) {
	ctx := context.Background()
	_, err := ExecuteCommand(ctx, "ls", []string{"/non/existent/path/999"})
	if err == nil {
		t.Error("Expected error for failing command, got nil")
	}
	if err != nil && !strings.Contains(err.Error(), "ls failed") {
		t.Errorf("Expected command name in error, got: %v", err)
	}
}

func TestExecuteCommand_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()

	_, err := ExecuteCommand(ctx, "sleep", []string{"1"})
	if err == nil {
		t.Error("Expected timeout error, got nil")
	}
}
