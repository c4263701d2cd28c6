package source

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, command string, args []string) (string, error)

// ExecuteCommand runs a command with arguments and captures stdout/stderr.
func ExecuteCommand(ctx context.Context, command string, args []string) (string, error) {
	log.Debug().Str("command", command).Strs("args", args).Msg("Executing command")

	cmd := exec.CommandContext(ctx, command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := stdout.String()

	if err != nil {
		return output, fmt.Errorf("%s failed: %w: %s", command, err, strings.TrimSpace(stderr.String()))
	}

	return output, nil
}
