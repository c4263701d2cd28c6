package source

import (
	"fmt"
)

// BuildCloneCommand constructs the git arguments for a shallow clone of
// locator into dir. An empty revision clones the remote HEAD.
func BuildCloneCommand(locator, revision, dir string) ([]string, error) {
	if locator == "" {
		return nil, fmt.Errorf("repository locator is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("clone directory is required")
	}

	args := []string{"clone", "--depth", "1", "--single-branch", "--no-tags"}
	if revision != "" {
		args = append(args, "--branch", revision)
	}
	args = append(args, "--", locator, dir)

	return args, nil
}
