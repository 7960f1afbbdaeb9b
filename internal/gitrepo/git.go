// Package gitrepo wraps the git plumbing the tool needs: repository discovery,
// diff extraction, and commit metadata.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Git runs one git command rooted at repositoryRoot and returns its stdout.
func Git(ctx context.Context, repositoryRoot string, arguments ...string) (string, error) {
	fullArguments := append([]string{"-C", repositoryRoot}, arguments...)
	command := exec.CommandContext(ctx, "git", fullArguments...)
	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	command.Stdout = &standardOutput
	command.Stderr = &standardError
	if runError := command.Run(); runError != nil {
		return "", fmt.Errorf("git %v failed: %v\n%s", arguments, runError, standardError.String())
	}
	return standardOutput.String(), nil
}

// FindRepositoryRoot resolves the top-level directory of the repository
// containing startDirectory.
func FindRepositoryRoot(ctx context.Context, startDirectory string) (string, error) {
	output, gitError := Git(ctx, startDirectory, "rev-parse", "--show-toplevel")
	if gitError != nil {
		return "", fmt.Errorf("not inside a git repository: %w", gitError)
	}
	return strings.TrimSpace(output), nil
}

// StagedDiff returns the diff of the index against HEAD, the content a commit
// in progress is about to record.
func StagedDiff(ctx context.Context, repositoryRoot string) (string, error) {
	return Git(ctx, repositoryRoot, "diff", "--cached", "--no-color")
}

// HeadCommitDiff returns the diff introduced by the just-created HEAD commit,
// not the working tree. Works for the root commit as well, which has no parent.
func HeadCommitDiff(ctx context.Context, repositoryRoot string) (string, error) {
	return Git(ctx, repositoryRoot, "show", "--format=", "--no-color", "HEAD")
}

// HeadShortHash returns the abbreviated hash of the HEAD commit.
func HeadShortHash(ctx context.Context, repositoryRoot string) (string, error) {
	output, gitError := Git(ctx, repositoryRoot, "rev-parse", "--short", "HEAD")
	if gitError != nil {
		return "", gitError
	}
	return strings.TrimSpace(output), nil
}

// HeadMessage returns the full message of the HEAD commit.
func HeadMessage(ctx context.Context, repositoryRoot string) (string, error) {
	output, gitError := Git(ctx, repositoryRoot, "log", "-1", "--pretty=%B")
	if gitError != nil {
		return "", gitError
	}
	return strings.TrimSpace(output), nil
}

// HooksDirectory resolves the active hooks path, honoring core.hooksPath.
func HooksDirectory(ctx context.Context, repositoryRoot string) (string, error) {
	output, gitError := Git(ctx, repositoryRoot, "rev-parse", "--git-path", "hooks")
	if gitError != nil {
		return "", gitError
	}
	hooksPath := strings.TrimSpace(output)
	if !filepath.IsAbs(hooksPath) {
		hooksPath = filepath.Join(repositoryRoot, hooksPath)
	}
	return hooksPath, nil
}

// RepositoryName derives a display name from the repository root directory.
func RepositoryName(repositoryRoot string) string {
	return filepath.Base(repositoryRoot)
}
