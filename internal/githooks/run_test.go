package githooks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/commitlm/commitlm/internal/config"
	"github.com/commitlm/commitlm/internal/llm"
)

// initTestRepository creates a repository with one commit and returns its root.
func initTestRepository(testingHandle *testing.T) string {
	testingHandle.Helper()
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testingHandle.Skip("git executable not available")
	}
	repositoryRoot := testingHandle.TempDir()
	runGit(testingHandle, repositoryRoot, "init")
	runGit(testingHandle, repositoryRoot, "config", "user.email", "test@example.com")
	runGit(testingHandle, repositoryRoot, "config", "user.name", "Test User")
	writeRepositoryFile(testingHandle, repositoryRoot, "main.go", "package main\n")
	runGit(testingHandle, repositoryRoot, "add", ".")
	runGit(testingHandle, repositoryRoot, "commit", "-m", "feat: initial commit")
	return repositoryRoot
}

func runGit(testingHandle *testing.T, repositoryRoot string, arguments ...string) {
	testingHandle.Helper()
	command := exec.Command("git", append([]string{"-C", repositoryRoot}, arguments...)...)
	if output, runError := command.CombinedOutput(); runError != nil {
		testingHandle.Fatalf("git %v failed: %v\n%s", arguments, runError, output)
	}
}

func writeRepositoryFile(testingHandle *testing.T, repositoryRoot string, name string, content string) {
	testingHandle.Helper()
	if writeError := os.WriteFile(filepath.Join(repositoryRoot, name), []byte(content), 0o644); writeError != nil {
		testingHandle.Fatalf("failed to write %s: %v", name, writeError)
	}
}

func runnerSettings() config.Settings {
	return config.Settings{
		Provider:        config.ProviderHuggingFace,
		Model:           "qwen2.5-coder-1.5b",
		OutputDirectory: "docs",
		HookTimeout:     30 * time.Second,
	}
}

// TestPrepareCommitMessageWritesDraft verifies the staged diff flows into the
// generator and the draft lands on the writer.
func TestPrepareCommitMessageWritesDraft(testingHandle *testing.T) {
	repositoryRoot := initTestRepository(testingHandle)
	writeRepositoryFile(testingHandle, repositoryRoot, "main.go", "package main\n\nfunc added() {}\n")
	runGit(testingHandle, repositoryRoot, "add", ".")

	var receivedDiff string
	generate := func(ctx context.Context, request llm.GenerationRequest) (llm.GenerationResult, error) {
		receivedDiff = request.Diff
		if request.Task != config.TaskCommitMessage {
			testingHandle.Errorf("unexpected task: %s", request.Task)
		}
		return llm.GenerationResult{Text: "feat: add helper function\n"}, nil
	}
	runner := NewRunner(repositoryRoot, runnerSettings(), generate, zap.NewNop())

	var output bytes.Buffer
	if runError := runner.PrepareCommitMessage(context.Background(), &output); runError != nil {
		testingHandle.Fatalf("PrepareCommitMessage returned an error: %v", runError)
	}
	if output.String() != "feat: add helper function\n" {
		testingHandle.Errorf("unexpected output: %q", output.String())
	}
	if !strings.Contains(receivedDiff, "added()") {
		testingHandle.Error("staged diff not passed to the generator")
	}
}

// TestPrepareCommitMessageEmptyDiffIsSilent verifies a clean index produces no
// output and no generation call.
func TestPrepareCommitMessageEmptyDiffIsSilent(testingHandle *testing.T) {
	repositoryRoot := initTestRepository(testingHandle)

	generate := func(ctx context.Context, request llm.GenerationRequest) (llm.GenerationResult, error) {
		testingHandle.Fatal("generation must not run for an empty diff")
		return llm.GenerationResult{}, nil
	}
	runner := NewRunner(repositoryRoot, runnerSettings(), generate, zap.NewNop())

	var output bytes.Buffer
	if runError := runner.PrepareCommitMessage(context.Background(), &output); runError != nil {
		testingHandle.Fatalf("PrepareCommitMessage returned an error: %v", runError)
	}
	if output.Len() != 0 {
		testingHandle.Errorf("output should stay empty, got %q", output.String())
	}
}

// TestPrepareCommitMessageAbsorbsGenerationFailure verifies a failing generator
// never surfaces an error or writes output.
func TestPrepareCommitMessageAbsorbsGenerationFailure(testingHandle *testing.T) {
	repositoryRoot := initTestRepository(testingHandle)
	writeRepositoryFile(testingHandle, repositoryRoot, "main.go", "package main\n\nvar x = 1\n")
	runGit(testingHandle, repositoryRoot, "add", ".")

	generate := func(ctx context.Context, request llm.GenerationRequest) (llm.GenerationResult, error) {
		return llm.GenerationResult{}, errors.New("provider unavailable")
	}
	runner := NewRunner(repositoryRoot, runnerSettings(), generate, zap.NewNop())

	var output bytes.Buffer
	if runError := runner.PrepareCommitMessage(context.Background(), &output); runError != nil {
		testingHandle.Fatalf("failure must be absorbed, got %v", runError)
	}
	if output.Len() != 0 {
		testingHandle.Errorf("no output expected on failure, got %q", output.String())
	}
}

// TestPrepareCommitMessageHonorsHookTimeout verifies a stuck generator cannot
// hold the hook past its deadline.
func TestPrepareCommitMessageHonorsHookTimeout(testingHandle *testing.T) {
	repositoryRoot := initTestRepository(testingHandle)
	writeRepositoryFile(testingHandle, repositoryRoot, "main.go", "package main\n\nvar y = 2\n")
	runGit(testingHandle, repositoryRoot, "add", ".")

	settings := runnerSettings()
	settings.HookTimeout = 50 * time.Millisecond
	generate := func(ctx context.Context, request llm.GenerationRequest) (llm.GenerationResult, error) {
		<-ctx.Done()
		return llm.GenerationResult{}, ctx.Err()
	}
	runner := NewRunner(repositoryRoot, settings, generate, zap.NewNop())

	var output bytes.Buffer
	started := time.Now()
	if runError := runner.PrepareCommitMessage(context.Background(), &output); runError != nil {
		testingHandle.Fatalf("timeout must be absorbed, got %v", runError)
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		testingHandle.Fatalf("hook did not return near the deadline, took %v", elapsed)
	}
	if output.Len() != 0 {
		testingHandle.Errorf("no output expected after a timeout, got %q", output.String())
	}
}

// TestPostCommitWritesArtifact verifies the documentation file lands under the
// configured directory with the commit metadata.
func TestPostCommitWritesArtifact(testingHandle *testing.T) {
	repositoryRoot := initTestRepository(testingHandle)

	generate := func(ctx context.Context, request llm.GenerationRequest) (llm.GenerationResult, error) {
		if request.Task != config.TaskDocGeneration {
			testingHandle.Errorf("unexpected task: %s", request.Task)
		}
		return llm.GenerationResult{Text: "Adds the initial project skeleton."}, nil
	}
	runner := NewRunner(repositoryRoot, runnerSettings(), generate, zap.NewNop())

	if runError := runner.PostCommit(context.Background()); runError != nil {
		testingHandle.Fatalf("PostCommit returned an error: %v", runError)
	}

	entries, readError := os.ReadDir(filepath.Join(repositoryRoot, "docs"))
	if readError != nil {
		testingHandle.Fatalf("output directory missing: %v", readError)
	}
	if len(entries) != 1 {
		testingHandle.Fatalf("expected one artifact, got %d", len(entries))
	}
	artifactName := entries[0].Name()
	if !strings.HasPrefix(artifactName, "commit_feat-initial-commit_") || !strings.HasSuffix(artifactName, ".md") {
		testingHandle.Errorf("unexpected artifact name: %q", artifactName)
	}
}

// TestPostCommitAbsorbsGenerationFailure verifies no artifact appears and no
// error escapes when generation fails.
func TestPostCommitAbsorbsGenerationFailure(testingHandle *testing.T) {
	repositoryRoot := initTestRepository(testingHandle)

	generate := func(ctx context.Context, request llm.GenerationRequest) (llm.GenerationResult, error) {
		return llm.GenerationResult{}, errors.New("provider unavailable")
	}
	runner := NewRunner(repositoryRoot, runnerSettings(), generate, zap.NewNop())

	if runError := runner.PostCommit(context.Background()); runError != nil {
		testingHandle.Fatalf("failure must be absorbed, got %v", runError)
	}
	if _, statError := os.Stat(filepath.Join(repositoryRoot, "docs")); !os.IsNotExist(statError) {
		testingHandle.Error("no artifact directory expected after a failure")
	}
}
