package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/commitlm/commitlm/internal/config"
	"github.com/commitlm/commitlm/internal/models"
)

const stubResponseText = "feat: stubbed commit message"

// localProviderConfig returns a provider configuration pinned to the CPU so no
// hardware probing happens during tests.
func localProviderConfig() config.ProviderConfig {
	return config.ProviderConfig{
		MaxOutputTokens:    128,
		Temperature:        0.2,
		Device:             "cpu",
		MemoryOptimization: true,
	}
}

// isolateUserCache points the helper cache at a throwaway directory.
func isolateUserCache(testingHandle *testing.T) string {
	cacheDirectory := testingHandle.TempDir()
	testingHandle.Setenv("HOME", cacheDirectory)
	testingHandle.Setenv("XDG_CACHE_HOME", cacheDirectory)
	return cacheDirectory
}

// installPythonStub places a fake python3 on an exclusive PATH. The stub logs
// every invocation to logPath and fails with failMessage on stderr whenever its
// arguments match failPattern (a shell case pattern).
func installPythonStub(testingHandle *testing.T, logPath string, failPattern string, failMessage string) {
	script := fmt.Sprintf(`#!/bin/sh
echo "$@" >> %q
case "$@" in
%s)
	echo %q >&2
	exit 1
	;;
esac
echo %q
`, logPath, failPattern, failMessage, stubResponseText)

	stubDirectory := testingHandle.TempDir()
	stubPath := filepath.Join(stubDirectory, "python3")
	if writeError := os.WriteFile(stubPath, []byte(script), 0o755); writeError != nil {
		testingHandle.Fatalf("failed to write python stub: %v", writeError)
	}
	testingHandle.Setenv("PATH", stubDirectory)
}

// readInvocationLog returns one entry per helper invocation, in order.
func readInvocationLog(testingHandle *testing.T, logPath string) []string {
	content, readError := os.ReadFile(logPath)
	if readError != nil {
		testingHandle.Fatalf("failed to read invocation log: %v", readError)
	}
	return strings.Split(strings.TrimSpace(string(content)), "\n")
}

// TestNewLocalClientUnknownModel verifies unregistered models fail during
// construction, before any inference process is started.
func TestNewLocalClientUnknownModel(testingHandle *testing.T) {
	isolateUserCache(testingHandle)
	logPath := filepath.Join(testingHandle.TempDir(), "invocations.log")
	installPythonStub(testingHandle, logPath, "never-matches", "unused")

	client, constructionError := NewLocalClient(localProviderConfig(), "no-such-model", zap.NewNop())
	if client != nil {
		testingHandle.Fatal("expected no client for an unknown model")
	}
	var unknownModelError *models.UnknownModelError
	if !errors.As(constructionError, &unknownModelError) {
		testingHandle.Fatalf("expected UnknownModelError, got %v", constructionError)
	}
	if unknownModelError.ModelID != "no-such-model" {
		testingHandle.Errorf("unexpected model in error: %q", unknownModelError.ModelID)
	}
	if _, statError := os.Stat(logPath); !os.IsNotExist(statError) {
		testingHandle.Error("no inference process should run for an unknown model")
	}
}

// TestGenerateTextDegradesOnOutOfMemory verifies one out-of-memory failure
// moves to the next model in the degradation order and the result reports the
// model that actually served.
func TestGenerateTextDegradesOnOutOfMemory(testingHandle *testing.T) {
	isolateUserCache(testingHandle)
	logPath := filepath.Join(testingHandle.TempDir(), "invocations.log")
	installPythonStub(testingHandle, logPath, "*Coder-3B*", "torch.cuda.OutOfMemoryError: CUDA out of memory")

	client, constructionError := NewLocalClient(localProviderConfig(), "qwen2.5-coder-3b", zap.NewNop())
	if constructionError != nil {
		testingHandle.Fatalf("NewLocalClient failed: %v", constructionError)
	}

	generatedText, generationError := client.GenerateText(context.Background(), "prompt", SamplingParams{MaxOutputTokens: 128})
	if generationError != nil {
		testingHandle.Fatalf("GenerateText failed: %v", generationError)
	}
	if generatedText != stubResponseText {
		testingHandle.Errorf("unexpected text: %q", generatedText)
	}
	if served := client.ServedModel(); served != "qwen2.5-coder-1.5b" {
		testingHandle.Errorf("served model should be the degraded one, got %q", served)
	}

	invocations := readInvocationLog(testingHandle, logPath)
	if len(invocations) != 2 {
		testingHandle.Fatalf("expected exactly one retry, got %d invocations", len(invocations))
	}
	if !strings.Contains(invocations[0], "Qwen2.5-Coder-3B-Instruct") {
		testingHandle.Errorf("first attempt should use the configured model: %q", invocations[0])
	}
	if !strings.Contains(invocations[1], "Qwen2.5-Coder-1.5B-Instruct") {
		testingHandle.Errorf("retry should use the next smaller model: %q", invocations[1])
	}
}

// TestGenerateTextExhaustsDegradationOrder verifies persistent memory pressure
// walks the whole order, one attempt per step, and surfaces ResourceExhaustion
// for the terminal model.
func TestGenerateTextExhaustsDegradationOrder(testingHandle *testing.T) {
	isolateUserCache(testingHandle)
	logPath := filepath.Join(testingHandle.TempDir(), "invocations.log")
	installPythonStub(testingHandle, logPath, "*", "RuntimeError: CUDA out of memory")

	client, constructionError := NewLocalClient(localProviderConfig(), "qwen2.5-coder-3b", zap.NewNop())
	if constructionError != nil {
		testingHandle.Fatalf("NewLocalClient failed: %v", constructionError)
	}

	_, generationError := client.GenerateText(context.Background(), "prompt", SamplingParams{MaxOutputTokens: 128})
	var exhaustion *ResourceExhaustion
	if !errors.As(generationError, &exhaustion) {
		testingHandle.Fatalf("expected ResourceExhaustion, got %v", generationError)
	}
	if exhaustion.ModelID != "tinyllama-1.1b" {
		testingHandle.Errorf("terminal exhaustion should name the smallest model, got %q", exhaustion.ModelID)
	}

	expectedOrder := []string{
		"Qwen2.5-Coder-3B-Instruct",
		"Qwen2.5-Coder-1.5B-Instruct",
		"Qwen2.5-Coder-0.5B-Instruct",
		"TinyLlama-1.1B-Chat-v1.0",
	}
	invocations := readInvocationLog(testingHandle, logPath)
	if len(invocations) != len(expectedOrder) {
		testingHandle.Fatalf("expected %d attempts, got %d", len(expectedOrder), len(invocations))
	}
	for position, expectedModel := range expectedOrder {
		if !strings.Contains(invocations[position], expectedModel) {
			testingHandle.Errorf("attempt %d should use %s: %q", position, expectedModel, invocations[position])
		}
	}
}

// TestGenerateTextNonMemoryErrorStops verifies failures outside the memory
// classification never trigger degradation.
func TestGenerateTextNonMemoryErrorStops(testingHandle *testing.T) {
	isolateUserCache(testingHandle)
	logPath := filepath.Join(testingHandle.TempDir(), "invocations.log")
	installPythonStub(testingHandle, logPath, "*", "ValueError: unsupported dtype")

	client, constructionError := NewLocalClient(localProviderConfig(), "qwen2.5-coder-3b", zap.NewNop())
	if constructionError != nil {
		testingHandle.Fatalf("NewLocalClient failed: %v", constructionError)
	}

	_, generationError := client.GenerateText(context.Background(), "prompt", SamplingParams{MaxOutputTokens: 128})
	if generationError == nil {
		testingHandle.Fatal("expected the helper failure to surface")
	}
	var exhaustion *ResourceExhaustion
	if errors.As(generationError, &exhaustion) {
		testingHandle.Fatal("a non-memory error must not classify as ResourceExhaustion")
	}
	if invocations := readInvocationLog(testingHandle, logPath); len(invocations) != 1 {
		testingHandle.Errorf("a non-memory error must stop the walk, got %d invocations", len(invocations))
	}
}

// TestIsOutOfMemory verifies the stderr classification boundary.
func TestIsOutOfMemory(testingHandle *testing.T) {
	testCases := []struct {
		name     string
		message  string
		expected bool
	}{
		{name: "cuda allocator", message: "inference helper error: exit status 1, stderr: CUDA out of memory", expected: true},
		{name: "host allocator", message: "inference helper error: exit status 1, stderr: MemoryError", expected: true},
		{name: "unrelated failure", message: "inference helper error: exit status 1, stderr: ValueError", expected: false},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(testingHandle *testing.T) {
			if classified := isOutOfMemory(errors.New(testCase.message)); classified != testCase.expected {
				testingHandle.Errorf("isOutOfMemory(%q) = %t, want %t", testCase.message, classified, testCase.expected)
			}
		})
	}
}

// TestEnsureHelperScriptsUsesUserCache verifies the helper lands in a stable
// per-user location and repeated calls reuse it.
func TestEnsureHelperScriptsUsesUserCache(testingHandle *testing.T) {
	cacheDirectory := isolateUserCache(testingHandle)
	logPath := filepath.Join(testingHandle.TempDir(), "invocations.log")
	installPythonStub(testingHandle, logPath, "never-matches", "unused")

	client, constructionError := NewLocalClient(localProviderConfig(), "qwen2.5-coder-1.5b", zap.NewNop())
	if constructionError != nil {
		testingHandle.Fatalf("NewLocalClient failed: %v", constructionError)
	}

	firstDirectory, firstError := client.ensureHelperScripts()
	if firstError != nil {
		testingHandle.Fatalf("ensureHelperScripts failed: %v", firstError)
	}
	if !strings.HasPrefix(firstDirectory, cacheDirectory) {
		testingHandle.Errorf("helper directory %q should live under the user cache %q", firstDirectory, cacheDirectory)
	}
	if _, statError := os.Stat(filepath.Join(firstDirectory, inferenceScriptName)); statError != nil {
		testingHandle.Errorf("helper script missing: %v", statError)
	}

	secondDirectory, secondError := client.ensureHelperScripts()
	if secondError != nil {
		testingHandle.Fatalf("second ensureHelperScripts failed: %v", secondError)
	}
	if secondDirectory != firstDirectory {
		testingHandle.Errorf("helper directory should be reused: %q then %q", firstDirectory, secondDirectory)
	}
}
