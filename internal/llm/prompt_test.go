package llm

import (
	"strings"
	"testing"
)

// TestPromptRendering verifies both task prompts embed the diff under the header.
func TestPromptRendering(testingHandle *testing.T) {
	const sampleDiff = "diff --git a/main.go b/main.go"

	commitPrompt := CommitMessagePrompt(sampleDiff)
	if !strings.Contains(commitPrompt, diffSectionHeader) || !strings.Contains(commitPrompt, sampleDiff) {
		testingHandle.Error("commit message prompt missing the diff section")
	}
	if !strings.Contains(commitPrompt, "conventional commit") {
		testingHandle.Error("commit message prompt missing the task instruction")
	}

	documentationPrompt := DocumentationPrompt(sampleDiff)
	if !strings.Contains(documentationPrompt, diffSectionHeader) || !strings.Contains(documentationPrompt, sampleDiff) {
		testingHandle.Error("documentation prompt missing the diff section")
	}
}

// TestTruncateDiff verifies small diffs pass through and oversized diffs are
// cut and flagged.
func TestTruncateDiff(testingHandle *testing.T) {
	const smallDiff = "one line change"
	passedThrough, truncated := TruncateDiff(smallDiff, 32768)
	if truncated || passedThrough != smallDiff {
		testingHandle.Errorf("small diff should pass through unchanged, got truncated=%t", truncated)
	}

	largeDiff := strings.Repeat("func added() {}\n", 4096)
	bounded, wasTruncated := TruncateDiff(largeDiff, 2048)
	if !wasTruncated {
		testingHandle.Fatal("oversized diff should be truncated")
	}
	if len(bounded) >= len(largeDiff) {
		testingHandle.Error("truncated diff should be shorter than the original")
	}
	if !strings.HasSuffix(bounded, truncationNotice) {
		testingHandle.Error("truncated diff should carry the truncation notice")
	}
}

// TestTruncateDiffTinyContext verifies contexts inside the reserve never truncate.
func TestTruncateDiffTinyContext(testingHandle *testing.T) {
	diff := strings.Repeat("x", 10000)
	passedThrough, truncated := TruncateDiff(diff, promptTokenReserve)
	if truncated || passedThrough != diff {
		testingHandle.Error("context within the reserve should not truncate")
	}
}

// TestStripCodeFences verifies fenced model answers are unwrapped.
func TestStripCodeFences(testingHandle *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain text", input: "feat: add parser", expected: "feat: add parser"},
		{name: "fenced text", input: "```\nfeat: add parser\n```", expected: "feat: add parser"},
		{name: "surrounding whitespace", input: "  fix: typo \n", expected: "fix: typo"},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(testingHandle *testing.T) {
			if cleaned := stripCodeFences(testCase.input); cleaned != testCase.expected {
				testingHandle.Errorf("unexpected result: got %q want %q", cleaned, testCase.expected)
			}
		})
	}
}
