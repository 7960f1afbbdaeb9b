package llm

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const (
	commitMessageSystemPrompt = `You are an expert software engineer writing conventional commit messages.
Given a git diff, respond with a single commit message: a type prefix
(feat, fix, docs, style, refactor, test, chore), an optional scope, and a
concise imperative summary under 72 characters. Add a short body only when
the change needs explanation. Respond with the commit message alone.`

	documentationSystemPrompt = `You are a technical writer documenting a code change.
Given a git diff, produce concise markdown documentation: a one-paragraph
summary of what changed and why it matters, followed by notable details
(new behavior, API changes, migration notes). Do not restate the diff.`

	diffSectionHeader = "Git diff:"

	// truncationEncoding is the tiktoken encoding used to measure diffs. The
	// measurement only bounds prompt size, so one encoding serves all providers.
	truncationEncoding = "cl100k_base"

	// truncationNotice is appended to a diff that was cut to fit the context.
	truncationNotice = "\n\n[diff truncated to fit the model context]"

	// approximateCharactersPerToken sizes the fallback heuristic when the
	// tokenizer cannot be initialized.
	approximateCharactersPerToken = 4

	// promptTokenReserve leaves room for instructions and the generated output.
	promptTokenReserve = 1024
)

// CommitMessagePrompt renders the full prompt for the commit message task.
func CommitMessagePrompt(diff string) string {
	return commitMessageSystemPrompt + "\n\n" + diffSectionHeader + "\n" + diff
}

// DocumentationPrompt renders the full prompt for the documentation task.
func DocumentationPrompt(diff string) string {
	return documentationSystemPrompt + "\n\n" + diffSectionHeader + "\n" + diff
}

// TruncateDiff bounds the diff to fit a model context of contextLength tokens,
// keeping a reserve for instructions and output. It reports whether truncation
// occurred. Token counting is best-effort: when the tokenizer is unavailable a
// character-length heuristic applies instead.
func TruncateDiff(diff string, contextLength int) (string, bool) {
	if contextLength <= promptTokenReserve {
		return diff, false
	}
	budget := contextLength - promptTokenReserve

	encoding, encodingError := tiktoken.GetEncoding(truncationEncoding)
	if encodingError != nil || encoding == nil {
		return truncateByCharacters(diff, budget)
	}

	tokenIdentifiers := encoding.Encode(diff, nil, nil)
	if len(tokenIdentifiers) <= budget {
		return diff, false
	}
	truncated := encoding.Decode(tokenIdentifiers[:budget])
	return truncated + truncationNotice, true
}

func truncateByCharacters(diff string, tokenBudget int) (string, bool) {
	characterBudget := tokenBudget * approximateCharactersPerToken
	runes := []rune(diff)
	if len(runes) <= characterBudget {
		return diff, false
	}
	return string(runes[:characterBudget]) + truncationNotice, true
}

// stripCodeFences drops the markdown fences some models wrap answers in.
func stripCodeFences(generated string) string {
	cleaned := strings.TrimSpace(generated)
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
