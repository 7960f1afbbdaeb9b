// Package artifact derives collision-resistant filenames from commit messages
// and writes one documentation file per commit.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// slugMaximumLength bounds the message-derived part of the filename.
	slugMaximumLength = 50
	// emptySlugToken substitutes a slug that sanitizes down to nothing.
	emptySlugToken = "unnamed"
	// filenameFormat is commit_<slug>_<shortHash>.md; the hash suffix keeps
	// names unique even when two messages sanitize to the same slug, and is
	// never itself sanitized (git hashes are already a restricted alphabet).
	filenameFormat = "commit_%s_%s.md"

	artifactFilePermissions      = 0o644
	artifactDirectoryPermissions = 0o755
)

var (
	disallowedCharacters = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRuns       = regexp.MustCompile(`\s+`)
	hyphenRuns           = regexp.MustCompile(`-+`)
)

// Slugify normalizes a commit message into a filesystem-safe slug. The
// function is deterministic and pure: lowercase, strip everything that is not
// alphanumeric, whitespace, or a hyphen, collapse whitespace runs to one
// hyphen, collapse hyphen runs,
// truncate to 50 characters, trim trailing hyphens, and fall back to "unnamed"
// when nothing survives.
func Slugify(commitMessage string) string {
	slug := strings.ToLower(commitMessage)
	slug = disallowedCharacters.ReplaceAllString(slug, "")
	slug = whitespaceRuns.ReplaceAllString(slug, "-")
	slug = hyphenRuns.ReplaceAllString(slug, "-")
	if len(slug) > slugMaximumLength {
		slug = slug[:slugMaximumLength]
	}
	slug = strings.TrimRight(slug, "-")
	if slug == "" {
		return emptySlugToken
	}
	return slug
}

// Filename renders the artifact filename for a commit message and short hash.
func Filename(commitMessage string, shortHash string) string {
	return fmt.Sprintf(filenameFormat, Slugify(commitMessage), shortHash)
}

// Document is one documentation artifact ready to be persisted.
type Document struct {
	ShortHash      string
	CommitMessage  string
	RepositoryName string
	GeneratedAt    time.Time
	Body           string
}

// Write persists the document under outputDirectory and returns the full path.
// The directory is created when missing.
func Write(outputDirectory string, document Document) (string, error) {
	if createError := os.MkdirAll(outputDirectory, artifactDirectoryPermissions); createError != nil {
		return "", fmt.Errorf("create output directory %s: %w", outputDirectory, createError)
	}
	destinationPath := filepath.Join(outputDirectory, Filename(document.CommitMessage, document.ShortHash))

	var content strings.Builder
	content.WriteString(fmt.Sprintf("# %s\n\n", firstLine(document.CommitMessage)))
	content.WriteString(fmt.Sprintf("- Commit: `%s`\n", document.ShortHash))
	content.WriteString(fmt.Sprintf("- Repository: %s\n", document.RepositoryName))
	content.WriteString(fmt.Sprintf("- Generated: %s\n\n", document.GeneratedAt.Format(time.RFC3339)))
	content.WriteString(strings.TrimSpace(document.Body))
	content.WriteString("\n")

	if writeError := os.WriteFile(destinationPath, []byte(content.String()), artifactFilePermissions); writeError != nil {
		return "", fmt.Errorf("write artifact %s: %w", destinationPath, writeError)
	}
	return destinationPath, nil
}

func firstLine(message string) string {
	trimmedMessage := strings.TrimSpace(message)
	if newlineIndex := strings.IndexByte(trimmedMessage, '\n'); newlineIndex >= 0 {
		return strings.TrimSpace(trimmedMessage[:newlineIndex])
	}
	return trimmedMessage
}
