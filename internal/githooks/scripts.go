// Package githooks renders, installs, and runs the two git hooks: a
// prepare-commit-msg hook that drafts a commit message and a post-commit hook
// that writes a documentation artifact. Generation failures are never allowed
// to block a git operation.
package githooks

import (
	"fmt"
)

// HookType names one supported git lifecycle hook.
type HookType string

const (
	// HookPrepareCommitMessage runs before the commit editor opens.
	HookPrepareCommitMessage HookType = "prepare-commit-msg"
	// HookPostCommit runs after a commit completes.
	HookPostCommit HookType = "post-commit"
)

// HookSignature marks scripts generated by this tool. Install refuses to touch
// scripts without it, and uninstall removes only scripts carrying it.
const HookSignature = "# commitlm generated hook"

// HookTypes lists every hook this tool manages.
func HookTypes() []HookType {
	return []HookType{HookPrepareCommitMessage, HookPostCommit}
}

const prepareCommitMessageScriptFormat = `#!/bin/sh
%s: prepare-commit-msg
# Drafts a commit message from the staged diff. Stdout of the generation
# command becomes the message template; stderr passes through to the user.
# This hook must never block a commit, so every failure path exits 0.

COMMIT_MSG_FILE="$1"
COMMIT_SOURCE="$2"

case "$COMMIT_SOURCE" in
  message|merge|squash|commit) exit 0 ;;
esac

GENERATED="$(%q hook prepare-commit-msg)" || exit 0
if [ -n "$GENERATED" ]; then
  printf '%%s\n\n' "$GENERATED" | cat - "$COMMIT_MSG_FILE" > "$COMMIT_MSG_FILE.commitlm" &&
    mv "$COMMIT_MSG_FILE.commitlm" "$COMMIT_MSG_FILE"
fi
exit 0
`

const postCommitScriptFormat = `#!/bin/sh
%s: post-commit
# Generates a documentation artifact for the commit that just completed.
# All output goes to stderr; a missing document is acceptable, so every
# failure path exits 0.

%q hook post-commit 1>&2 || true
exit 0
`

// RenderScript produces the shell entry point for a hook type. Rendering is a
// pure function of its inputs so script content is testable without touching a
// repository.
func RenderScript(hookType HookType, executablePath string) (string, error) {
	switch hookType {
	case HookPrepareCommitMessage:
		return fmt.Sprintf(prepareCommitMessageScriptFormat, HookSignature, executablePath), nil
	case HookPostCommit:
		return fmt.Sprintf(postCommitScriptFormat, HookSignature, executablePath), nil
	default:
		return "", fmt.Errorf("unsupported hook type %q", hookType)
	}
}
