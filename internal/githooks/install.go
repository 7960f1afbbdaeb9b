package githooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	hookFilePermissions = 0o755
	backupSuffix        = ".commitlm-backup"
)

// HookAction records what installation did to one hook path.
type HookAction string

const (
	// ActionInstalled means the script was freshly written or refreshed.
	ActionInstalled HookAction = "installed"
	// ActionBackedUp means a foreign hook was moved aside before installing.
	ActionBackedUp HookAction = "backed up and replaced"
	// ActionUntouched means an identical script was already in place.
	ActionUntouched HookAction = "untouched"
)

// InstalledHook describes the outcome for one hook.
type InstalledHook struct {
	Type   HookType
	Path   string
	Action HookAction
}

// InstallationRecord is the transient result of one install run.
type InstallationRecord struct {
	Hooks []InstalledHook
}

// HookConflictError reports a foreign hook script occupying a path this tool
// needs. Overwriting it silently could break an unrelated workflow, so the
// caller must re-run with force to proceed.
type HookConflictError struct {
	Path string
}

// Error implements the error interface.
func (hookConflictError *HookConflictError) Error() string {
	return fmt.Sprintf("a hook not generated by commitlm already exists at %s; re-run with --force to back it up and replace it", hookConflictError.Path)
}

// Installer writes and removes hook scripts under one hooks directory.
type Installer struct {
	hooksDirectory string
	executablePath string
	logger         *zap.Logger
}

// NewInstaller constructs an Installer targeting hooksDirectory. Scripts
// invoke the binary at executablePath.
func NewInstaller(hooksDirectory string, executablePath string, logger *zap.Logger) *Installer {
	return &Installer{
		hooksDirectory: hooksDirectory,
		executablePath: executablePath,
		logger:         logger,
	}
}

// Install writes both hook scripts. A foreign hook at either path refuses the
// installation unless force is set, in which case the foreign script is backed
// up next to the original before being replaced.
func (installer *Installer) Install(force bool) (InstallationRecord, error) {
	if createError := os.MkdirAll(installer.hooksDirectory, 0o755); createError != nil {
		return InstallationRecord{}, fmt.Errorf("create hooks directory %s: %w", installer.hooksDirectory, createError)
	}

	var record InstallationRecord
	for _, hookType := range HookTypes() {
		installedHook, installError := installer.installOne(hookType, force)
		if installError != nil {
			return InstallationRecord{}, installError
		}
		record.Hooks = append(record.Hooks, installedHook)
	}
	return record, nil
}

func (installer *Installer) installOne(hookType HookType, force bool) (InstalledHook, error) {
	hookPath := filepath.Join(installer.hooksDirectory, string(hookType))
	scriptContent, renderError := RenderScript(hookType, installer.executablePath)
	if renderError != nil {
		return InstalledHook{}, renderError
	}

	existingContent, readError := os.ReadFile(hookPath)
	switch {
	case readError == nil && string(existingContent) == scriptContent:
		return InstalledHook{Type: hookType, Path: hookPath, Action: ActionUntouched}, nil
	case readError == nil && !strings.Contains(string(existingContent), HookSignature):
		if !force {
			return InstalledHook{}, &HookConflictError{Path: hookPath}
		}
		backupPath := hookPath + backupSuffix
		if renameError := os.Rename(hookPath, backupPath); renameError != nil {
			return InstalledHook{}, fmt.Errorf("back up existing hook %s: %w", hookPath, renameError)
		}
		if installer.logger != nil {
			installer.logger.Warn("existing hook backed up", zap.String("hook", hookPath), zap.String("backup", backupPath))
		}
		if writeError := os.WriteFile(hookPath, []byte(scriptContent), hookFilePermissions); writeError != nil {
			return InstalledHook{}, fmt.Errorf("write hook %s: %w", hookPath, writeError)
		}
		return InstalledHook{Type: hookType, Path: hookPath, Action: ActionBackedUp}, nil
	case readError != nil && !os.IsNotExist(readError):
		return InstalledHook{}, fmt.Errorf("inspect hook %s: %w", hookPath, readError)
	default:
		// Fresh install, or refreshing an older script of our own.
		if writeError := os.WriteFile(hookPath, []byte(scriptContent), hookFilePermissions); writeError != nil {
			return InstalledHook{}, fmt.Errorf("write hook %s: %w", hookPath, writeError)
		}
		return InstalledHook{Type: hookType, Path: hookPath, Action: ActionInstalled}, nil
	}
}

// Uninstall removes the scripts this tool generated, leaving foreign hooks
// untouched. It returns the paths it removed.
func (installer *Installer) Uninstall() ([]string, error) {
	var removedPaths []string
	for _, hookType := range HookTypes() {
		hookPath := filepath.Join(installer.hooksDirectory, string(hookType))
		existingContent, readError := os.ReadFile(hookPath)
		if readError != nil {
			if os.IsNotExist(readError) {
				continue
			}
			return removedPaths, fmt.Errorf("inspect hook %s: %w", hookPath, readError)
		}
		if !strings.Contains(string(existingContent), HookSignature) {
			if installer.logger != nil {
				installer.logger.Warn("leaving foreign hook in place", zap.String("hook", hookPath))
			}
			continue
		}
		if removeError := os.Remove(hookPath); removeError != nil {
			return removedPaths, fmt.Errorf("remove hook %s: %w", hookPath, removeError)
		}
		removedPaths = append(removedPaths, hookPath)
	}
	return removedPaths, nil
}
