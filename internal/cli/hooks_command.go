package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/commitlm/commitlm/internal/config"
	"github.com/commitlm/commitlm/internal/githooks"
	"github.com/commitlm/commitlm/internal/gitrepo"
	"github.com/commitlm/commitlm/internal/llm"
	"github.com/commitlm/commitlm/internal/utils"
)

const (
	installHooksUse              = "install-hooks"
	installHooksShortDescription = "install the git hooks into the enclosing repository"
	installHooksLongDescription  = `Install the prepare-commit-msg and post-commit hooks into the repository's
hooks directory. Existing hooks written by other tools are left alone unless
--force is given, in which case they are backed up and replaced.`
	uninstallHooksUse              = "uninstall-hooks"
	uninstallHooksShortDescription = "remove the git hooks this tool installed"

	hookForceFlagName        = "force"
	hookForceFlagDescription = "back up and replace existing hooks not written by this tool"

	hookActionFormat  = "%s: %s\n"
	hookRemovedFormat = "Removed %s\n"
	noHooksRemoved    = "No hooks to remove."

	hookUse              = "hook"
	hookShortDescription = "run a git hook pipeline (invoked by the installed hook scripts)"
)

// createInstallHooksCommand returns the install-hooks subcommand.
func createInstallHooksCommand(options *rootOptions) *cobra.Command {
	var force bool

	installCommand := &cobra.Command{
		Use:   installHooksUse,
		Short: installHooksShortDescription,
		Long:  installHooksLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			installer, installerError := hookInstaller(command.Context(), options)
			if installerError != nil {
				return installerError
			}
			record, installError := installer.Install(force)
			if installError != nil {
				return installError
			}
			for _, installedHook := range record.Hooks {
				fmt.Fprintf(command.OutOrStdout(), hookActionFormat, installedHook.Path, installedHook.Action)
			}
			return nil
		},
	}
	installCommand.Flags().BoolVar(&force, hookForceFlagName, false, hookForceFlagDescription)
	return installCommand
}

// createUninstallHooksCommand returns the uninstall-hooks subcommand.
func createUninstallHooksCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   uninstallHooksUse,
		Short: uninstallHooksShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			installer, installerError := hookInstaller(command.Context(), options)
			if installerError != nil {
				return installerError
			}
			removedPaths, uninstallError := installer.Uninstall()
			if uninstallError != nil {
				return uninstallError
			}
			if len(removedPaths) == 0 {
				fmt.Fprintln(command.OutOrStdout(), noHooksRemoved)
				return nil
			}
			for _, removedPath := range removedPaths {
				fmt.Fprintf(command.OutOrStdout(), hookRemovedFormat, removedPath)
			}
			return nil
		},
	}
}

func hookInstaller(ctx context.Context, options *rootOptions) (*githooks.Installer, error) {
	repositoryRoot, rootError := gitrepo.FindRepositoryRoot(ctx, ".")
	if rootError != nil {
		return nil, rootError
	}
	hooksDirectory, hooksError := gitrepo.HooksDirectory(ctx, repositoryRoot)
	if hooksError != nil {
		return nil, hooksError
	}
	executablePath, executableError := os.Executable()
	if executableError != nil {
		return nil, fmt.Errorf("determine executable path: %w", executableError)
	}
	logger, loggerError := options.newLogger()
	if loggerError != nil {
		return nil, fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerError)
	}
	return githooks.NewInstaller(hooksDirectory, executablePath, logger), nil
}

// createHookCommand returns the hidden hook parent command the installed
// scripts invoke. Both children absorb every failure and exit 0: a generation
// problem must never abort a git operation.
func createHookCommand(options *rootOptions) *cobra.Command {
	hookCommand := &cobra.Command{
		Use:    hookUse,
		Short:  hookShortDescription,
		Hidden: true,
	}
	hookCommand.AddCommand(
		&cobra.Command{
			Use:  string(githooks.HookPrepareCommitMessage),
			Args: cobra.NoArgs,
			RunE: func(command *cobra.Command, arguments []string) error {
				runner, runnerError := hookRunner(command.Context(), options)
				if runnerError != nil {
					return nil
				}
				return runner.PrepareCommitMessage(command.Context(), command.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:  string(githooks.HookPostCommit),
			Args: cobra.NoArgs,
			RunE: func(command *cobra.Command, arguments []string) error {
				runner, runnerError := hookRunner(command.Context(), options)
				if runnerError != nil {
					return nil
				}
				return runner.PostCommit(command.Context())
			},
		},
	)
	return hookCommand
}

// hookRunner assembles the hook-time pipeline. Any assembly failure is logged
// to stderr and swallowed by the callers.
func hookRunner(ctx context.Context, options *rootOptions) (*githooks.Runner, error) {
	logger, loggerError := options.newLogger()
	if loggerError != nil {
		return nil, loggerError
	}
	environment, resolveError := resolveSettings(ctx, options, config.CommandLineOverrides{})
	if resolveError != nil {
		logger.Warn("configuration resolution failed, hook is a no-op: " + resolveError.Error())
		return nil, resolveError
	}
	if environment.repositoryRoot == utils.EmptyString {
		logger.Warn("hook invoked outside a git repository")
		return nil, fmt.Errorf("not inside a git repository")
	}
	factory := llm.NewFactory(environment.settings, logger)
	return githooks.NewRunner(environment.repositoryRoot, environment.settings, factory.Generate, logger), nil
}
