// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/commitlm/commitlm/internal/config"
	"github.com/commitlm/commitlm/internal/gitrepo"
	"github.com/commitlm/commitlm/internal/utils"
)

const (
	rootUse              = "commitlm"
	rootShortDescription = "commitlm command line interface"
	rootLongDescription  = `commitlm turns git diffs into commit messages and documentation.
It drafts a conventional commit message from the staged diff, writes one
documentation artifact per commit, and runs either a local HuggingFace model
or a remote provider (gemini, anthropic, openai).
Use install-hooks to wire it into a repository's git lifecycle.`

	configFlagName         = "config"
	configFlagDescription  = "path to a configuration file (default: " + utils.ConfigFileName + " at the repository root)"
	verboseFlagName        = "verbose"
	verboseFlagDescription = "enable verbose output"
	debugFlagName          = "debug"
	debugFlagDescription   = "enable debug logging"
	versionFlagName        = "version"
	versionFlagDescription = "display application version"
	versionTemplate        = "commitlm version: %s\n"
)

// rootOptions carries the persistent flag values shared by every subcommand.
type rootOptions struct {
	configFilePath string
	verbose        bool
	debug          bool
}

// newLogger builds the per-command logger honoring the verbose and debug flags.
func (options *rootOptions) newLogger() (*zap.Logger, error) {
	return utils.NewApplicationLogger(options.verbose || options.debug)
}

// Execute runs the commitlm application.
func Execute() error {
	rootCommand := createRootCommand()
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand() *cobra.Command {
	var showVersion bool
	options := &rootOptions{}

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if showVersion {
				fmt.Printf(versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
		},
	}
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&options.configFilePath, configFlagName, utils.EmptyString, configFlagDescription)
	rootCommand.PersistentFlags().BoolVar(&options.verbose, verboseFlagName, false, verboseFlagDescription)
	rootCommand.PersistentFlags().BoolVar(&options.debug, debugFlagName, false, debugFlagDescription)
	rootCommand.AddCommand(
		createInitCommand(options),
		createValidateCommand(options),
		createStatusCommand(options),
		createGenerateCommand(options),
		createConfigCommand(options),
		createInstallHooksCommand(options),
		createUninstallHooksCommand(options),
		createHookCommand(options),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// resolvedEnvironment bundles everything a command needs after configuration
// resolution: the settings, the repository root (empty outside a repository),
// and the path of the repository-local configuration file.
type resolvedEnvironment struct {
	settings        config.Settings
	repositoryRoot  string
	localConfigPath string
}

// resolveSettings loads the persisted configuration relative to the enclosing
// repository root and merges it with flag overrides and environment API keys.
// A .env file next to the working directory is loaded first when present so
// provider keys can live outside the shell profile.
func resolveSettings(ctx context.Context, options *rootOptions, overrides config.CommandLineOverrides) (resolvedEnvironment, error) {
	_ = godotenv.Load()

	repositoryRoot, rootError := gitrepo.FindRepositoryRoot(ctx, ".")
	workingDirectory := repositoryRoot
	if rootError != nil {
		repositoryRoot = utils.EmptyString
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return resolvedEnvironment{}, fmt.Errorf("determine working directory: %w", workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}

	persisted, localConfigPath, loadError := config.LoadFileSettings(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: options.configFilePath,
	})
	if loadError != nil {
		return resolvedEnvironment{}, loadError
	}

	settings, resolveError := config.Resolve(overrides, persisted, config.EnvironmentFromProcess(os.LookupEnv))
	if resolveError != nil {
		return resolvedEnvironment{}, resolveError
	}

	return resolvedEnvironment{
		settings:        settings,
		repositoryRoot:  repositoryRoot,
		localConfigPath: localConfigPath,
	}, nil
}
