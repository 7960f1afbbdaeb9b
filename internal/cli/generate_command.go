package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/commitlm/commitlm/internal/config"
	"github.com/commitlm/commitlm/internal/gitrepo"
	"github.com/commitlm/commitlm/internal/llm"
	"github.com/commitlm/commitlm/internal/utils"
)

const (
	generateUse              = "generate [diff]"
	generateShortDescription = "generate a commit message or documentation from a diff"
	generateLongDescription  = `Generate text from a git diff. By default the staged diff of the enclosing
repository feeds a commit message. The diff can also be passed as an argument
or read from a file with --file ("-" for standard input); --task switches to
documentation output.`
	generateUsageExample = `  # Commit message for the staged changes
  commitlm generate

  # Documentation for a saved diff, copied to the clipboard
  commitlm generate --file changes.diff --task doc_generation --copy`

	generateFileFlagName            = "file"
	generateFileFlagDescription     = "read the diff from a file instead of the staged changes (- for stdin)"
	generateOutputFlagName          = "output"
	generateOutputFlagDescription   = "write the generated text to a file instead of stdout"
	generateProviderFlagName        = "provider"
	generateProviderFlagDescription = "override the configured provider for this run"
	generateModelFlagName           = "model"
	generateModelFlagDescription    = "override the configured model for this run"
	generateTaskFlagName            = "task"
	generateTaskFlagDescription     = "generation task: commit_message or doc_generation"
	generateCopyFlagName            = "copy"
	generateCopyFlagDescription     = "copy the generated text to the system clipboard"

	generateSpinnerSuffix    = " generating..."
	generateSpinnerInterval  = 100 * time.Millisecond
	emptyDiffMessage         = "nothing to generate: the diff is empty"
	stdinDiffMarker          = "-"
	generatedToFileFormat    = "Generated text written to %s\n"
	copiedToClipboardMessage = "Copied to clipboard."
)

// generateOptions stores the generate command flag values.
type generateOptions struct {
	diffFilePath    string
	outputFilePath  string
	overrideProvide string
	overrideModel   string
	taskName        string
	copyToClipboard bool
}

// createGenerateCommand returns the generate subcommand.
func createGenerateCommand(options *rootOptions) *cobra.Command {
	var generateConfiguration generateOptions

	generateCommand := &cobra.Command{
		Use:     generateUse,
		Short:   generateShortDescription,
		Long:    generateLongDescription,
		Example: generateUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runGenerate(command, options, generateConfiguration, arguments)
		},
	}
	generateCommand.Flags().StringVar(&generateConfiguration.diffFilePath, generateFileFlagName, utils.EmptyString, generateFileFlagDescription)
	generateCommand.Flags().StringVar(&generateConfiguration.outputFilePath, generateOutputFlagName, utils.EmptyString, generateOutputFlagDescription)
	generateCommand.Flags().StringVar(&generateConfiguration.overrideProvide, generateProviderFlagName, utils.EmptyString, generateProviderFlagDescription)
	generateCommand.Flags().StringVar(&generateConfiguration.overrideModel, generateModelFlagName, utils.EmptyString, generateModelFlagDescription)
	generateCommand.Flags().StringVar(&generateConfiguration.taskName, generateTaskFlagName, string(config.TaskCommitMessage), generateTaskFlagDescription)
	generateCommand.Flags().BoolVar(&generateConfiguration.copyToClipboard, generateCopyFlagName, false, generateCopyFlagDescription)
	return generateCommand
}

func runGenerate(command *cobra.Command, options *rootOptions, generateConfiguration generateOptions, arguments []string) error {
	task, taskError := parseTask(generateConfiguration.taskName)
	if taskError != nil {
		return taskError
	}

	environment, resolveError := resolveSettings(command.Context(), options, config.CommandLineOverrides{
		Provider: generateConfiguration.overrideProvide,
		Model:    generateConfiguration.overrideModel,
	})
	if resolveError != nil {
		return resolveError
	}

	diff, diffError := readDiff(command, environment, generateConfiguration, arguments)
	if diffError != nil {
		return diffError
	}
	if strings.TrimSpace(diff) == utils.EmptyString {
		return fmt.Errorf(emptyDiffMessage)
	}

	logger, loggerError := options.newLogger()
	if loggerError != nil {
		return fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerError)
	}
	defer logger.Sync()

	factory := llm.NewFactory(environment.settings, logger)

	progressSpinner := spinner.New(spinner.CharSets[14], generateSpinnerInterval, spinner.WithWriter(command.ErrOrStderr()))
	progressSpinner.Suffix = generateSpinnerSuffix
	progressSpinner.Start()
	result, generationError := factory.Generate(command.Context(), llm.GenerationRequest{Task: task, Diff: diff})
	progressSpinner.Stop()
	if generationError != nil {
		return generationError
	}

	if result.FellBackToLocal {
		logger.Warn("remote provider failed, result produced by local fallback",
			zap.String("provider", result.Provider), zap.String("model", result.Model))
	}

	return emitGeneratedText(command, generateConfiguration, result.Text)
}

func parseTask(taskName string) (config.Task, error) {
	switch config.Task(taskName) {
	case config.TaskCommitMessage, config.TaskDocGeneration:
		return config.Task(taskName), nil
	default:
		return "", fmt.Errorf("unknown task %q: expected %s or %s", taskName, config.TaskCommitMessage, config.TaskDocGeneration)
	}
}

// readDiff sources the diff from the flag-selected file, stdin, the positional
// argument, or the staged changes of the enclosing repository.
func readDiff(command *cobra.Command, environment resolvedEnvironment, generateConfiguration generateOptions, arguments []string) (string, error) {
	switch {
	case generateConfiguration.diffFilePath == stdinDiffMarker:
		content, readError := io.ReadAll(command.InOrStdin())
		if readError != nil {
			return "", fmt.Errorf("read diff from stdin: %w", readError)
		}
		return string(content), nil
	case generateConfiguration.diffFilePath != utils.EmptyString:
		content, readError := os.ReadFile(generateConfiguration.diffFilePath)
		if readError != nil {
			return "", fmt.Errorf("read diff from %s: %w", generateConfiguration.diffFilePath, readError)
		}
		return string(content), nil
	case len(arguments) > 0:
		return arguments[0], nil
	default:
		if environment.repositoryRoot == utils.EmptyString {
			return "", fmt.Errorf("not inside a git repository and no --%s provided", generateFileFlagName)
		}
		return gitrepo.StagedDiff(command.Context(), environment.repositoryRoot)
	}
}

func emitGeneratedText(command *cobra.Command, generateConfiguration generateOptions, text string) error {
	trimmedText := strings.TrimSpace(text)
	if generateConfiguration.outputFilePath != utils.EmptyString {
		if writeError := os.WriteFile(generateConfiguration.outputFilePath, []byte(trimmedText+"\n"), 0o644); writeError != nil {
			return fmt.Errorf("write generated text to %s: %w", generateConfiguration.outputFilePath, writeError)
		}
		fmt.Fprintf(command.ErrOrStderr(), generatedToFileFormat, generateConfiguration.outputFilePath)
	} else {
		fmt.Fprintln(command.OutOrStdout(), trimmedText)
	}
	if generateConfiguration.copyToClipboard {
		if copyError := clipboard.WriteAll(trimmedText); copyError != nil {
			return fmt.Errorf("copy to clipboard: %w", copyError)
		}
		fmt.Fprintln(command.ErrOrStderr(), copiedToClipboardMessage)
	}
	return nil
}
