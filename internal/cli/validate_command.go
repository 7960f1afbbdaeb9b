package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/commitlm/commitlm/internal/config"
	"github.com/commitlm/commitlm/internal/llm"
	"github.com/commitlm/commitlm/internal/models"
	"github.com/commitlm/commitlm/internal/utils"
)

const (
	validateUse              = "validate"
	validateShortDescription = "check the configuration and test the model connection"
	validateLongDescription  = `Resolve the configuration, verify each selected provider can actually run
(registered local models and an available Python interpreter for huggingface,
a configured API key for remote providers), and issue a short test generation
through the active model.`

	validationFailedMessage    = "configuration is not usable"
	validateTestPrompt         = "Say 'Hello from commitlm!'"
	validateTestMaxTokens      = 50
	validateTestPreviewLength  = 50
	validateSpinnerSuffix      = " connecting to the model..."
	validateOutputDirWillBe    = "will be created: "
	validateOutputDirExists    = "exists: "
	validateConnectionLabel    = "model connection"
	validateTestResponseLabel  = "test response"
	validateOutputDirCheckName = "output directory"
)

var (
	checkPassStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).SetString("ok")
	checkFailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).SetString("fail")
	checkLabelStyle = lipgloss.NewStyle().Bold(true)
)

// validationCheck is one named pass/fail outcome.
type validationCheck struct {
	Label  string
	Passed bool
	Detail string
}

// createValidateCommand returns the validate subcommand.
func createValidateCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   validateUse,
		Short: validateShortDescription,
		Long:  validateLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			environment, resolveError := resolveSettings(command.Context(), options, config.CommandLineOverrides{})
			if resolveError != nil {
				printCheck(command.OutOrStdout(), validationCheck{Label: "configuration", Detail: resolveError.Error()})
				return fmt.Errorf(validationFailedMessage)
			}

			checks := []validationCheck{{Label: "configuration", Passed: true, Detail: environment.localConfigPath}}
			checks = append(checks, providerChecks(environment.settings)...)
			checks = append(checks, outputDirectoryCheck(environment))

			prerequisitesPassed := true
			for _, check := range checks {
				if !check.Passed {
					prerequisitesPassed = false
				}
			}
			if prerequisitesPassed {
				checks = append(checks, connectionChecks(command, options, environment.settings)...)
			}

			allPassed := true
			for _, check := range checks {
				printCheck(command.OutOrStdout(), check)
				if !check.Passed {
					allPassed = false
				}
			}
			if !allPassed {
				return fmt.Errorf(validationFailedMessage)
			}
			return nil
		},
	}
}

// providerChecks verifies every provider a task can select, deduplicated.
func providerChecks(settings config.Settings) []validationCheck {
	seenProviders := map[string]bool{}
	var checks []validationCheck
	selections := []config.TaskSelection{{Provider: settings.Provider, Model: settings.Model}}
	for _, task := range []config.Task{config.TaskCommitMessage, config.TaskDocGeneration} {
		selections = append(selections, settings.ForTask(task))
	}
	for _, selection := range selections {
		if seenProviders[selection.Provider] {
			continue
		}
		seenProviders[selection.Provider] = true
		checks = append(checks, checkProvider(settings, selection)...)
	}
	return checks
}

func checkProvider(settings config.Settings, selection config.TaskSelection) []validationCheck {
	providerConfig, lookupError := settings.ProviderConfigFor(selection.Provider)
	if lookupError != nil {
		return []validationCheck{{Label: "provider " + selection.Provider, Detail: lookupError.Error()}}
	}
	model := selection.Model
	if model == "" {
		model = providerConfig.Model
	}

	if selection.Provider == config.ProviderHuggingFace {
		var checks []validationCheck
		if _, registryError := models.Lookup(model); registryError != nil {
			checks = append(checks, validationCheck{Label: "local model " + model, Detail: registryError.Error()})
		} else {
			checks = append(checks, validationCheck{Label: "local model " + model, Passed: true})
		}
		if pythonPath, pythonError := findPythonInterpreter(); pythonError != nil {
			checks = append(checks, validationCheck{Label: "python interpreter", Detail: "python3 or python not found on PATH"})
		} else {
			checks = append(checks, validationCheck{Label: "python interpreter", Passed: true, Detail: pythonPath})
		}
		return checks
	}

	if providerConfig.APIKey == "" {
		return []validationCheck{{
			Label:  selection.Provider + " api key",
			Detail: "not configured (config file or environment variable)",
		}}
	}
	return []validationCheck{{Label: selection.Provider + " api key", Passed: true}}
}

// outputDirectoryCheck reports whether the artifact directory already exists.
// A missing directory still passes since Write creates it on demand.
func outputDirectoryCheck(environment resolvedEnvironment) validationCheck {
	outputDirectory := environment.settings.OutputDirectory
	if !filepath.IsAbs(outputDirectory) && environment.repositoryRoot != utils.EmptyString {
		outputDirectory = filepath.Join(environment.repositoryRoot, outputDirectory)
	}
	if _, statError := os.Stat(outputDirectory); statError != nil {
		return validationCheck{Label: validateOutputDirCheckName, Passed: true, Detail: validateOutputDirWillBe + outputDirectory}
	}
	return validationCheck{Label: validateOutputDirCheckName, Passed: true, Detail: validateOutputDirExists + outputDirectory}
}

// connectionChecks builds the active client and issues one short generation.
func connectionChecks(command *cobra.Command, options *rootOptions, settings config.Settings) []validationCheck {
	logger, loggerError := options.newLogger()
	if loggerError != nil {
		return []validationCheck{{Label: validateConnectionLabel, Detail: loggerError.Error()}}
	}
	defer logger.Sync()

	client, clientError := llm.NewFactory(settings, logger).ClientFor(config.TaskCommitMessage)
	if clientError != nil {
		return []validationCheck{{Label: validateConnectionLabel, Detail: clientError.Error()}}
	}

	progressSpinner := spinner.New(spinner.CharSets[14], generateSpinnerInterval, spinner.WithWriter(command.ErrOrStderr()))
	progressSpinner.Suffix = validateSpinnerSuffix
	progressSpinner.Start()
	testResponse, generationError := client.GenerateText(command.Context(), validateTestPrompt, llm.SamplingParams{MaxOutputTokens: validateTestMaxTokens})
	progressSpinner.Stop()

	if generationError != nil {
		return []validationCheck{{Label: validateConnectionLabel, Detail: generationError.Error()}}
	}
	if strings.TrimSpace(testResponse) == utils.EmptyString {
		return []validationCheck{{Label: validateConnectionLabel, Detail: "no response received"}}
	}
	return []validationCheck{
		{Label: validateConnectionLabel, Passed: true, Detail: client.ProviderName()},
		{Label: validateTestResponseLabel, Passed: true, Detail: previewResponse(testResponse)},
	}
}

func previewResponse(response string) string {
	flattened := strings.Join(strings.Fields(response), " ")
	if len(flattened) > validateTestPreviewLength {
		return flattened[:validateTestPreviewLength] + "..."
	}
	return flattened
}

func findPythonInterpreter() (string, error) {
	if path, lookupError := exec.LookPath("python3"); lookupError == nil {
		return path, nil
	}
	return exec.LookPath("python")
}

func printCheck(out io.Writer, check validationCheck) {
	status := checkFailStyle.String()
	if check.Passed {
		status = checkPassStyle.String()
	}
	line := fmt.Sprintf("%-6s %s", status, checkLabelStyle.Render(check.Label))
	if check.Detail != "" {
		line += "  " + check.Detail
	}
	fmt.Fprintln(out, line)
}
