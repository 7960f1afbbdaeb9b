package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/commitlm/commitlm/internal/config"
	"github.com/commitlm/commitlm/internal/models"
	"github.com/commitlm/commitlm/internal/utils"
)

const (
	initUse              = "init"
	initShortDescription = "create a configuration file"
	initLongDescription  = `Create a ` + utils.ConfigFileName + ` configuration file in the current directory.
Without flags an interactive form asks for the provider, model, and API key.`
	initUsageExample = `  # Interactive setup
  commitlm init

  # Non-interactive setup for a remote provider
  commitlm init --provider gemini --api-key "$GEMINI_API_KEY"`

	initProviderFlagName        = "provider"
	initProviderFlagDescription = "generation provider (huggingface, gemini, anthropic, openai)"
	initModelFlagName           = "model"
	initModelFlagDescription    = "model identifier for the selected provider"
	initAPIKeyFlagName          = "api-key"
	initAPIKeyFlagDescription   = "API key persisted for a remote provider"
	initOutputFlagName          = "output-dir"
	initOutputFlagDescription   = "directory receiving documentation artifacts"
	initFallbackFlagName        = "fallback"
	initFallbackFlagDescription = "fall back to the local model when a remote provider fails"
	initForceFlagName           = "force"
	initForceFlagDescription    = "replace an existing configuration file"

	initWrittenFormat = "Configuration written to %s\n"
)

// createInitCommand returns the init subcommand.
func createInitCommand(options *rootOptions) *cobra.Command {
	var values config.InitValues
	var force bool

	initCommand := &cobra.Command{
		Use:     initUse,
		Short:   initShortDescription,
		Long:    initLongDescription,
		Example: initUsageExample,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			if values.Provider == utils.EmptyString {
				if formError := runInitForm(&values); formError != nil {
					return formError
				}
			}
			destinationPath, initializeError := config.InitializeConfiguration(config.InitOptions{
				Force:  force,
				Values: values,
			})
			if initializeError != nil {
				return initializeError
			}
			fmt.Fprintf(command.OutOrStdout(), initWrittenFormat, destinationPath)
			return nil
		},
	}
	initCommand.Flags().StringVar(&values.Provider, initProviderFlagName, utils.EmptyString, initProviderFlagDescription)
	initCommand.Flags().StringVar(&values.Model, initModelFlagName, utils.EmptyString, initModelFlagDescription)
	initCommand.Flags().StringVar(&values.APIKey, initAPIKeyFlagName, utils.EmptyString, initAPIKeyFlagDescription)
	initCommand.Flags().StringVar(&values.OutputDirectory, initOutputFlagName, utils.EmptyString, initOutputFlagDescription)
	initCommand.Flags().BoolVar(&values.FallbackToLocal, initFallbackFlagName, false, initFallbackFlagDescription)
	initCommand.Flags().BoolVar(&force, initForceFlagName, false, initForceFlagDescription)
	return initCommand
}

// runInitForm gathers init answers interactively. The model select adapts to
// the chosen provider: local providers pick from the registry, remote providers
// get a free-form input prefilled with the provider default.
func runInitForm(values *config.InitValues) error {
	providerForm := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Generation provider").
			Options(
				huh.NewOption("Local HuggingFace model (no API key)", config.ProviderHuggingFace),
				huh.NewOption("Google Gemini", config.ProviderGemini),
				huh.NewOption("Anthropic Claude", config.ProviderAnthropic),
				huh.NewOption("OpenAI", config.ProviderOpenAI),
			).
			Value(&values.Provider),
	))
	if formError := providerForm.Run(); formError != nil {
		return formError
	}

	var detailFields []huh.Field
	if values.Provider == config.ProviderHuggingFace {
		localOptions := make([]huh.Option[string], 0, len(models.AvailableModelIDs()))
		for _, modelID := range models.AvailableModelIDs() {
			label := modelID
			if profile, lookupError := models.Lookup(modelID); lookupError == nil {
				label = fmt.Sprintf("%s (%s)", modelID, profile.Description)
			}
			localOptions = append(localOptions, huh.NewOption(label, modelID))
		}
		values.Model = config.DefaultLocalModel
		detailFields = append(detailFields,
			huh.NewSelect[string]().Title("Local model").Options(localOptions...).Value(&values.Model),
		)
	} else {
		detailFields = append(detailFields,
			huh.NewInput().Title("Model").Value(&values.Model),
			huh.NewInput().Title("API key (leave empty to use the environment variable)").EchoMode(huh.EchoModePassword).Value(&values.APIKey),
		)
	}
	if values.OutputDirectory == utils.EmptyString {
		values.OutputDirectory = config.DefaultOutputDirectory
	}
	detailFields = append(detailFields,
		huh.NewInput().Title("Documentation output directory").Value(&values.OutputDirectory),
	)
	if values.Provider != config.ProviderHuggingFace {
		detailFields = append(detailFields,
			huh.NewConfirm().Title("Fall back to the local model when the provider fails?").Value(&values.FallbackToLocal),
		)
	}
	return huh.NewForm(huh.NewGroup(detailFields...)).Run()
}
