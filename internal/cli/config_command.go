package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/commitlm/commitlm/internal/config"
	"github.com/commitlm/commitlm/internal/gitrepo"
	"github.com/commitlm/commitlm/internal/utils"
)

const (
	configUse              = "config"
	configShortDescription = "read and write persisted configuration values"
	configGetUse           = "get [key]"
	configGetShort         = "print one configuration value, or all of them"
	configSetUse           = "set <key> <value>"
	configSetShort         = "write one configuration value"
	configUsageExample     = `  # Switch the documentation task to Gemini
  commitlm config set doc_generation.provider gemini

  # Inspect the local model block
  commitlm config get huggingface`

	configValueFormat = "%s = %v\n"
	configSetFormat   = "Set %s in %s\n"
)

// createConfigCommand returns the config subcommand with its get/set children.
func createConfigCommand(options *rootOptions) *cobra.Command {
	configCommand := &cobra.Command{
		Use:     configUse,
		Short:   configShortDescription,
		Example: configUsageExample,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	configCommand.AddCommand(createConfigGetCommand(options), createConfigSetCommand(options))
	return configCommand
}

func createConfigGetCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   configGetUse,
		Short: configGetShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			configPath, pathError := persistedConfigPath(command, options)
			if pathError != nil {
				return pathError
			}
			if len(arguments) == 0 {
				allValues, readError := config.GetAllConfigurationValues(configPath)
				if readError != nil {
					return readError
				}
				printConfigurationMap(command, utils.EmptyString, allValues)
				return nil
			}
			value, readError := config.GetConfigurationKey(configPath, arguments[0])
			if readError != nil {
				return readError
			}
			fmt.Fprintf(command.OutOrStdout(), configValueFormat, arguments[0], value)
			return nil
		},
	}
}

func createConfigSetCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   configSetUse,
		Short: configSetShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			configPath, pathError := persistedConfigPath(command, options)
			if pathError != nil {
				return pathError
			}
			if setError := config.SetConfigurationKey(configPath, arguments[0], arguments[1]); setError != nil {
				return setError
			}
			fmt.Fprintf(command.OutOrStdout(), configSetFormat, arguments[0], configPath)
			return nil
		},
	}
}

// persistedConfigPath locates the repository-local configuration file the
// get/set commands operate on. Resolution failures (for example a missing API
// key) do not matter here; only the discovered path does, and it is anchored at
// the repository root either way.
func persistedConfigPath(command *cobra.Command, options *rootOptions) (string, error) {
	environment, resolveError := resolveSettings(command.Context(), options, config.CommandLineOverrides{})
	if resolveError == nil {
		return environment.localConfigPath, nil
	}
	workingDirectory, rootError := gitrepo.FindRepositoryRoot(command.Context(), ".")
	if rootError != nil {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return "", fmt.Errorf("determine working directory: %w", workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}
	_, localConfigPath, loadError := config.LoadFileSettings(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: options.configFilePath,
	})
	if loadError != nil {
		return "", loadError
	}
	return localConfigPath, nil
}

func printConfigurationMap(command *cobra.Command, prefix string, values map[string]interface{}) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fullKey := key
		if prefix != utils.EmptyString {
			fullKey = prefix + "." + key
		}
		if nested, isMap := values[key].(map[string]interface{}); isMap {
			printConfigurationMap(command, fullKey, nested)
			continue
		}
		fmt.Fprintf(command.OutOrStdout(), configValueFormat, fullKey, values[key])
	}
}
