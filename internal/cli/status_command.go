package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/commitlm/commitlm/internal/config"
	"github.com/commitlm/commitlm/internal/githooks"
	"github.com/commitlm/commitlm/internal/gitrepo"
	"github.com/commitlm/commitlm/internal/hardware"
	"github.com/commitlm/commitlm/internal/utils"
)

const (
	statusUse              = "status"
	statusShortDescription = "show the resolved configuration and host capabilities"
	statusLongDescription  = `Show the effective provider and model per task, the detected inference device,
the configuration file in use, and which git hooks are installed.`

	statusLineFormat    = "%-22s %s\n"
	statusAbsentMarker  = "(none)"
	statusHookInstalled = "installed"
	statusHookMissing   = "not installed"
	statusHookForeign   = "foreign script"
)

// createStatusCommand returns the status subcommand.
func createStatusCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   statusUse,
		Short: statusShortDescription,
		Long:  statusLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			environment, resolveError := resolveSettings(command.Context(), options, config.CommandLineOverrides{})
			if resolveError != nil {
				return resolveError
			}
			out := command.OutOrStdout()
			settings := environment.settings

			fmt.Fprintf(out, statusLineFormat, "version", utils.GetApplicationVersion())
			fmt.Fprintf(out, statusLineFormat, "configuration", describeConfigPath(environment.localConfigPath))
			fmt.Fprintf(out, statusLineFormat, "provider", settings.Provider)
			fmt.Fprintf(out, statusLineFormat, "model", settings.Model)
			fmt.Fprintf(out, statusLineFormat, "output directory", settings.OutputDirectory)
			fmt.Fprintf(out, statusLineFormat, "fallback to local", fmt.Sprintf("%t", settings.FallbackToLocal))
			for _, task := range []config.Task{config.TaskCommitMessage, config.TaskDocGeneration} {
				selection := settings.ForTask(task)
				if selection.Model == "" {
					if providerConfig, lookupError := settings.ProviderConfigFor(selection.Provider); lookupError == nil {
						selection.Model = providerConfig.Model
					}
				}
				fmt.Fprintf(out, statusLineFormat, string(task), selection.Provider+" / "+selection.Model)
			}

			resolvedDevice := hardware.ResolvePreference(settings.HuggingFace.Device)
			deviceDescription := string(resolvedDevice.Device) + " (" + resolvedDevice.DType + ")"
			if resolvedDevice.GPUName != "" {
				deviceDescription += " " + resolvedDevice.GPUName
			}
			fmt.Fprintf(out, statusLineFormat, "inference device", deviceDescription)

			printHookStatus(command.Context(), out, environment.repositoryRoot)
			return nil
		},
	}
}

func describeConfigPath(localConfigPath string) string {
	if localConfigPath == "" {
		return statusAbsentMarker
	}
	if _, statError := os.Stat(localConfigPath); statError != nil {
		return localConfigPath + " " + statusAbsentMarker
	}
	return localConfigPath
}

// printHookStatus reports per-hook installation state. Outside a repository the
// section is skipped entirely.
func printHookStatus(ctx context.Context, out io.Writer, repositoryRoot string) {
	if repositoryRoot == "" {
		return
	}
	hooksDirectory, hooksError := gitrepo.HooksDirectory(ctx, repositoryRoot)
	if hooksError != nil {
		return
	}
	for _, hookType := range githooks.HookTypes() {
		hookPath := filepath.Join(hooksDirectory, string(hookType))
		fmt.Fprintf(out, statusLineFormat, "hook "+string(hookType), describeHook(hookPath))
	}
}

func describeHook(hookPath string) string {
	content, readError := os.ReadFile(hookPath)
	if readError != nil {
		return statusHookMissing
	}
	if !strings.Contains(string(content), githooks.HookSignature) {
		return statusHookForeign
	}
	return statusHookInstalled
}
