package llm

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/commitlm/commitlm/internal/config"
	"github.com/commitlm/commitlm/internal/hardware"
	"github.com/commitlm/commitlm/internal/models"
)

const (
	inferenceScriptName  = "hf_generate.py"
	pythonExecutableName = "python3"
	pythonFallbackName   = "python"

	helperCacheDirectoryName = "commitlm"
	helperCacheSubdirectory  = "helpers"
)

//go:embed helpers/hf_generate.py
var embeddedInferenceHelper embed.FS

// LocalClient runs inference through an embedded Python helper driving
// transformers. The helper process carries the model-loading cost; the Go side
// resolves the hardware-appropriate invocation and recovers from out-of-memory
// by degrading to the next-smaller registered model.
type LocalClient struct {
	modelID          string
	servedModelID    string
	providerConfig   config.ProviderConfig
	device           hardware.ResolvedDevice
	pythonExecutable string
	helperDirectory  string
	logger           *zap.Logger
}

// NewLocalClient validates the model against the registry and prepares the
// helper invocation. Unknown model identifiers fail here, before any model
// loading is attempted.
func NewLocalClient(providerConfig config.ProviderConfig, modelID string, logger *zap.Logger) (*LocalClient, error) {
	if _, lookupError := models.Lookup(modelID); lookupError != nil {
		return nil, lookupError
	}
	pythonExecutable, detectError := detectPythonExecutable()
	if detectError != nil {
		return nil, detectError
	}
	return &LocalClient{
		modelID:          modelID,
		servedModelID:    modelID,
		providerConfig:   providerConfig,
		device:           hardware.ResolvePreference(providerConfig.Device),
		pythonExecutable: pythonExecutable,
		logger:           logger,
	}, nil
}

// ProviderName identifies the provider.
func (client *LocalClient) ProviderName() string {
	return config.ProviderHuggingFace
}

// ServedModel reports which model actually answered the last request, which
// differs from the configured one after out-of-memory degradation.
func (client *LocalClient) ServedModel() string {
	return client.servedModelID
}

// GenerateText sends the prompt through the local model and returns the text.
func (client *LocalClient) GenerateText(ctx context.Context, prompt string, params SamplingParams) (string, error) {
	return client.generateWithDegradation(ctx, prompt, params)
}

// GenerateDocumentation renders the documentation prompt for the diff and
// generates through the local model.
func (client *LocalClient) GenerateDocumentation(ctx context.Context, diff string, params SamplingParams) (string, error) {
	return client.generateWithDegradation(ctx, DocumentationPrompt(diff), params)
}

// generateWithDegradation walks the fixed degradation order on out-of-memory,
// retrying at most once per step. Non-memory errors stop the walk immediately.
func (client *LocalClient) generateWithDegradation(ctx context.Context, prompt string, params SamplingParams) (string, error) {
	currentModelID := client.modelID
	for {
		profile, lookupError := models.Lookup(currentModelID)
		if lookupError != nil {
			return "", lookupError
		}
		effective := models.ResolveVariant(profile, client.providerConfig.MemoryOptimization, models.YarnRequest{
			Enabled:          client.providerConfig.EnableYarn,
			RequestedContext: client.providerConfig.ExtendedContext,
		})

		boundedPrompt, truncated := TruncateDiff(prompt, effective.MaxContext)
		if truncated && client.logger != nil {
			client.logger.Warn("prompt truncated to fit model context", zap.String("model", currentModelID), zap.Int("context", effective.MaxContext))
		}

		generatedText, generationError := client.invokeHelper(ctx, effective, boundedPrompt, params)
		if generationError == nil {
			client.servedModelID = currentModelID
			return generatedText, nil
		}
		if !isOutOfMemory(generationError) {
			return "", generationError
		}

		exhaustion := &ResourceExhaustion{ModelID: currentModelID, Cause: generationError}
		smallerModelID, hasSmaller := models.NextSmallerModel(currentModelID)
		if !hasSmaller {
			return "", exhaustion
		}
		if client.logger != nil {
			client.logger.Warn("out of memory, degrading to smaller model",
				zap.String("from", currentModelID), zap.String("to", smallerModelID))
		}
		currentModelID = smallerModelID
	}
}

// invokeHelper runs one helper process: flags describe the resolved invocation,
// the prompt arrives on stdin, and the generated text leaves on stdout.
func (client *LocalClient) invokeHelper(ctx context.Context, effective models.EffectiveModelConfig, prompt string, params SamplingParams) (string, error) {
	helperDirectory, materializeError := client.ensureHelperScripts()
	if materializeError != nil {
		return "", materializeError
	}

	helperArguments := []string{
		filepath.Join(helperDirectory, inferenceScriptName),
		"--model", effective.HuggingFaceID,
		"--device", string(client.device.Device),
		"--dtype", effective.DType,
		"--max-context", strconv.Itoa(effective.MaxContext),
		"--chat-template", string(effective.ChatTemplate),
		"--max-new-tokens", strconv.Itoa(params.MaxOutputTokens),
		"--temperature", strconv.FormatFloat(params.Temperature, 'f', -1, 64),
	}
	if effective.Quantize8Bit {
		helperArguments = append(helperArguments, "--load-in-8bit")
	}
	if effective.RopeScalingFactor > 0 {
		helperArguments = append(helperArguments, "--rope-scaling", strconv.FormatFloat(effective.RopeScalingFactor, 'f', -1, 64))
	}

	command := exec.CommandContext(ctx, client.pythonExecutable, helperArguments...)
	command.Stdin = strings.NewReader(prompt)
	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	command.Stdout = &standardOutput
	command.Stderr = &standardError

	runError := command.Run()
	if ctx.Err() != nil {
		return "", fmt.Errorf("inference helper interrupted: %w", ctx.Err())
	}
	if runError != nil {
		return "", fmt.Errorf("inference helper error: %v, stderr: %s", runError, strings.TrimSpace(standardError.String()))
	}

	generatedText := strings.TrimSpace(standardOutput.String())
	if generatedText == "" {
		return "", fmt.Errorf("inference helper produced empty output, stderr: %s", strings.TrimSpace(standardError.String()))
	}
	return stripCodeFences(generatedText), nil
}

func (client *LocalClient) ensureHelperScripts() (string, error) {
	if client.helperDirectory != "" {
		return client.helperDirectory, nil
	}
	helperDirectory, directoryError := helperCacheDirectory()
	if directoryError != nil {
		return "", directoryError
	}
	scriptContent, readError := fs.ReadFile(embeddedInferenceHelper, filepath.Join("helpers", inferenceScriptName))
	if readError != nil {
		return "", fmt.Errorf("read embedded helper %s: %w", inferenceScriptName, readError)
	}
	scriptPath := filepath.Join(helperDirectory, inferenceScriptName)
	if writeError := os.WriteFile(scriptPath, scriptContent, 0o700); writeError != nil {
		return "", fmt.Errorf("write helper %s: %w", inferenceScriptName, writeError)
	}
	client.helperDirectory = helperDirectory
	return helperDirectory, nil
}

// helperCacheDirectory returns the per-user directory the helper script is
// materialized into. A fixed location keeps repeated invocations from
// accumulating temp dirs; the script is rewritten on first use per process so
// upgrades replace stale copies.
func helperCacheDirectory() (string, error) {
	cacheRoot, cacheError := os.UserCacheDir()
	if cacheError != nil {
		temporaryDirectory, createError := os.MkdirTemp("", "commitlm-helpers-*")
		if createError != nil {
			return "", fmt.Errorf("create helper dir: %w", createError)
		}
		return temporaryDirectory, nil
	}
	helperDirectory := filepath.Join(cacheRoot, helperCacheDirectoryName, helperCacheSubdirectory)
	if createError := os.MkdirAll(helperDirectory, 0o755); createError != nil {
		return "", fmt.Errorf("create helper dir %s: %w", helperDirectory, createError)
	}
	return helperDirectory, nil
}

func detectPythonExecutable() (string, error) {
	for _, candidateName := range []string{pythonExecutableName, pythonFallbackName} {
		if executablePath, lookupError := exec.LookPath(candidateName); lookupError == nil {
			return executablePath, nil
		}
	}
	return "", errors.New("no python executable found for local inference; install python3 or select a remote provider")
}

// isOutOfMemory classifies helper failures that the degradation walk can
// recover from. Matches both CUDA and host allocator messages.
func isOutOfMemory(generationError error) bool {
	message := strings.ToLower(generationError.Error())
	return strings.Contains(message, "out of memory") || strings.Contains(message, "memoryerror")
}

var _ Client = (*LocalClient)(nil)
