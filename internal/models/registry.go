// Package models holds the static registry of local model profiles and resolves
// a profile plus a memory-optimization choice into an effective model
// configuration, including the YaRN context-scaling computation.
package models

import (
	"fmt"
	"sort"
	"strings"
)

// ChatTemplate identifies the conversation format a local model expects.
// Remote providers receive the raw rendered prompt and never use these.
type ChatTemplate string

const (
	// TemplateQwen is the ChatML-style template used by the Qwen family.
	TemplateQwen ChatTemplate = "qwen"
	// TemplatePhi is the instruct template used by the Phi family.
	TemplatePhi ChatTemplate = "phi"
	// TemplateTinyLlama is the Zephyr-style template used by TinyLlama chat models.
	TemplateTinyLlama ChatTemplate = "tinyllama"
	// TemplateNone passes the prompt through untouched.
	TemplateNone ChatTemplate = "none"
)

// Numeric precision identifiers passed to the local inference helper.
const (
	DTypeFloat16 = "float16"
	DTypeFloat32 = "float32"
)

// Validated effective-context ceilings. Memory-optimized runs never exceed 64K
// tokens; full-performance runs never exceed 131K. A future model family with
// different validated ceilings extends the registry, not the fallback logic.
const (
	MemoryOptimizedContextCeiling = 65536
	FullPerformanceContextCeiling = 131072
)

// ModelProfile is the static descriptor for one local model.
type ModelProfile struct {
	ID             string
	HuggingFaceID  string
	ParameterClass string
	BaseContext    int
	ChatTemplate   ChatTemplate
	Description    string
}

// EffectiveModelConfig is the fully resolved local model invocation: numeric
// precision, quantization, effective context length, and the RoPE scaling
// factor when YaRN is active (zero otherwise).
type EffectiveModelConfig struct {
	ModelID           string
	HuggingFaceID     string
	DType             string
	Quantize8Bit      bool
	MaxContext        int
	RopeScalingFactor float64
	ChatTemplate      ChatTemplate
}

// UnknownModelError reports a model identifier absent from the registry.
// It is fatal to the run: substituting a default model silently would surprise
// the user with unexpected cost or quality.
type UnknownModelError struct {
	ModelID string
}

// Error implements the error interface.
func (unknownModelError *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q: not present in the model profile registry", unknownModelError.ModelID)
}

// profileTable is initialized once and read-only afterwards; no writer exists
// after process start, so no synchronization is needed.
var profileTable = map[string]ModelProfile{
	"qwen2.5-coder-3b": {
		ID:             "qwen2.5-coder-3b",
		HuggingFaceID:  "Qwen/Qwen2.5-Coder-3B-Instruct",
		ParameterClass: "3B",
		BaseContext:    32768,
		ChatTemplate:   TemplateQwen,
		Description:    "Best local quality, needs ~6GB memory",
	},
	"qwen2.5-coder-1.5b": {
		ID:             "qwen2.5-coder-1.5b",
		HuggingFaceID:  "Qwen/Qwen2.5-Coder-1.5B-Instruct",
		ParameterClass: "1.5B",
		BaseContext:    32768,
		ChatTemplate:   TemplateQwen,
		Description:    "Balanced quality and footprint, recommended default",
	},
	"qwen2.5-coder-0.5b": {
		ID:             "qwen2.5-coder-0.5b",
		HuggingFaceID:  "Qwen/Qwen2.5-Coder-0.5B-Instruct",
		ParameterClass: "0.5B",
		BaseContext:    32768,
		ChatTemplate:   TemplateQwen,
		Description:    "Small footprint for constrained machines",
	},
	"phi-3-mini": {
		ID:             "phi-3-mini",
		HuggingFaceID:  "microsoft/Phi-3-mini-4k-instruct",
		ParameterClass: "3.8B",
		BaseContext:    4096,
		ChatTemplate:   TemplatePhi,
		Description:    "Strong general model with a short context window",
	},
	"tinyllama-1.1b": {
		ID:             "tinyllama-1.1b",
		HuggingFaceID:  "TinyLlama/TinyLlama-1.1B-Chat-v1.0",
		ParameterClass: "1.1B",
		BaseContext:    2048,
		ChatTemplate:   TemplateTinyLlama,
		Description:    "Minimal footprint, last resort under memory pressure",
	},
}

// degradationOrder fixes the out-of-memory recovery walk, largest first.
var degradationOrder = []string{
	"qwen2.5-coder-3b",
	"qwen2.5-coder-1.5b",
	"qwen2.5-coder-0.5b",
	"tinyllama-1.1b",
}

// Lookup returns the profile for a model identifier.
func Lookup(modelID string) (ModelProfile, error) {
	profile, present := profileTable[modelID]
	if !present {
		return ModelProfile{}, &UnknownModelError{ModelID: modelID}
	}
	return profile, nil
}

// AvailableModelIDs lists every registered model identifier in stable order.
func AvailableModelIDs() []string {
	identifiers := make([]string, 0, len(profileTable))
	for identifier := range profileTable {
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)
	return identifiers
}

// IsQwenFamily reports whether the model belongs to the Qwen family, the only
// family with a validated YaRN configuration.
func IsQwenFamily(modelID string) bool {
	return strings.HasPrefix(strings.ToLower(modelID), "qwen")
}

// NextSmallerModel returns the successor of modelID in the degradation order.
// Models outside the order have no smaller fallback.
func NextSmallerModel(modelID string) (string, bool) {
	for position, candidate := range degradationOrder {
		if candidate == modelID && position+1 < len(degradationOrder) {
			return degradationOrder[position+1], true
		}
	}
	return "", false
}

// YarnRequest captures the caller's context-extension wish.
type YarnRequest struct {
	Enabled          bool
	RequestedContext int
}

// ResolveVariant combines a profile with the memory-optimization choice into an
// effective configuration. The memory-optimized variant quantizes weights to
// 8 bits at float16; the full-performance variant keeps full weights at
// float32. YaRN scaling applies only to the Qwen family:
//
//	scale = min(requestedContext, variantCeiling) / baseContext
//
// clamped to at least 1 and never exceeding the variant ceiling.
func ResolveVariant(profile ModelProfile, memoryOptimization bool, yarn YarnRequest) EffectiveModelConfig {
	effective := EffectiveModelConfig{
		ModelID:       profile.ID,
		HuggingFaceID: profile.HuggingFaceID,
		MaxContext:    profile.BaseContext,
		ChatTemplate:  profile.ChatTemplate,
	}
	variantCeiling := FullPerformanceContextCeiling
	if memoryOptimization {
		effective.DType = DTypeFloat16
		effective.Quantize8Bit = true
		variantCeiling = MemoryOptimizedContextCeiling
	} else {
		effective.DType = DTypeFloat32
	}

	if !yarn.Enabled || !IsQwenFamily(profile.ID) {
		return effective
	}

	requestedContext := yarn.RequestedContext
	if requestedContext < profile.BaseContext {
		requestedContext = profile.BaseContext
	}
	if requestedContext > variantCeiling {
		requestedContext = variantCeiling
	}
	effective.MaxContext = requestedContext
	effective.RopeScalingFactor = float64(requestedContext) / float64(profile.BaseContext)
	return effective
}
