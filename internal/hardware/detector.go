// Package hardware probes the host for an inference accelerator and picks the
// numeric precision a local model should run at.
package hardware

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/commitlm/commitlm/internal/models"
)

// Device identifies the accelerator backing local inference.
type Device string

const (
	// DeviceCUDA selects an NVIDIA GPU.
	DeviceCUDA Device = "cuda"
	// DeviceMPS selects Apple unified-memory acceleration.
	DeviceMPS Device = "mps"
	// DeviceCPU is the universal fallback and never errors.
	DeviceCPU Device = "cpu"
)

const (
	// DevicePreferenceAuto requests host probing instead of a fixed device.
	DevicePreferenceAuto = "auto"

	nvidiaSMIExecutable = "nvidia-smi"
	nvidiaProbeTimeout  = 3 * time.Second
)

// ResolvedDevice is the outcome of host probing: an accelerator plus the
// numeric precision appropriate for it. Computed once per run, not persisted.
type ResolvedDevice struct {
	Device  Device
	DType   string
	GPUName string
}

// DetectDevice inspects the host and picks a device. Probing order is fixed:
// CUDA first, then Apple unified memory, else CPU, because GPU inference is
// strictly preferred for latency when available. Detection is best-effort: any
// probing failure means "unavailable", never an error.
func DetectDevice() ResolvedDevice {
	if gpuName, cudaAvailable := probeCUDA(); cudaAvailable {
		return ResolvedDevice{Device: DeviceCUDA, DType: models.DTypeFloat16, GPUName: gpuName}
	}
	if probeAppleSilicon() {
		return ResolvedDevice{Device: DeviceMPS, DType: models.DTypeFloat16}
	}
	return ResolvedDevice{Device: DeviceCPU, DType: models.DTypeFloat32}
}

// ResolvePreference honors an explicit device preference and probes only for
// DevicePreferenceAuto or an empty preference. Unrecognized preferences fall
// back to probing rather than failing: absence of a GPU is a normal outcome.
func ResolvePreference(preference string) ResolvedDevice {
	switch strings.ToLower(strings.TrimSpace(preference)) {
	case string(DeviceCUDA):
		return ResolvedDevice{Device: DeviceCUDA, DType: models.DTypeFloat16}
	case string(DeviceMPS):
		return ResolvedDevice{Device: DeviceMPS, DType: models.DTypeFloat16}
	case string(DeviceCPU):
		return ResolvedDevice{Device: DeviceCPU, DType: models.DTypeFloat32}
	default:
		return DetectDevice()
	}
}

func probeCUDA() (string, bool) {
	executablePath, lookupError := exec.LookPath(nvidiaSMIExecutable)
	if lookupError != nil {
		return "", false
	}
	probeContext, cancelProbe := context.WithTimeout(context.Background(), nvidiaProbeTimeout)
	defer cancelProbe()
	outputBytes, probeError := exec.CommandContext(probeContext, executablePath, "-L").Output()
	if probeError != nil {
		return "", false
	}
	firstLine := strings.TrimSpace(strings.SplitN(string(outputBytes), "\n", 2)[0])
	if firstLine == "" {
		return "", false
	}
	return firstLine, true
}

func probeAppleSilicon() bool {
	return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
}
