package hardware

import (
	"testing"

	"github.com/commitlm/commitlm/internal/models"
)

// TestResolvePreferenceExplicitDevices verifies explicit preferences bypass probing.
func TestResolvePreferenceExplicitDevices(testingHandle *testing.T) {
	testCases := []struct {
		preference     string
		expectedDevice Device
		expectedDType  string
	}{
		{preference: "cuda", expectedDevice: DeviceCUDA, expectedDType: models.DTypeFloat16},
		{preference: "MPS", expectedDevice: DeviceMPS, expectedDType: models.DTypeFloat16},
		{preference: " cpu ", expectedDevice: DeviceCPU, expectedDType: models.DTypeFloat32},
	}
	for _, testCase := range testCases {
		resolved := ResolvePreference(testCase.preference)
		if resolved.Device != testCase.expectedDevice {
			testingHandle.Errorf("ResolvePreference(%q) device = %q, want %q", testCase.preference, resolved.Device, testCase.expectedDevice)
		}
		if resolved.DType != testCase.expectedDType {
			testingHandle.Errorf("ResolvePreference(%q) dtype = %q, want %q", testCase.preference, resolved.DType, testCase.expectedDType)
		}
	}
}

// TestDetectDeviceNeverFails verifies probing always lands on a usable device.
func TestDetectDeviceNeverFails(testingHandle *testing.T) {
	resolved := DetectDevice()
	switch resolved.Device {
	case DeviceCUDA, DeviceMPS, DeviceCPU:
	default:
		testingHandle.Fatalf("unexpected device: %q", resolved.Device)
	}
	if resolved.DType != models.DTypeFloat16 && resolved.DType != models.DTypeFloat32 {
		testingHandle.Errorf("unexpected dtype: %q", resolved.DType)
	}
}

// TestResolvePreferenceAutoProbes verifies auto and unknown preferences probe.
func TestResolvePreferenceAutoProbes(testingHandle *testing.T) {
	for _, preference := range []string{DevicePreferenceAuto, "", "tpu"} {
		resolved := ResolvePreference(preference)
		if resolved.Device == "" {
			testingHandle.Errorf("ResolvePreference(%q) returned no device", preference)
		}
	}
}
