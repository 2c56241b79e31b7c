package config

import (
	"os"
	"os/exec"
)

var nvidiaDriverVersion = "/proc/driver/nvidia/version"

// HasAccelerator reports whether a CUDA-capable GPU appears to be present.
// It decides the default device and compute type only.
func HasAccelerator() bool {
	if _, err := os.Stat(nvidiaDriverVersion); err == nil {
		return true
	}
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}
