package quoting

import (
	"runtime"
	"strconv"

	"github.com/klauspost/cpuid/v2"
)

// vectorAvailable reports whether the word-parallel scan beats the filter on
// this machine: 64-bit registers are required, and on amd64 and arm64 the
// baseline vector extensions are checked as well.
var vectorAvailable = detectVector()

func detectVector() bool {
	if strconv.IntSize != 64 {
		return false
	}
	switch runtime.GOARCH {
	case "amd64":
		return cpuid.CPU.Supports(cpuid.SSE2)
	case "arm64":
		return cpuid.CPU.Supports(cpuid.ASIMD)
	default:
		return true
	}
}
