package builder

import (
	"os"
	"os/exec"
)

var (
	commonCCompilers   = []string{"clang", "gcc", "icx", "icc", "tcc"}
	commonCxxCompilers = []string{"clang++", "g++", "icpx", "icpc"}
)

// lookPath is replaced in tests
var lookPath = exec.LookPath

// findCompiler resolves the compiler to invoke. CC/CXX from the environment win,
// then the toolchain's preferred compiler, then any common compiler found on PATH.
// If nothing is found the preferred name is returned and the invocation will fail loudly.
func findCompiler(preferred string, needCxx bool) string {
	if needCxx {
		if cxx := os.Getenv("CXX"); cxx != "" {
			return cxx
		}
	} else if cc := os.Getenv("CC"); cc != "" {
		return cc
	}

	if path, err := lookPath(preferred); err == nil {
		return path
	}

	compilersToTry := commonCCompilers
	if needCxx {
		compilersToTry = commonCxxCompilers
	}
	for _, compiler := range compilersToTry {
		if path, err := lookPath(compiler); err == nil {
			return path
		}
	}

	return preferred
}
