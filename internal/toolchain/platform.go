package toolchain

import (
	"errors"
	"fmt"
)

var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Platform is a host operating system the toolchain knows how to drive
type Platform int

const (
	Linux Platform = iota + 1
	MacOS
	Windows
)

func (p Platform) String() string {
	switch p {
	case Linux:
		return "linux"
	case MacOS:
		return "darwin"
	case Windows:
		return "windows"
	default:
		return fmt.Sprintf("Platform(%d)", int(p))
	}
}

// ParsePlatform maps a GOOS value to a Platform
func ParsePlatform(goos string) (Platform, error) {
	switch goos {
	case "linux":
		return Linux, nil
	case "darwin":
		return MacOS, nil
	case "windows":
		return Windows, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

// Mode selects between a debug and an optimized build
type Mode int

const (
	Debug Mode = iota
	Release
)

func (m Mode) String() string {
	if m == Release {
		return "release"
	}
	return "debug"
}

// ModeFromRelease is a shorthand for the --release flag
func ModeFromRelease(release bool) Mode {
	if release {
		return Release
	}
	return Debug
}
