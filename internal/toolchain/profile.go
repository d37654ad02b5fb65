package toolchain

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

const (
	cStandard   = "-std=c11"
	cxxStandard = "-std=c++17"

	// FreeglutDir is where the setup step unpacks FreeGLUT on Windows
	FreeglutDir = `C:\freeglut`
)

// Profile is the resolved compiler and linker configuration for one platform and mode.
// Select returns a fresh value on every call; callers must not modify its slices.
type Profile struct {
	Platform Platform
	Mode     Mode

	CC  string
	CXX string

	CompileFlags []string
	LinkFlags    []string
	IncludeDirs  []string
	LibDirs      []string
	Libs         []string
	Frameworks   []string

	ObjExt string
	ExeExt string
}

// Select produces the toolchain profile for a platform and build mode.
func Select(platform Platform, mode Mode) (Profile, error) {
	var p Profile
	switch platform {
	case Linux:
		p = Profile{
			CC:     "gcc",
			CXX:    "g++",
			Libs:   []string{"glut", "GLU", "GL"},
			ObjExt: ".o",
		}
	case MacOS:
		p = Profile{
			CC:           "clang",
			CXX:          "clang++",
			CompileFlags: []string{"-DGL_SILENCE_DEPRECATION"},
			Frameworks:   []string{"GLUT", "OpenGL"},
			ObjExt:       ".o",
		}
	case Windows:
		p = Profile{
			CC:          "gcc",
			CXX:         "g++",
			IncludeDirs: []string{FreeglutDir + `\include`},
			LibDirs:     []string{FreeglutDir + `\lib`},
			Libs:        []string{"freeglut", "opengl32", "glu32"},
			ObjExt:      ".obj",
			ExeExt:      ".exe",
		}
	default:
		return Profile{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}

	p.Platform = platform
	p.Mode = mode
	switch mode {
	case Release:
		p.CompileFlags = append(p.CompileFlags, "-O3", "-DNDEBUG")
		p.LinkFlags = append(p.LinkFlags, "-s")
	default:
		p.CompileFlags = append(p.CompileFlags, "-g", "-O0")
	}

	return p, nil
}

// Compiler returns the compiler executable for a source language
func (p Profile) Compiler(cxx bool) string {
	if cxx {
		return p.CXX
	}
	return p.CC
}

// CompileArgs builds the argument list that compiles src into obj
func (p Profile) CompileArgs(src, obj string, cxx bool, extra []string) []string {
	args := make([]string, 0, len(p.CompileFlags)+len(p.IncludeDirs)+len(extra)+5)
	if cxx {
		args = append(args, cxxStandard)
	} else {
		args = append(args, cStandard)
	}
	args = append(args, p.CompileFlags...)
	for _, dir := range p.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	args = append(args, extra...)
	args = append(args, "-c", src, "-o", obj)
	return args
}

// LinkArgs builds the argument list that links objs into out.
// Library flags come after the objects so that single-pass linkers resolve them.
func (p Profile) LinkArgs(objs []string, out string, extra []string) []string {
	args := []string{"-o", out}
	args = append(args, objs...)
	args = append(args, p.LinkFlags...)
	args = append(args, extra...)
	for _, dir := range p.LibDirs {
		args = append(args, "-L"+dir)
	}
	for _, lib := range p.Libs {
		args = append(args, "-l"+lib)
	}
	for _, fw := range p.Frameworks {
		args = append(args, "-framework", fw)
	}
	return args
}

// ExecutableName returns the file name of a linked program called name
func (p Profile) ExecutableName(name string) string {
	return name + p.ExeExt
}

// IsCxx reports whether a source file should be compiled as C++
func IsCxx(path string) bool {
	return slices.Contains(CxxExtensions, strings.ToLower(filepath.Ext(path)))
}

var (
	CExtensions      = []string{".c"}
	CxxExtensions    = []string{".cc", ".cpp", ".cxx"}
	HeaderExtensions = []string{".h", ".hh", ".hpp", ".hxx"}
)

// IsSource reports whether path has a recognized source or header extension
func IsSource(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(CExtensions, ext) || slices.Contains(CxxExtensions, ext) || slices.Contains(HeaderExtensions, ext)
}
