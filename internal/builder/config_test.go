package builder

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/qobs-build/glut/internal/toolchain"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string, mode toolchain.Mode) *Config {
	t.Helper()
	cfg, err := ParseConfig(strings.NewReader(src), NewConfigEnv("/projects/solar", mode))
	require.NoError(t, err)
	return cfg
}

func TestParseConfigDefaults(t *testing.T) {
	cfg := parse(t, "", toolchain.Debug)
	assert.Equal(t, "solar", cfg.Package.Name)
	assert.Equal(t, defaultSources, cfg.Target.Sources)
	assert.Equal(t, defaultHeaders, cfg.Target.Headers)
	assert.NotNil(t, cfg.Profile)
}

func TestParseConfig(t *testing.T) {
	cfg := parse(t, `
[package]
name = "shapes"
description = "Smooth GLUT shapes"

[target]
sources = ["src/**/*.cpp"]
links = ["m"]
cflags = ["-Wall"]
defines = { WIDTH = "900", MULTISAMPLE = "" }

[profile.release]
opt-level = 2
cflags = ["-flto"]
ldflags = ["-flto"]

[profile.debug]
opt-level = "g"
`, toolchain.Release)

	assert.Equal(t, "shapes", cfg.Package.Name)
	assert.Equal(t, []string{"src/**/*.cpp"}, cfg.Target.Sources)
	assert.Equal(t, []string{"-DMULTISAMPLE", "-DWIDTH=900", "-Wall", "-O2", "-flto"},
		cfg.compileFlags(toolchain.Release, "/p"))
	assert.Equal(t, "-Og", cfg.compileFlags(toolchain.Debug, "/p")[3])
	assert.Equal(t, []string{"-flto", "-lm"}, cfg.linkFlags(toolchain.Release, "/p"))
	assert.Equal(t, []string{"-lm"}, cfg.linkFlags(toolchain.Debug, "/p"))
}

func TestParseConfigConditionalTarget(t *testing.T) {
	src := `
[target]
links = ["m"]

[target.'target_os == "` + runtime.GOOS + `"']
links = ["pthread"]

[target.'target_os == "plan9"']
links = ["never"]

[target.'release']
defines = { NDEBUG_ASSERTS = "1" }
`
	debug := parse(t, src, toolchain.Debug)
	assert.Equal(t, []string{"m", "pthread"}, debug.Target.Links)
	assert.Empty(t, debug.Target.Defines)

	release := parse(t, src, toolchain.Release)
	assert.Equal(t, map[string]string{"NDEBUG_ASSERTS": "1"}, release.Target.Defines)
}

func TestParseConfigInterpolation(t *testing.T) {
	cfg := parse(t, `
[target]
cflags = ["-DTARGET_OS={{ target_os }}"]
`, toolchain.Debug)
	assert.Equal(t, []string{"-DTARGET_OS=" + runtime.GOOS}, cfg.Target.Cflags)
}

func TestParseConfigSyntaxError(t *testing.T) {
	_, err := ParseConfig(strings.NewReader("[package\nname = 1"), NewConfigEnv("/p", toolchain.Debug))
	require.Error(t, err)
}

func TestIncludeAndLibDirsAreRootRelative(t *testing.T) {
	cfg := parse(t, `
[target]
includes = ["include"]
libdirs = ["lib"]
`, toolchain.Debug)
	base := filepath.Join("/", "projects", "solar")
	assert.Equal(t, []string{"-I" + filepath.Join(base, "include")}, cfg.compileFlags(toolchain.Debug, base))
	assert.Equal(t, []string{"-L" + filepath.Join(base, "lib")}, cfg.linkFlags(toolchain.Debug, base))
}

func TestRunBuildScript(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.cpp", "int slices = 16;\n")
	env := NewConfigEnv(dir, toolchain.Debug)

	ok := Config{Package: PackageSection{Name: "p", Build: `Exists("main.cpp") && ReadFile("main.cpp") contains "slices"`}}
	require.NoError(t, ok.RunBuildScript(env))

	bad := Config{Package: PackageSection{Name: "p", Build: `Exists("missing.cpp")`}}
	require.ErrorContains(t, bad.RunBuildScript(env), "returned false")

	none := Config{}
	require.NoError(t, none.RunBuildScript(env))
}

func TestBuildScriptPatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.cpp", "static int slices = 16;\n")
	env := NewConfigEnv(dir, toolchain.Debug)

	dmp := diffmatchpatch.New()
	patch := dmp.PatchToText(dmp.PatchMake("static int slices = 16;\n", "static int slices = 48;\n"))
	require.True(t, env.Patch("main.cpp", patch))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "static int slices = 48;\n", string(data))
}

func TestConfigEnvRefusesOutsidePaths(t *testing.T) {
	env := NewConfigEnv(t.TempDir(), toolchain.Debug)
	assert.Panics(t, func() { env.ReadFile("../outside") })
}
