package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/qobs-build/glut/internal/msg"
	"github.com/qobs-build/glut/internal/toolchain"
)

// BuildDirname is the build output directory inside the project root
const BuildDirname = "build"

var errNoSources = errors.New("no source files found")

type Builder struct {
	basedir  string
	platform toolchain.Platform
	runner   Runner
	jobs     int
}

type Option func(*Builder)

// WithRunner replaces the runner used to invoke compilers and the linker
func WithRunner(r Runner) Option {
	return func(b *Builder) { b.runner = r }
}

// WithPlatform overrides the host platform
func WithPlatform(p toolchain.Platform) Option {
	return func(b *Builder) { b.platform = p }
}

// WithJobs caps the number of concurrent compiler invocations
func WithJobs(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.jobs = n
		}
	}
}

// NewBuilderInDirectory prepares a builder for the project rooted at path.
// The host platform must be supported.
func NewBuilderInDirectory(path string, opts ...Option) (*Builder, error) {
	var err error
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}

	b := &Builder{
		basedir: path,
		runner:  execRunner{},
		jobs:    runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.platform == 0 {
		if b.platform, err = toolchain.ParsePlatform(runtime.GOOS); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Dir returns the project root
func (b *Builder) Dir() string { return b.basedir }

// BuildDir returns the output directory of a mode, e.g. build/debug
func (b *Builder) BuildDir(mode toolchain.Mode) string {
	return filepath.Join(b.basedir, BuildDirname, mode.String())
}

// loadConfig reads Glut.toml, falling back to defaults when the project has none
func (b *Builder) loadConfig(mode toolchain.Mode) (*Config, ConfigEnv, error) {
	env := NewConfigEnv(b.basedir, mode)
	cfg, err := ParseConfigFromFile(filepath.Join(b.basedir, ConfigFilename), env)
	if os.IsNotExist(err) {
		return defaultConfig(b.basedir), env, nil
	}
	if err != nil {
		return nil, env, fmt.Errorf("%s: %w", ConfigFilename, err)
	}
	return cfg, env, nil
}

// ExecutablePath returns where Build puts the program for mode
func (b *Builder) ExecutablePath(mode toolchain.Mode) (string, error) {
	cfg, _, err := b.loadConfig(mode)
	if err != nil {
		return "", err
	}
	profile, err := toolchain.Select(b.platform, mode)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.BuildDir(mode), profile.ExecutableName(cfg.Package.Name)), nil
}

// Build brings the executable for mode up to date and returns its path.
// Only stale units are recompiled; linking happens when anything was compiled or the
// executable is missing.
func (b *Builder) Build(ctx context.Context, mode toolchain.Mode) (string, error) {
	profile, err := toolchain.Select(b.platform, mode)
	if err != nil {
		return "", err
	}

	cfg, env, err := b.loadConfig(mode)
	if err != nil {
		return "", err
	}
	if err := cfg.RunBuildScript(env); err != nil {
		return "", err
	}

	rules, err := loadIgnoreRules(b.basedir)
	if err != nil {
		return "", fmt.Errorf("failed to read .gitignore: %w", err)
	}
	sources, err := collectFiles(b.basedir, cfg.Target.Sources, rules)
	if err != nil {
		return "", fmt.Errorf("failed to collect sources: %w", err)
	}
	if len(sources) == 0 {
		return "", fmt.Errorf("%w in %s", errNoSources, b.basedir)
	}
	headers, err := collectFiles(b.basedir, cfg.Target.Headers, rules)
	if err != nil {
		return "", fmt.Errorf("failed to collect headers: %w", err)
	}

	buildDir := b.BuildDir(mode)
	planner := Planner{
		ObjDir:     filepath.Join(buildDir, "obj"),
		ObjExt:     profile.ObjExt,
		Executable: filepath.Join(buildDir, profile.ExecutableName(cfg.Package.Name)),
		Watermark:  newestModTime(headers, filepath.Join(b.basedir, ConfigFilename)),
	}
	plan, err := planner.Plan(sources)
	if err != nil {
		return "", fmt.Errorf("build planning failed: %w", err)
	}

	if !plan.LinkRequired {
		msg.Info("%s is up to date", relOrAbs(b.basedir, planner.Executable))
		return planner.Executable, nil
	}

	cflags := cfg.compileFlags(mode, b.basedir)
	cc := findCompiler(profile.Compiler(false), false)
	cxx := findCompiler(profile.Compiler(true), true)

	compileJobs := make([]compileJob, 0, len(plan.Compile))
	for _, unit := range plan.Compile {
		obj := planner.ObjectPath(unit)
		compiler := cc
		if unit.IsCxx {
			compiler = cxx
		}
		compileJobs = append(compileJobs, compileJob{
			unit:  unit,
			obj:   obj,
			cc:    compiler,
			args:  profile.CompileArgs(unit.Path, obj, unit.IsCxx, cflags),
			stamp: planner.Stamp(unit),
		})
	}

	progress := msg.NewProgress(len(compileJobs) + 1)
	if err := runCompileJobs(ctx, b.runner, compileJobs, b.jobs, progress); err != nil {
		return "", err
	}

	linker := cc
	if slices.ContainsFunc(sources, func(u SourceUnit) bool { return u.IsCxx }) {
		linker = cxx
	}
	link := linkJob{
		objs: plan.Objects,
		out:  planner.Executable,
		cc:   linker,
		args: profile.LinkArgs(plan.Objects, planner.Executable, cfg.linkFlags(mode, b.basedir)),
	}
	if err := runLinkJob(ctx, b.runner, link, progress); err != nil {
		return "", err
	}

	msg.Status("Finished", "%s %s in %v", mode, relOrAbs(b.basedir, planner.Executable), progress.Elapsed())
	return planner.Executable, nil
}

// BuildAndRun builds the executable and runs it in the project root, forwarding
// standard streams. The program's exit status is returned as an *exec.ExitError.
func (b *Builder) BuildAndRun(ctx context.Context, mode toolchain.Mode, args []string) error {
	exe, err := b.Build(ctx, mode)
	if err != nil {
		return err
	}

	msg.Status("Running", "%s", relOrAbs(b.basedir, exe))
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = b.basedir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}

// Clean removes the build output directory
func (b *Builder) Clean() error {
	return os.RemoveAll(filepath.Join(b.basedir, BuildDirname))
}

// Watched reports whether a change to path should trigger a rebuild:
// sources, headers and the descriptor, unless ignored.
func (b *Builder) Watched(path string) bool {
	rel, ok := b.rel(path)
	if !ok {
		return false
	}
	if rel == ConfigFilename {
		return true
	}
	if !toolchain.IsSource(rel) {
		return false
	}
	rules, err := loadIgnoreRules(b.basedir)
	if err != nil {
		return true
	}
	return !rules.ignored(rel, false)
}

// WatchDir reports whether a directory should be watched for changes
func (b *Builder) WatchDir(path string) bool {
	rel, ok := b.rel(path)
	if !ok {
		return false
	}
	rules, err := loadIgnoreRules(b.basedir)
	if err != nil {
		return true
	}
	return !rules.ignored(rel, true)
}

func (b *Builder) rel(path string) (string, bool) {
	rel, err := filepath.Rel(b.basedir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func relOrAbs(basedir, path string) string {
	if rel, err := filepath.Rel(basedir, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
