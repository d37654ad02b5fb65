package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
	"github.com/qobs-build/glut/internal/toolchain"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ConfigFilename is the project descriptor looked up in the project root
const ConfigFilename = "Glut.toml"

var defaultSources = []string{"**/*.{c,cc,cpp,cxx}"}
var defaultHeaders = []string{"**/*.{h,hh,hpp,hxx}"}

type Config struct {
	Package PackageSection            `toml:"package"`
	Target  TargetSection             `toml:"target"`
	Profile map[string]ProfileSection `toml:"profile"`
}

// optLevel holds opt-level, which may be written as 2 or "s"
type optLevel struct {
	Value any
}

func (o optLevel) String() string {
	switch v := o.Value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	default:
		return ""
	}
}

// ProfileSection defines the [profile.debug] and [profile.release] sections
type ProfileSection struct {
	OptLevel any      `toml:"opt-level"`
	Cflags   []string `toml:"cflags"`
	Ldflags  []string `toml:"ldflags"`
}

// PackageSection defines the [package] section
type PackageSection struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Authors     []string `toml:"authors"`
	Build       string   `toml:"build"`
}

// TargetSection defines the [target(.*)] section
type TargetSection struct {
	Sources    []string          `toml:"sources"`
	Headers    []string          `toml:"headers"`
	Includes   []string          `toml:"includes"`
	LibDirs    []string          `toml:"libdirs"`
	Defines    map[string]string `toml:"defines"`
	Links      []string          `toml:"links"`
	Frameworks []string          `toml:"frameworks"`
	Cflags     []string          `toml:"cflags"`
	Ldflags    []string          `toml:"ldflags"`
}

// defaultConfig is used when a project has no Glut.toml
func defaultConfig(basedir string) *Config {
	cfg := new(Config)
	cfg.Package.Name = filepath.Base(basedir)
	cfg.fillDefaults()
	return cfg
}

func (c *Config) fillDefaults() {
	if len(c.Target.Sources) == 0 {
		c.Target.Sources = defaultSources
	}
	if len(c.Target.Headers) == 0 {
		c.Target.Headers = defaultHeaders
	}
	if c.Profile == nil {
		c.Profile = make(map[string]ProfileSection)
	}
}

// compileFlags returns the descriptor's additions to the profile's compile flags
func (c *Config) compileFlags(mode toolchain.Mode, basedir string) []string {
	var cflags []string
	for _, dir := range c.Target.Includes {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(basedir, dir)
		}
		cflags = append(cflags, "-I"+dir)
	}
	for define, v := range sortedMap(c.Target.Defines) {
		if v != "" {
			cflags = append(cflags, "-D"+define+"="+v)
		} else {
			cflags = append(cflags, "-D"+define)
		}
	}
	cflags = append(cflags, c.Target.Cflags...)

	if prof, ok := c.Profile[mode.String()]; ok {
		if level := (optLevel{prof.OptLevel}).String(); level != "" {
			cflags = append(cflags, "-O"+level)
		}
		cflags = append(cflags, prof.Cflags...)
	}
	return cflags
}

// linkFlags returns the descriptor's additions to the profile's link flags
func (c *Config) linkFlags(mode toolchain.Mode, basedir string) []string {
	var ldflags []string
	ldflags = append(ldflags, c.Target.Ldflags...)
	if prof, ok := c.Profile[mode.String()]; ok {
		ldflags = append(ldflags, prof.Ldflags...)
	}
	for _, dir := range c.Target.LibDirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(basedir, dir)
		}
		ldflags = append(ldflags, "-L"+dir)
	}
	for _, lib := range c.Target.Links {
		ldflags = append(ldflags, "-l"+lib)
	}
	for _, fw := range c.Target.Frameworks {
		ldflags = append(ldflags, "-framework", fw)
	}
	return ldflags
}

// mergeStructs merges the fields of the src struct into the dst struct
func mergeStructs(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer || dstVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dst must be a pointer to a struct")
	}

	dstElem := dstVal.Elem()
	srcVal := reflect.ValueOf(src)

	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct {
		return fmt.Errorf("src must be a struct or a pointer to a struct")
	}

	if dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("dst and src must be of the same struct type")
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Slice:
			if !srcField.IsNil() {
				dstField.Set(reflect.AppendSlice(dstField, srcField))
			}
		case reflect.Map:
			if !srcField.IsNil() {
				if dstField.IsNil() {
					dstField.Set(reflect.MakeMap(dstField.Type()))
				}
				for _, key := range srcField.MapKeys() {
					dstField.SetMapIndex(key, srcField.MapIndex(key))
				}
			}
		case reflect.Bool:
			dstField.SetBool(dstField.Bool() || srcField.Bool())
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}

	return nil
}

func mustMarshal(v any) string {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// unmarshalSection is a helper to parse sections without conditional logic
func unmarshalSection(rawCfg map[string]any, name string, dst any) error {
	if data, ok := rawCfg[name]; ok {
		if err := toml.Unmarshal([]byte(mustMarshal(data)), dst); err != nil {
			return fmt.Errorf("failed to parse [%s] section: %w", name, err)
		}
	}
	return nil
}

// unmarshalConditionalSection parses a section whose sub-tables keyed by an expression
// are merged in when the expression evaluates to true, e.g. [target.'target_os == "linux"']
func unmarshalConditionalSection[T any](rawCfg map[string]any, name string, dst *T, env ConfigEnv) error {
	sectionData, ok := rawCfg[name]
	if !ok {
		return nil
	}

	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		return fmt.Errorf("invalid [%s] section format: expected a table", name)
	}

	baseFields := make(map[string]any)
	conditionalFields := make(map[string]map[string]any)

	for key, val := range sectionMap {
		if subMap, ok := val.(map[string]any); ok {
			_, err := expr.Compile(key, expr.Env(env), expr.AsBool())
			if err == nil {
				conditionalFields[key] = subMap
			} else {
				baseFields[key] = val
			}
		} else {
			baseFields[key] = val
		}
	}

	if len(baseFields) > 0 {
		if err := toml.Unmarshal([]byte(mustMarshal(baseFields)), dst); err != nil {
			return fmt.Errorf("failed to parse base [%s] section: %w", name, err)
		}
	}

	for expression, condMap := range sortedMap(conditionalFields) {
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return fmt.Errorf("failed to compile expression for [%s.%q]: %w", name, expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("failed to run expression for [%s.%q]: %w", name, expression, err)
		}

		if matched, ok := result.(bool); !ok || !matched {
			continue
		}

		var condSection T
		if err := toml.Unmarshal([]byte(mustMarshal(condMap)), &condSection); err != nil {
			return fmt.Errorf("failed to parse conditional section [%s.%q]: %w", name, expression, err)
		}
		if err := mergeStructs(dst, condSection); err != nil {
			return fmt.Errorf("failed to merge conditional section [%s.%q]: %w", name, expression, err)
		}
	}

	return nil
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env ConfigEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, matchIndexes := range matches {
		fullMatchStart := matchIndexes[0]
		fullMatchEnd := matchIndexes[1]
		expressionStart := matchIndexes[2]
		expressionEnd := matchIndexes[3]

		builder.WriteString(s[lastIndex:fullMatchStart])

		expression := strings.TrimSpace(s[expressionStart:expressionEnd])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		builder.WriteString(fmt.Sprintf("%v", result))
		lastIndex = fullMatchEnd
	}

	builder.WriteString(s[lastIndex:])

	return builder.String(), nil
}

// processExpressions recursively walks the parsed TOML data and evaluates expressions in strings.
// The build script is left alone, it is evaluated as a whole by RunBuildScript.
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			if key == "build" {
				if _, isString := val.(string); isString {
					continue
				}
			}
			processedVal, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processedVal
		}
		return v, nil
	case []any:
		for i, item := range v {
			processedItem, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processedItem
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

func ParseConfig(rdr io.Reader, env ConfigEnv) (*Config, error) {
	var rawConfig map[string]any
	dec := toml.NewDecoder(rdr)
	if err := dec.Decode(&rawConfig); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}
	if rawConfig == nil {
		rawConfig = make(map[string]any)
	}

	processedConfig, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}
	rawConfig = processedConfig.(map[string]any)

	cfg := new(Config)

	if err := unmarshalSection(rawConfig, "package", &cfg.Package); err != nil {
		return nil, err
	}
	if err := unmarshalSection(rawConfig, "profile", &cfg.Profile); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "target", &cfg.Target, env); err != nil {
		return nil, err
	}

	if cfg.Package.Name == "" {
		cfg.Package.Name = filepath.Base(env.basedir)
	}
	cfg.fillDefaults()

	return cfg, nil
}

// ParseConfigFromFile parses and validates a config file from a filepath
func ParseConfigFromFile(path string, env ConfigEnv) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseConfig(bufio.NewReader(f), env)
}

//
// expr-lang helpers
//

func (cfg Config) RunBuildScript(env ConfigEnv) error {
	if cfg.Package.Build == "" {
		return nil
	}

	program, err := expr.Compile(cfg.Package.Build, expr.Env(env))
	if err != nil {
		return fmt.Errorf("failed to compile build script for package %q: %w", cfg.Package.Name, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return fmt.Errorf("failed to run build script for package %q: %w", cfg.Package.Name, err)
	}

	if result, ok := result.(bool); !ok || !result {
		return fmt.Errorf("build script for package %q returned false\n%s", cfg.Package.Name, cfg.Package.Build)
	}

	return nil
}

type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
	Release    bool              `expr:"release"`
	Debug      bool              `expr:"debug"`
	basedir    string
}

func NewConfigEnv(basedir string, mode toolchain.Mode) ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
		Release:    mode == toolchain.Release,
		Debug:      mode == toolchain.Debug,
		basedir:    basedir,
	}
}

// resolve joins a script-supplied path to the project root, refusing to leave it
func (env ConfigEnv) resolve(path string) string {
	fullPath := filepath.Join(env.basedir, path)
	rel, err := filepath.Rel(env.basedir, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		panic(fmt.Sprintf("path %q is outside of package directory %q", path, env.basedir))
	}
	return fullPath
}

// Patch applies a diff-match-patch patch to a project file and reports whether anything changed
func (env ConfigEnv) Patch(path, patchText string) bool {
	fullPath := env.resolve(path)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		panic(err)
	}
	origText := string(data)

	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patchText)
	if err != nil {
		panic(err)
	}
	patchedText, results := dmp.PatchApply(patches, origText)
	for _, ok := range results {
		if ok {
			goto applied
		}
	}
	return false // nothing was applied, nothing to write

applied:
	err = os.WriteFile(fullPath, []byte(patchedText), 0644)
	if err != nil {
		panic(err)
	}

	return true
}

func (env ConfigEnv) ReadFile(path string) string {
	data, err := os.ReadFile(env.resolve(path))
	if err != nil {
		panic(err)
	}
	return string(data)
}

func (env ConfigEnv) Exists(path string) bool {
	_, err := os.Stat(env.resolve(path))
	return err == nil
}
