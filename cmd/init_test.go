package cmd

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/qobs-build/glut/internal/builder"
	"github.com/qobs-build/glut/internal/msg"
	"github.com/qobs-build/glut/internal/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	msg.Stdout = io.Discard
	os.Exit(m.Run())
}

func TestInitScaffoldsParsableProject(t *testing.T) {
	dir := t.TempDir()
	initIn(dir, "spinning-diamond")

	cfg, err := builder.ParseConfigFromFile(filepath.Join(dir, builder.ConfigFilename), builder.NewConfigEnv(dir, toolchain.Debug))
	require.NoError(t, err)
	assert.Equal(t, "spinning-diamond", cfg.Package.Name)

	assert.FileExists(t, filepath.Join(dir, "src", "main.cpp"))
	ignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "build/\n", string(ignore))
}

func TestInitQuotesProjectName(t *testing.T) {
	dir := t.TempDir()
	name := `say "hi" \ bye`
	initIn(dir, name)

	cfg, err := builder.ParseConfigFromFile(filepath.Join(dir, builder.ConfigFilename), builder.NewConfigEnv(dir, toolchain.Debug))
	require.NoError(t, err)
	assert.Equal(t, name, cfg.Package.Name)

	src, err := os.ReadFile(filepath.Join(dir, "src", "main.cpp"))
	require.NoError(t, err)
	assert.Contains(t, string(src), `glutCreateWindow("say \"hi\" \\ bye");`)
}

func TestInitKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.o\n"), 0o644))

	initIn(dir, "app")

	ignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "*.o\n", string(ignore))
}
