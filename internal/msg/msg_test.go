package msg

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldOut, oldColor, oldExit := Stdout, color.NoColor, exit
	Stdout = &buf
	color.NoColor = true
	t.Cleanup(func() {
		Stdout, color.NoColor, exit = oldOut, oldColor, oldExit
	})
	return &buf
}

func TestLabels(t *testing.T) {
	buf := capture(t)

	Info("built %s", "app")
	Warn("slow")
	Error("failed %d units", 2)

	assert.Equal(t, "info: built app\nwarn: slow\nerror: failed 2 units\n", buf.String())
}

func TestFatalExits(t *testing.T) {
	buf := capture(t)
	code := -1
	exit = func(c int) { code = c }

	Fatal("no sources in %s", ".")

	assert.Equal(t, 1, code)
	assert.Equal(t, "fatal: no sources in .\n", buf.String())
}

func TestStatus(t *testing.T) {
	buf := capture(t)
	Status("Finished", "debug in %s", "1s")
	assert.Equal(t, "    Finished debug in 1s\n", buf.String())
}

func TestOutputIndents(t *testing.T) {
	buf := capture(t)

	Output([]byte("main.c:1: error\n  int x\n"))
	Output([]byte("no newline"))
	Output(nil)

	assert.Equal(t, "    main.c:1: error\n      int x\n    no newline\n", buf.String())
}

func TestProgress(t *testing.T) {
	buf := capture(t)

	p := NewProgress(10)
	assert.EqualValues(t, 1, p.Step("CC", "a.c"))
	assert.EqualValues(t, 2, p.Step("LINK", "app"))

	assert.Equal(t, "[ 1/10] CC a.c\n[ 2/10] LINK app\n", buf.String())
}

func TestProgressOverflow(t *testing.T) {
	buf := capture(t)

	p := NewProgress(1)
	p.Step("CC", "a.c")
	p.Step("LINK", "app")

	assert.Equal(t, "[1/1] CC a.c\n[2/2] LINK app\n", buf.String())
}

func TestSetColor(t *testing.T) {
	capture(t)

	SetColor("always")
	assert.False(t, color.NoColor)
	SetColor("never")
	assert.True(t, color.NoColor)
}
