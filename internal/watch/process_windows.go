//go:build windows

package watch

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
)

func prepareCommand(cmd *exec.Cmd) {}

// terminate kills the process tree; Windows has no polite equivalent of SIGTERM for
// windowed GLUT programs
func terminate(cmd *exec.Cmd) error {
	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid)).Run()
}

func kill(cmd *exec.Cmd) error {
	err := cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
