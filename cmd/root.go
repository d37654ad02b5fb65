// glut [path], glut build [path]
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/qobs-build/glut/internal/builder"
	"github.com/qobs-build/glut/internal/msg"
	"github.com/qobs-build/glut/internal/toolchain"
	"github.com/spf13/cobra"
)

var (
	release   bool
	flagColor EnumValue = NewEnumValue("auto", map[string]string{
		"auto":   "Color when writing to a terminal (default)",
		"always": "Always use colors",
		"never":  "Never use colors",
	})
)

// signalContext is cancelled on ^C or SIGTERM, which stops running compilers
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newBuilder(target string) *builder.Builder {
	b, err := builder.NewBuilderInDirectory(target)
	if err != nil {
		msg.Fatal("%v", err)
	}
	return b
}

// splitArgs separates the target path from arguments meant for the program.
// Everything after the path, or after "--", goes to the program.
func splitArgs(cmd *cobra.Command, args []string) (string, []string) {
	before, after := args, []string(nil)
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		before, after = args[:dash], args[dash:]
	}
	target := "."
	if len(before) > 0 {
		target, before = before[0], before[1:]
	}
	return target, append(before, after...)
}

func doBuild(cmd *cobra.Command, args []string) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	b := newBuilder(target)

	ctx, stop := signalContext()
	defer stop()

	if _, err := b.Build(ctx, toolchain.ModeFromRelease(release)); err != nil {
		reportBuildError(err)
	}
}

// reportBuildError prints err and exits. A program started by run exits with its own status.
func reportBuildError(err error) {
	var (
		compileErr *builder.CompileError
		linkErr    *builder.LinkError
		exitErr    *exec.ExitError
	)
	if !errors.As(err, &compileErr) && !errors.As(err, &linkErr) && errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			code = 1 // killed by a signal
		}
		os.Exit(code)
	}
	msg.Fatal("%v", err)
}

var rootCmd = &cobra.Command{
	Use:   "glut [target path]",
	Short: "Build, run and live-reload FreeGLUT projects",
	Long:  `Build, run and live-reload FreeGLUT projects. If no target path is given, builds "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doBuild,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		msg.SetColor(flagColor.Value())
	},
}

var buildCmd = &cobra.Command{
	Use:   "build [target path]",
	Short: "Build the project",
	Long:  `Build the project. If no target path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doBuild,
}

func init() {
	rootCmd.PersistentFlags().Var(&flagColor, "color", "Colored output, one of "+flagColor.HelpString())
	rootCmd.RegisterFlagCompletionFunc("color", flagColor.CompletionFunc())
	addBuildFlags(rootCmd)

	// glut build subcommand
	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd)
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&release, "release", "r", false, "Build in release mode")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
