// glut run [path] [-- args...]
package cmd

import (
	"github.com/qobs-build/glut/internal/toolchain"
	"github.com/spf13/cobra"
)

func doRun(cmd *cobra.Command, args []string) {
	target, programArgs := splitArgs(cmd, args)
	b := newBuilder(target)

	ctx, stop := signalContext()
	defer stop()

	if err := b.BuildAndRun(ctx, toolchain.ModeFromRelease(release), programArgs); err != nil {
		reportBuildError(err)
	}
}

var runCmd = &cobra.Command{
	Use:   "run [target path] [-- args...]",
	Short: "Build and run the project",
	Long:  `Build and run the project. If no target path is given, uses ".". Remaining arguments are passed to the program.`,
	Args:  cobra.ArbitraryArgs,
	Run:   doRun,
}

func init() {
	// glut run subcommand
	rootCmd.AddCommand(runCmd)
	addBuildFlags(runCmd)
}
