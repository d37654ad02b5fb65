// glut clean [path]
package cmd

import (
	"github.com/qobs-build/glut/internal/builder"
	"github.com/qobs-build/glut/internal/msg"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [target path]",
	Short: "Remove build output",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := "."
		if len(args) > 0 {
			target = args[0]
		}
		b := newBuilder(target)
		if err := b.Clean(); err != nil {
			msg.Fatal("%v", err)
		}
		msg.Status("Removed", "%s", builder.BuildDirname)
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
