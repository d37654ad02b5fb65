// glut init <name>, glut new <path>
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/qobs-build/glut/internal/builder"
	"github.com/qobs-build/glut/internal/msg"
	"github.com/spf13/cobra"
)

const descriptorTemplate = `[package]
name = %s
description = "A FreeGLUT program."
authors = []

[target]
sources = ["src/**/*.{c,cc,cpp,cxx}"]
headers = ["src/**/*.{h,hh,hpp,hxx}"]

[target.'target_os == "linux"']
links = ["m"]

[profile.release]
opt-level = 3
`

const mainTemplate = `#ifdef __APPLE__
#include <GLUT/glut.h>
#else
#include <GL/glut.h>
#endif

#include <cstdlib>

static double angle = 0.0;

static void resize(int width, int height)
{
    if (height == 0) height = 1;
    glViewport(0, 0, width, height);
    glMatrixMode(GL_PROJECTION);
    glLoadIdentity();
    gluPerspective(60.0, (double)width / height, 1.0, 100.0);
    glMatrixMode(GL_MODELVIEW);
}

static void display(void)
{
    angle = glutGet(GLUT_ELAPSED_TIME) * 0.06;

    glClear(GL_COLOR_BUFFER_BIT | GL_DEPTH_BUFFER_BIT);
    glLoadIdentity();
    gluLookAt(0.0, 0.0, 5.0, 0.0, 0.0, 0.0, 0.0, 1.0, 0.0);

    glRotated(angle, 0.0, 1.0, 0.0);
    glColor3f(0.0f, 0.8f, 1.0f);
    glutSolidOctahedron();
    glColor3f(1.0f, 1.0f, 1.0f);
    glutWireOctahedron();

    glutSwapBuffers();
}

static void key(unsigned char key, int, int)
{
    if (key == 27 || key == 'q')
        exit(0);
}

int main(int argc, char **argv)
{
    glutInit(&argc, argv);
    glutInitDisplayMode(GLUT_DOUBLE | GLUT_RGB | GLUT_DEPTH);
    glutInitWindowSize(800, 600);
    glutCreateWindow(%s);

    glutReshapeFunc(resize);
    glutDisplayFunc(display);
    glutKeyboardFunc(key);
    glutIdleFunc(glutPostRedisplay);

    glClearColor(0.1f, 0.12f, 0.15f, 1.0f);
    glEnable(GL_DEPTH_TEST);

    glutMainLoop();
    return 0;
}
`

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		msg.Status("Created", "%s", filepath.ToSlash(path))
	} else {
		msg.Warn("%s already exists, leaving it alone", filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "glut"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// initIn scaffolds a project in an existing directory
func initIn(dir, name string) {
	// a Go quoted string is also a valid TOML basic string and C string literal
	quoted := strconv.Quote(name)
	writefile(fmt.Sprintf(descriptorTemplate, quoted), dir, builder.ConfigFilename)

	mkdir(dir, "src")
	writefile(fmt.Sprintf(mainTemplate, quoted), dir, "src", "main.cpp")

	writefile(builder.BuildDirname+"/\n", dir, ".gitignore")

	programName := getProgramName()
	fmt.Printf("You can now do %s to build, %s to build and run, or %s to rebuild on every change.\n",
		color.HiCyanString(programName+" "+dir),
		color.HiCyanString(programName+" run "+dir),
		color.HiCyanString(programName+" watch "+dir))
}

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a new project in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0])
	},
}

var newCmd = &cobra.Command{
	Use:   "new <path>",
	Short: "Create a new project in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mkdir(args[0])
		initIn(args[0], filepath.Base(args[0]))
	},
}

func init() {
	// glut init subcommand
	rootCmd.AddCommand(initCmd)

	// glut new subcommand
	rootCmd.AddCommand(newCmd)
}
