package main

import "github.com/qobs-build/glut/cmd"

func main() {
	cmd.Execute()
}
