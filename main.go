package main

import "github.com/kvistad/manhwad/cmd"

func main() {
	cmd.Execute()
}
