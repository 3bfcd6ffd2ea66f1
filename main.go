package main

import "github.com/parley-ai/parley/cmd"

func main() {
	cmd.Execute()
}
