package main

import "github.com/agentic-research/nixsel/cmd"

func main() {
	cmd.Execute()
}
