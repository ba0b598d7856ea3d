package main

import "github.com/agentic-research/shape/cmd"

func main() {
	cmd.Execute()
}
