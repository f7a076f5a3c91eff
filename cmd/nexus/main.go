package main

import "github.com/nexusforge/nexus/internal/cli"

func main() {
	cli.Execute()
}
