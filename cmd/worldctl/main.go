package main

import "github.com/mcoot/tileworld/internal/cli"

func main() {
	cli.Execute()
}
