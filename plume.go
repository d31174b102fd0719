package main

import cli "github.com/plumeai/plume/cmd/plume"

func main() {
	cli.Execute()
}
