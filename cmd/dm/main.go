package main

import "device-manager/cmd/cli"

func main() {
	// With no subcommand the CLI starts the interactive menu.
	cli.RunCLI()
}
