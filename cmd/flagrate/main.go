package main

import "flagrate-rgb/internal/cli"

func main() {
	cli.Execute()
}
