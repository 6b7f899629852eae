// Package main is the entry point for the pragmatic CLI.
package main

import "pragmatic.dev/pkg/pragmatic/cmd"

func main() {
	cmd.Execute()
}
