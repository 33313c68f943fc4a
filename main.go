// Package main is the entry point for the testchanged CLI.
package main

import "github.com/felixpackard/testchanged/cmd"

func main() {
	cmd.Execute()
}
