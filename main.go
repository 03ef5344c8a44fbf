// Package main is the entry point for the MelvinGraph CLI.
package main

import (
	"melvingraph/cmd"
)

func main() {
	cmd.Execute()
}
