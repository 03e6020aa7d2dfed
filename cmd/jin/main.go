// Command jin is the CLI entry point; all command wiring lives in the
// sibling cmd package.
package main

import "github.com/jinconfig/jin/cmd"

func main() {
	cmd.Execute()
}
